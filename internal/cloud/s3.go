package cloud

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink writes objects to one S3 bucket.
type S3Sink struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3Sink creates a sink for bucket. httpClient carries the proxy
// configuration; nil uses the SDK default.
func NewS3Sink(ctx context.Context, bucket string, opts Options, httpClient *nethttp.Client) (*S3Sink, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.S3Region))
	}
	if httpClient != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(httpClient))
	}
	if opts.S3AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(opts.S3AccessKey, opts.S3SecretKey, opts.S3SessionToken)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Sink{client: client, bucket: bucket, endpoint: strings.TrimRight(opts.S3Endpoint, "/")}, nil
}

// Put uploads body with a single PutObject.
func (s *S3Sink) Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// URL returns s3://bucket/key, or the path-style URL for custom endpoints.
func (s *S3Sink) URL(key string) string {
	if s.endpoint != "" {
		return s.endpoint + "/" + s.bucket + "/" + key
	}
	return "s3://" + s.bucket + "/" + key
}
