package cloud

import (
	"context"
	"fmt"
	nethttp "net/http"
)

// NewSink creates the sink for a target's scheme.
func NewSink(ctx context.Context, t Target, opts Options, httpClient *nethttp.Client) (Sink, error) {
	switch t.Scheme {
	case SchemeS3:
		return NewS3Sink(ctx, t.Bucket, opts, httpClient)
	case SchemeAzure:
		return NewAzureSink(t.Bucket, opts, httpClient)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, t.Scheme)
	}
}

var (
	_ Sink = (*S3Sink)(nil)
	_ Sink = (*AzureSink)(nil)
)
