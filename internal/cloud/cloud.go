// Package cloud exports downloaded media files to object storage.
// S3 and Azure Blob Storage are supported behind the Sink interface;
// a Target names the bucket or container and the key prefix.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// Target schemes.
const (
	SchemeS3    = "s3"
	SchemeAzure = "azblob"
)

// ErrUnsupportedScheme is returned by ParseTarget for unknown URL schemes.
var ErrUnsupportedScheme = errors.New("unsupported export target")

// Target is a parsed export destination such as s3://bucket/prefix.
type Target struct {
	Scheme string
	// Bucket is the S3 bucket or the Azure container.
	Bucket string
	// Prefix is prepended to every object key; no leading or trailing slash.
	Prefix string
}

// ParseTarget parses s3://bucket/prefix or azblob://container/prefix.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, fmt.Errorf("invalid export target %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != SchemeS3 && scheme != SchemeAzure {
		return Target{}, fmt.Errorf("%w: %q (use s3://bucket/prefix or azblob://container/prefix)", ErrUnsupportedScheme, raw)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("export target %q has no bucket", raw)
	}
	return Target{
		Scheme: scheme,
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// Key returns the object key for a file name under the target prefix.
func (t Target) Key(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if t.Prefix == "" {
		return name
	}
	return t.Prefix + "/" + name
}

// String formats the target back to its URL form.
func (t Target) String() string {
	if t.Prefix == "" {
		return t.Scheme + "://" + t.Bucket
	}
	return t.Scheme + "://" + t.Bucket + "/" + t.Prefix
}

// Sink stores objects in one bucket or container.
type Sink interface {
	// Put stores body under key. body is rewound on retries, so it must
	// be seekable; size is its length in bytes.
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error
	// URL returns the location of key for display.
	URL(key string) string
}
