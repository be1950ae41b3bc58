package cloud

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/http"
	"github.com/nexx/mediacenter/internal/logging"
)

// Exporter copies local files to a Sink under a Target prefix.
type Exporter struct {
	sink          Sink
	target        Target
	retry         http.RetryConfig
	maxConcurrent int
	logger        *logging.Logger
}

// ExporterOption customizes an Exporter.
type ExporterOption func(*Exporter)

// WithRetry overrides the retry policy for each object.
func WithRetry(cfg http.RetryConfig) ExporterOption {
	return func(e *Exporter) { e.retry = cfg }
}

// WithMaxConcurrent bounds parallel uploads.
func WithMaxConcurrent(n int) ExporterOption {
	return func(e *Exporter) {
		if n > 0 && n <= constants.MaxMaxConcurrent {
			e.maxConcurrent = n
		}
	}
}

// NewExporter creates an Exporter.
func NewExporter(sink Sink, target Target, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		sink:          sink,
		target:        target,
		retry:         http.DefaultRetryConfig(),
		maxConcurrent: constants.DefaultMaxConcurrent,
		logger:        logging.NewLogger("export"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of exporting one file.
type Result struct {
	Path     string
	Key      string
	URL      string
	Size     int64
	Duration time.Duration
	Err      error
}

// Export uploads one file and returns where it went.
func (e *Exporter) Export(ctx context.Context, path string) Result {
	res := Result{Path: path, Key: e.target.Key(filepath.Base(path))}
	res.URL = e.sink.URL(res.Key)
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		res.Err = fmt.Errorf("export %s: %w", path, err)
		return res
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		res.Err = fmt.Errorf("export %s: %w", path, err)
		return res
	}
	res.Size = info.Size()

	retry := e.retry
	retry.OnRetry = func(attempt int, err error, typ http.ErrorType) {
		e.logger.Warn().Err(err).Str("key", res.Key).Int("attempt", attempt).
			Str("class", http.ErrorTypeName(typ)).Msg("Export failed, retrying")
	}
	err = http.ExecuteWithRetry(ctx, retry, func() error {
		if _, err := f.Seek(0, 0); err != nil {
			return fmt.Errorf("rewind %s: %w", path, err)
		}
		return e.sink.Put(ctx, res.Key, f, res.Size)
	})
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("export %s: %w", filepath.Base(path), err)
		return res
	}

	e.logger.Info().Str("url", res.URL).Int64("bytes", res.Size).
		Dur("took", res.Duration).Str("speed", formatSpeed(res.Size, res.Duration)).Msg("Exported")
	return res
}

// ExportAll exports files in parallel. Every path gets a result in input
// order; one failure does not stop the others.
func (e *Exporter) ExportAll(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			results[i] = e.Export(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// formatSpeed renders bytes over d as a rate.
func formatSpeed(bytes int64, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	bps := float64(bytes) / d.Seconds()
	switch {
	case bps < 1024:
		return fmt.Sprintf("%.1f B/s", bps)
	case bps < 1024*1024:
		return fmt.Sprintf("%.1f KB/s", bps/1024)
	default:
		return fmt.Sprintf("%.1f MB/s", bps/(1024*1024))
	}
}
