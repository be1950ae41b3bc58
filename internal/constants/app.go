package constants

import (
	"time"
)

// File list paging
const (
	// DefaultPageSize - page size used until the server reports its own
	DefaultPageSize = 10

	// MaxFolderPasswordAttempts - prompts before the browse loop gives up on a locked folder
	MaxFolderPasswordAttempts = 3
)

// AllowedPageSizes is the fixed set offered by the page-size selector.
var AllowedPageSizes = []int{10, 20, 50, 100}

// IsAllowedPageSize reports whether n is one of AllowedPageSizes.
func IsAllowedPageSize(n int) bool {
	for _, size := range AllowedPageSizes {
		if size == n {
			return true
		}
	}
	return false
}

// Highlighting
const (
	// HighlightDuration - how long a just-uploaded or just-renamed entry stays marked new
	HighlightDuration = 2000 * time.Millisecond
)

// Query cache
const (
	// QueryStaleTime - cached listings younger than this are served without a request
	QueryStaleTime = 30 * time.Second

	// FolderQueryStaleTime - the folder tree changes rarely, cache it longer
	FolderQueryStaleTime = 5 * time.Minute
)

// HTTP Client Timeouts
const (
	// HTTPDialTimeout - timeout for establishing TCP connections (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - TCP keepalive interval (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle connections stay in the pool (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - TLS handshake timeout (15 seconds)
	HTTPTLSHandshakeTimeout = 15 * time.Second

	// HTTPExpectContinueTimeout - wait for 100-continue (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// DefaultRequestTimeout - bound on a single API request (listing, mutation)
	DefaultRequestTimeout = 30 * time.Second

	// TransferTimeout - bound on a single upload or download
	TransferTimeout = 30 * time.Minute
)

// Retry configuration
const (
	// RetryWaitMin - minimum wait between retried mutations
	RetryWaitMin = 1 * time.Second

	// RetryWaitMax - maximum wait between retried mutations
	RetryWaitMax = 30 * time.Second
)

// Disk space safety margin
const (
	// DiskSpaceBufferPercent - additional space to require beyond file size (15%)
	DiskSpaceBufferPercent = 0.15
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// UI Updates
const (
	// ProgressUpdateInterval - interval for progress bar updates (250ms)
	ProgressUpdateInterval = 250 * time.Millisecond
)

// CLI Concurrency Limits
const (
	// DefaultMaxConcurrent - default concurrent uploads for `files upload a b c`
	DefaultMaxConcurrent = 3

	// MaxMaxConcurrent - maximum concurrent uploads allowed
	MaxMaxConcurrent = 8
)
