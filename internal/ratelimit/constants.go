// Package ratelimit provides rate limiting constants for the media center API scopes.
package ratelimit

import "time"

// Media center API throttle limits
//
// The API gateway throttles per token. Listing and metadata calls share one
// budget; multipart uploads and downloads are counted separately because
// each one holds a connection for much longer.
const (
	// ReadLimitPerSec covers GET listings, folder tree and share lookups.
	ReadLimitPerSec = 10.0

	// MutationLimitPerSec covers create/rename/delete/lock and share changes.
	MutationLimitPerSec = 5.0

	// TransferLimitPerSec covers POST /api/files and GET /api/files/{id}/download.
	TransferLimitPerSec = 2.0
)

// Target percentages
//
// 80% of the hard limit leaves room for other clients of the same token.
const (
	ReadTargetPercent     = 80
	MutationTargetPercent = 80
	TransferTargetPercent = 80
)

// Calculated target rates (requests per second)
const (
	ReadRatePerSec     = ReadLimitPerSec * ReadTargetPercent / 100
	MutationRatePerSec = MutationLimitPerSec * MutationTargetPercent / 100
	TransferRatePerSec = TransferLimitPerSec * TransferTargetPercent / 100
)

// Burst capacities (tokens)
const (
	// ReadBurstCapacity lets the browse loop page quickly through a folder.
	ReadBurstCapacity = 40

	// MutationBurstCapacity covers a bulk delete of a full page.
	MutationBurstCapacity = 20

	// TransferBurstCapacity matches the maximum upload concurrency.
	TransferBurstCapacity = 8
)

// Feedback
const (
	// DefaultCooldown is applied after a 429 without a Retry-After header.
	DefaultCooldown = 5 * time.Second

	// MaxCooldown caps server-provided Retry-After values.
	MaxCooldown = 2 * time.Minute

	// warnThreshold: waits longer than this are logged.
	warnThreshold = 2 * time.Second

	// warnInterval rate-limits the wait warning itself.
	warnInterval = 10 * time.Second
)
