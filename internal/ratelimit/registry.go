package ratelimit

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Scope identifies an API throttle scope.
type Scope string

const (
	// ScopeRead is the default scope for listings and lookups.
	ScopeRead Scope = "read"

	// ScopeMutation covers requests that change folders, files or shares.
	ScopeMutation Scope = "mutation"

	// ScopeTransfer covers uploads and downloads.
	ScopeTransfer Scope = "transfer"
)

// ScopeConfig holds the rate limit configuration for a single scope.
type ScopeConfig struct {
	Scope         Scope
	HardLimitPerS float64 // Server-side limit (requests per second)
	TargetRate    float64 // Our target rate (requests per second)
	TargetPercent float64 // Target as percentage of hard limit
	BurstCapacity float64 // Token bucket burst capacity
}

// EndpointRule maps an API endpoint pattern to its throttle scope.
// Rules are matched in order of specificity: longer patterns and method-specific
// rules take precedence over shorter/wildcard ones.
type EndpointRule struct {
	// Pattern is matched with strings.Contains so path parameters need no wildcards.
	Pattern string

	// Method is the HTTP method to match, or "" for any method.
	Method string

	Scope Scope
}

// specificity returns a score for rule precedence. Higher = more specific.
func (r EndpointRule) specificity() int {
	score := len(r.Pattern)
	if r.Method != "" {
		score += 1000 // Method-specific rules always win over method-agnostic
	}
	return score
}

// Registry maps endpoints to scopes and scopes to their limits.
type Registry struct {
	// rules sorted by specificity descending (most specific first)
	rules        []EndpointRule
	scopeConfigs map[Scope]ScopeConfig
	defaultScope Scope
}

// NewRegistry creates the registry with all known media center endpoints.
func NewRegistry() *Registry {
	r := &Registry{
		defaultScope: ScopeRead,
		scopeConfigs: map[Scope]ScopeConfig{
			ScopeRead: {
				Scope:         ScopeRead,
				HardLimitPerS: ReadLimitPerSec,
				TargetRate:    ReadRatePerSec,
				TargetPercent: ReadTargetPercent,
				BurstCapacity: ReadBurstCapacity,
			},
			ScopeMutation: {
				Scope:         ScopeMutation,
				HardLimitPerS: MutationLimitPerSec,
				TargetRate:    MutationRatePerSec,
				TargetPercent: MutationTargetPercent,
				BurstCapacity: MutationBurstCapacity,
			},
			ScopeTransfer: {
				Scope:         ScopeTransfer,
				HardLimitPerS: TransferLimitPerSec,
				TargetRate:    TransferRatePerSec,
				TargetPercent: TransferTargetPercent,
				BurstCapacity: TransferBurstCapacity,
			},
		},
	}

	// Sorted by specificity below, so order here does not matter.
	r.rules = []EndpointRule{
		{Pattern: "/download", Method: http.MethodGet, Scope: ScopeTransfer},
		{Pattern: "/api/files", Method: http.MethodPost, Scope: ScopeTransfer},

		{Pattern: "/api/", Method: http.MethodPost, Scope: ScopeMutation},
		{Pattern: "/api/", Method: http.MethodPut, Scope: ScopeMutation},
		{Pattern: "/api/", Method: http.MethodDelete, Scope: ScopeMutation},

		{Pattern: "/api/", Method: "", Scope: ScopeRead},
	}

	sort.SliceStable(r.rules, func(i, j int) bool {
		return r.rules[i].specificity() > r.rules[j].specificity()
	})

	return r
}

// ResolveScope returns the most specific scope for method and path, or
// ScopeRead when no rule matches.
func (r *Registry) ResolveScope(method, path string) Scope {
	for _, rule := range r.rules {
		if !strings.Contains(path, rule.Pattern) {
			continue
		}
		if rule.Method != "" && !strings.EqualFold(rule.Method, method) {
			continue
		}
		return rule.Scope
	}
	return r.defaultScope
}

// GetScopeConfig returns the configuration of scope, or of the default
// scope if it is unknown.
func (r *Registry) GetScopeConfig(scope Scope) ScopeConfig {
	if cfg, ok := r.scopeConfigs[scope]; ok {
		return cfg
	}
	return r.scopeConfigs[r.defaultScope]
}

// AllScopes returns all configured scope names, sorted.
func (r *Registry) AllScopes() []Scope {
	scopes := make([]Scope, 0, len(r.scopeConfigs))
	for s := range r.scopeConfigs {
		scopes = append(scopes, s)
	}
	sort.Slice(scopes, func(i, j int) bool { return scopes[i] < scopes[j] })
	return scopes
}

// ScopeDisplayString describes a scope for logs, e.g. "read (10.00/sec, target 8.00/sec)".
func (r *Registry) ScopeDisplayString(scope Scope) string {
	cfg, ok := r.scopeConfigs[scope]
	if !ok {
		return string(scope) + " (unknown scope)"
	}
	return fmt.Sprintf("%s (%.2f/sec, target %.2f/sec)", scope, cfg.HardLimitPerS, cfg.TargetRate)
}
