package ratelimit

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/nexx/mediacenter/internal/logging"
)

// LimiterStore is a process-level singleton that manages shared rate limiters.
// All api.Client instances pointing at the same server with the same token
// share one set of limiters, so parallel transfers and the browse loop draw
// from the same server-side quota.
//
// Key structure: {baseURL, hash(token), scope}
type LimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*RateLimiter
	registry *Registry
	logger   *logging.Logger
}

var (
	globalStore     *LimiterStore
	globalStoreOnce sync.Once
)

// NewLimiterStore creates an empty store.
func NewLimiterStore(logger *logging.Logger) *LimiterStore {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LimiterStore{
		limiters: make(map[string]*RateLimiter),
		registry: NewRegistry(),
		logger:   logger,
	}
}

// GlobalStore returns the process-level singleton LimiterStore.
func GlobalStore() *LimiterStore {
	globalStoreOnce.Do(func() {
		globalStore = NewLimiterStore(logging.NewLogger("ratelimit"))
	})
	return globalStore
}

// Registry returns the endpoint-scope registry used by this store.
func (s *LimiterStore) Registry() *Registry {
	return s.registry
}

// GetLimiter returns the shared limiter for the account and scope,
// creating it on first use.
func (s *LimiterStore) GetLimiter(baseURL, token string, scope Scope) *RateLimiter {
	key := s.makeKey(baseURL, token, scope)

	s.mu.Lock()
	defer s.mu.Unlock()
	if limiter, ok := s.limiters[key]; ok {
		return limiter
	}

	limiter := NewScopeRateLimiter(s.registry.GetScopeConfig(scope))
	limiter.SetLogger(s.logger)
	s.limiters[key] = limiter
	return limiter
}

// ForRequest resolves the scope of a request and returns its limiter.
func (s *LimiterStore) ForRequest(baseURL, token, method, path string) (*RateLimiter, Scope) {
	scope := s.registry.ResolveScope(method, path)
	return s.GetLimiter(baseURL, token, scope), scope
}

// Len returns the number of limiters created so far.
func (s *LimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

func (s *LimiterStore) makeKey(baseURL, token string, scope Scope) string {
	return fmt.Sprintf("%s|%s|%s", baseURL, s.hashKey(token), scope)
}

// hashKey keeps raw tokens out of the map.
func (s *LimiterStore) hashKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:8])
}
