// Package fetch is the query layer between the view state and the API:
// a keyed result cache with a freshness window, one in-flight request per
// view slot (a new request cancels the previous one) and coalescing of
// identical concurrent requests.
package fetch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nexx/mediacenter/internal/logging"
)

// ErrSuperseded is returned to a caller whose request was cancelled
// because a newer request was issued for the same slot.
var ErrSuperseded = errors.New("request superseded by a newer one")

// Func performs the remote request. It must honor ctx cancellation.
type Func[T any] func(ctx context.Context) (T, error)

// Options configures a Client.
type Options struct {
	// StaleTime is how long a cached result is served without a request.
	// Zero disables caching.
	StaleTime time.Duration

	Logger *logging.Logger

	// Now is overridden in tests.
	Now func() time.Time
}

type cached[T any] struct {
	value T
	at    time.Time
}

type flight struct {
	id     uint64
	key    string
	ctx    context.Context
	cancel context.CancelCauseFunc
	refs   int
}

// Client caches results of type T by Key.
type Client[T any] struct {
	mu       sync.Mutex
	cache    map[string]cached[T]
	inflight map[string]*flight // by slot
	seq      uint64

	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	logger    *logging.Logger
}

// NewClient creates a query client.
func NewClient[T any](opts Options) *Client[T] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Client[T]{
		cache:     make(map[string]cached[T]),
		inflight:  make(map[string]*flight),
		staleTime: opts.StaleTime,
		now:       opts.Now,
		logger:    opts.Logger,
	}
}

// Query returns the result for key, from cache when fresh unless refetch
// is set. A different key already in flight for the same slot is
// cancelled and its caller receives ErrSuperseded. Callers asking for the
// key already in flight share its result.
func (c *Client[T]) Query(ctx context.Context, key Key, refetch bool, fn Func[T]) (T, error) {
	var zero T
	ks := key.String()

	c.mu.Lock()
	if !refetch {
		if v, ok := c.freshLocked(ks); ok {
			c.mu.Unlock()
			return v, nil
		}
	}
	f := c.joinLocked(ctx, key.Slot(), ks)
	c.mu.Unlock()

	ch := c.group.DoChan(ks+"#"+strconv.FormatUint(f.id, 10), func() (interface{}, error) {
		return fn(f.ctx)
	})

	select {
	case <-ctx.Done():
		c.leave(key.Slot(), f, ctx.Err())
		return zero, ctx.Err()
	case res := <-ch:
		c.leave(key.Slot(), f, nil)
		if errors.Is(context.Cause(f.ctx), ErrSuperseded) {
			c.logger.Debug().Str("key", ks).Msg("query superseded")
			return zero, ErrSuperseded
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v := res.Val.(T)
		if c.staleTime > 0 {
			c.mu.Lock()
			c.cache[ks] = cached[T]{value: v, at: c.now()}
			c.mu.Unlock()
		}
		return v, nil
	}
}

func (c *Client[T]) freshLocked(ks string) (T, bool) {
	e, ok := c.cache[ks]
	if !ok || c.staleTime <= 0 || c.now().Sub(e.at) >= c.staleTime {
		var zero T
		return zero, false
	}
	return e.value, true
}

// joinLocked returns the flight for slot, superseding it if it is for another key.
func (c *Client[T]) joinLocked(ctx context.Context, slot, ks string) *flight {
	if f := c.inflight[slot]; f != nil {
		if f.key == ks && f.ctx.Err() == nil {
			f.refs++
			return f
		}
		f.cancel(ErrSuperseded)
		delete(c.inflight, slot)
	}
	c.seq++
	fctx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	f := &flight{id: c.seq, key: ks, ctx: fctx, cancel: cancel, refs: 1}
	c.inflight[slot] = f
	return f
}

// leave drops one reference to f. The last caller to leave releases it;
// cause, when set, is why the caller gave up.
func (c *Client[T]) leave(slot string, f *flight, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.refs--
	if f.refs > 0 {
		return
	}
	if cause == nil {
		cause = context.Canceled
	}
	f.cancel(cause)
	if c.inflight[slot] == f {
		delete(c.inflight, slot)
	}
}

// Peek returns a cached result regardless of age.
func (c *Client[T]) Peek(key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[key.String()]
	return e.value, ok
}

// Invalidate drops cached results whose key starts with prefix.
// An empty prefix clears the cache.
func (c *Client[T]) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.cache {
		if hasPrefix(k, prefix) {
			delete(c.cache, k)
			n++
		}
	}
	if n > 0 {
		c.logger.Debug().Str("prefix", prefix).Int("entries", n).Msg("cache invalidated")
	}
	return n
}

// Cancel aborts the request in flight for slot, if any.
func (c *Client[T]) Cancel(slot string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f := c.inflight[slot]; f != nil {
		f.cancel(context.Canceled)
		delete(c.inflight, slot)
	}
}

// InFlight reports whether a request is outstanding for slot.
func (c *Client[T]) InFlight(slot string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[slot]
	return ok
}
