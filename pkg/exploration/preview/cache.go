// Package preview caches AI-customized playable HTML per (session, option)
// with a bounded number of self-heal attempts.
package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-exploration-be/pkg/exploration"
	"game-exploration-be/pkg/exploration/keylock"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL            = 30 * time.Minute
	DefaultMaxFixAttempts = 2
	// MaxReportedErrors bounds the runtime errors forwarded to a repair call.
	MaxReportedErrors = 5
)

type Entry struct {
	Key         string    `json:"key"`
	SessionID   uint      `json:"session_id"`
	OptionID    string    `json:"option_id"`
	HTML        string    `json:"html"`
	FixAttempts int       `json:"fix_attempts"`
	LastErrors  []string  `json:"last_errors"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store is the keyed backing storage. Implementations drop entries after ttl.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Put(ctx context.Context, entry *Entry, ttl time.Duration) error
}

type Generator func(ctx context.Context) (string, error)

type Repairer func(ctx context.Context, current *Entry) (string, error)

type Cache struct {
	store          Store
	ttl            time.Duration
	maxFixAttempts int
	inflight       singleflight.Group
	locks          *keylock.Locker
	now            func() time.Time
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithMaxFixAttempts(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxFixAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func NewCache(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:          store,
		ttl:            DefaultTTL,
		maxFixAttempts: DefaultMaxFixAttempts,
		locks:          keylock.New(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key is stable and unique per option within a session.
func Key(sessionID uint, optionID string) string {
	return fmt.Sprintf("preview:%d:%s", sessionID, optionID)
}

// Get returns the live entry for key or ErrCacheMiss. Expired entries count as a miss.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, error) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || e == nil || !c.now().Before(e.ExpiresAt) {
		return nil, fmt.Errorf("%w: %s", exploration.ErrCacheMiss, key)
	}
	return e, nil
}

// Ensure returns the cached entry, generating it on a miss. Concurrent callers
// for the same key share one generation. generated is false on a cache hit.
func (c *Cache) Ensure(ctx context.Context, sessionID uint, optionID string, gen Generator) (*Entry, bool, error) {
	key := Key(sessionID, optionID)
	if e, err := c.Get(ctx, key); err == nil {
		return e, false, nil
	}

	v, err, _ := c.inflight.Do(key, func() (interface{}, error) {
		if e, err := c.Get(ctx, key); err == nil {
			return e, nil
		}
		html, err := gen(ctx)
		if err != nil {
			return nil, err
		}
		e := &Entry{
			Key:        key,
			SessionID:  sessionID,
			OptionID:   optionID,
			HTML:       html,
			LastErrors: []string{},
			ExpiresAt:  c.now().Add(c.ttl),
		}
		if err := c.store.Put(ctx, e, c.ttl); err != nil {
			return nil, err
		}
		return e, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Entry), true, nil
}

// Fix runs repair against the cached code and overwrites the entry, resetting
// its TTL. A missing entry is a precondition violation; an exhausted entry
// fails with ErrFixLimitExceeded and is left untouched. Store failures are
// returned as they are.
func (c *Cache) Fix(ctx context.Context, key string, errs []string, repair Repairer) (*Entry, error) {
	unlock, err := c.locks.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := c.Get(ctx, key)
	if errors.Is(err, exploration.ErrCacheMiss) {
		return nil, fmt.Errorf("%w: no cached preview to fix", exploration.ErrPrecondition)
	}
	if err != nil {
		return nil, fmt.Errorf("reading preview %s: %w", key, err)
	}
	if current.FixAttempts >= c.maxFixAttempts {
		return nil, fmt.Errorf("%w: %d of %d attempts used", exploration.ErrFixLimitExceeded, current.FixAttempts, c.maxFixAttempts)
	}

	html, err := repair(ctx, current)
	if err != nil {
		return nil, err
	}
	if len(errs) > MaxReportedErrors {
		errs = errs[:MaxReportedErrors]
	}
	next := *current
	next.HTML = html
	next.FixAttempts = current.FixAttempts + 1
	next.LastErrors = append([]string{}, errs...)
	next.ExpiresAt = c.now().Add(c.ttl)
	if err := c.store.Put(ctx, &next, c.ttl); err != nil {
		return nil, err
	}
	return &next, nil
}

func (c *Cache) MaxFixAttempts() int {
	return c.maxFixAttempts
}
