package existence

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-identity-worker/internal/domain"
	"github.com/jellydator/ttlcache/v3"
)

// State is the outcome of an existence check.
type State string

const (
	Present State = "present"
	Absent  State = "absent"
	// Unknown means the directory could not be asked. It is never cached; callers fall
	// through to creation and let the directory's uniqueness constraint decide.
	Unknown State = "unknown"
)

// Result of Check. Identity is set only for Present.
type Result struct {
	State    State
	Identity *domain.Identity
	Cached   bool
	Err      error
}

// Directory is the search capability of the identity directory. FindByEmail returns
// (nil, nil) when no identity matches.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
}

type entry struct {
	exists     bool
	identity   *domain.Identity
	recordedAt time.Time
}

// Cache memoizes directory lookups per (scope, email) within one process. It is an
// optimization only: a cold or cleared cache yields the same outcomes, just with more
// directory calls.
type Cache struct {
	dir    Directory
	ttl    time.Duration
	now    func() time.Time
	items  *ttlcache.Cache[string, entry]
	logger *slog.Logger
}

type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(dir Directory, ttl time.Duration, logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		dir:    dir,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
		items: ttlcache.New[string, entry](
			ttlcache.WithTTL[string, entry](ttl),
			ttlcache.WithDisableTouchOnHit[string, entry](),
		),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start runs expired-entry cleanup until Stop is called. Blocks.
func (c *Cache) Start() { c.items.Start() }

func (c *Cache) Stop() { c.items.Stop() }

// Check answers whether an identity exists for email. scopeKey must carry the business
// correlation value of the triggering event so one tenant's entries never answer for
// another. An empty scopeKey bypasses the cache.
func (c *Cache) Check(ctx context.Context, scopeKey, email string) Result {
	k := key(scopeKey, email)
	if scopeKey != "" {
		if item := c.items.Get(k); item != nil {
			e := item.Value()
			if c.now().Sub(e.recordedAt) < c.ttl {
				if e.exists {
					return Result{State: Present, Identity: e.identity, Cached: true}
				}
				return Result{State: Absent, Cached: true}
			}
			c.items.Delete(k)
		}
	}

	ident, err := c.dir.FindByEmail(ctx, normalize(email))
	if err != nil {
		c.logger.Warn("existence lookup failed, treating as unknown", "scope", scopeKey, "err", err)
		return Result{State: Unknown, Err: err}
	}
	if ident == nil {
		c.store(k, scopeKey, entry{exists: false})
		return Result{State: Absent}
	}
	c.store(k, scopeKey, entry{exists: true, identity: ident})
	return Result{State: Present, Identity: ident}
}

// Record marks email as existing after a successful create.
func (c *Cache) Record(scopeKey, email string, ident *domain.Identity) {
	c.store(key(scopeKey, email), scopeKey, entry{exists: true, identity: ident})
}

// Forget drops the entry so the next Check asks the directory.
func (c *Cache) Forget(scopeKey, email string) {
	c.items.Delete(key(scopeKey, email))
}

func (c *Cache) Len() int { return c.items.Len() }

func (c *Cache) store(k, scopeKey string, e entry) {
	if scopeKey == "" {
		return
	}
	e.recordedAt = c.now()
	c.items.Set(k, e, ttlcache.DefaultTTL)
}

func key(scopeKey, email string) string {
	return scopeKey + "|" + normalize(email)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
