package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Router sends qualifying requests to a dedicated loader and everything
// else to the primary one.
type Router struct {
	Primary    Loader
	Qualifying Loader
}

func (r *Router) Load(ctx context.Context, year int, event string, kind Kind) (*Session, error) {
	if kind == Qualifying && r.Qualifying != nil {
		return r.Qualifying.Load(ctx, year, event, kind)
	}
	return r.Primary.Load(ctx, year, event, kind)
}

// Cache is the storage a CachedLoader reads through.
type Cache interface {
	Get(key Key) (*Session, bool, error)
	Put(s *Session) error
}

// CacheObserver is notified about cache lookups.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

type nopObserver struct{}

func (nopObserver) CacheHit()  {}
func (nopObserver) CacheMiss() {}

type CachedLoader struct {
	next     Loader
	cache    Cache
	observer CacheObserver
}

type CachedOption func(*CachedLoader)

func WithObserver(o CacheObserver) CachedOption {
	return func(c *CachedLoader) {
		if o != nil {
			c.observer = o
		}
	}
}

func NewCachedLoader(next Loader, cache Cache, opts ...CachedOption) *CachedLoader {
	c := &CachedLoader{
		next:     next,
		cache:    cache,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the cached session when present. Only sessions with data
// are stored. Cache read and write failures are logged and never fail the
// load.
func (c *CachedLoader) Load(ctx context.Context, year int, event string, kind Kind) (*Session, error) {
	key := Key{Year: year, Event: event, Kind: kind}
	logger := log.With().Str("component", "session").Stringer("key", key).Logger()
	cached, ok, err := c.cache.Get(key)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read session cache")
	} else if ok {
		c.observer.CacheHit()
		logger.Debug().Msg("Session cache hit")
		return cached, nil
	}
	c.observer.CacheMiss()
	s, err := c.next.Load(ctx, year, event, kind)
	if err != nil {
		return nil, Unavailable(key, err)
	}
	if !s.HasData() {
		logger.Debug().Msg("Not caching session without data")
		return s, nil
	}
	if err := c.cache.Put(s); err != nil {
		logger.Warn().Err(err).Msg("Failed to write session cache")
	}
	return s, nil
}

// Checked wraps a loader so that every error it returns is a
// DataUnavailableError and every session carries the requested key.
func Checked(next Loader) Loader {
	return LoaderFunc(func(ctx context.Context, year int, event string, kind Kind) (*Session, error) {
		key := Key{Year: year, Event: event, Kind: kind}
		if !kind.Valid() {
			return nil, Unavailable(key, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind))
		}
		s, err := next.Load(ctx, year, event, kind)
		if err != nil {
			return nil, Unavailable(key, err)
		}
		s.Key = key
		return s, nil
	})
}
