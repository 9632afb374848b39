package query

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

// Client caches query results in a ports.QueryCache and reports state
// changes to watchers. It is safe for concurrent use.
type Client struct {
	store ports.QueryCache
	ttl   time.Duration

	mu         sync.Mutex
	generation uint64
	watchers   map[int]func(Event)
	nextID     int
}

func NewClient(store ports.QueryCache, ttl time.Duration) *Client {
	return &Client{
		store:    store,
		ttl:      ttl,
		watchers: make(map[int]func(Event)),
	}
}

// Fetch returns the cached value of key or runs fn and caches its result.
// A disabled query never touches the cache or fn. Errors are returned both in
// the result and as the error value and are never cached.
func Fetch[T any](ctx context.Context, c *Client, key Key, enabled bool, fn func(ctx context.Context) (T, error)) (Result[T], error) {
	if ctx == nil {
		return Result[T]{}, errors.New("context is required")
	}
	if !enabled {
		return Disabled[T](), nil
	}
	if err := ctx.Err(); err != nil {
		return Result[T]{State: StateError, Err: err}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "query.client"), slog.String("key", key.String()))

	if raw, found, err := c.store.Get(ctx, key.String()); err != nil {
		logging.Warn(logCtx, "query cache read failed", slog.Any("err", errs.Loggable(err)))
	} else if found {
		var data T
		if err := json.Unmarshal(raw, &data); err == nil {
			return Result[T]{State: StateSuccess, Data: data, Cached: true}, nil
		}
		logging.Warn(logCtx, "query cache entry undecodable, refetching")
	}

	generation := c.currentGeneration()
	c.emit(Event{Key: key, State: StateLoading})

	data, err := fn(ctx)
	if err != nil {
		c.emit(Event{Key: key, State: StateError, Err: err})
		return Result[T]{State: StateError, Err: err}, err
	}

	if c.currentGeneration() == generation {
		if raw, err := json.Marshal(data); err != nil {
			logging.Warn(logCtx, "encode query result failed", slog.Any("err", errs.Loggable(err)))
		} else if err := c.store.Set(ctx, key.String(), raw, c.ttl); err != nil {
			logging.Warn(logCtx, "query cache write failed", slog.Any("err", errs.Loggable(err)))
		}
	}

	c.emit(Event{Key: key, State: StateSuccess})
	return Result[T]{State: StateSuccess, Data: data}, nil
}

// Invalidate marks every key under prefix stale so the next Fetch refetches.
func (c *Client) Invalidate(ctx context.Context, prefix Key) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	c.mu.Lock()
	c.generation++
	c.mu.Unlock()

	removed, err := c.store.DeletePrefix(ctx, prefix.String())
	if err != nil {
		return 0, errs.Wrapf(err, "invalidate %s", prefix)
	}
	c.emit(Event{Key: prefix, State: StateInvalidated})
	return removed, nil
}

// Watch registers fn for every query event and returns its unsubscribe func.
func (c *Client) Watch(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.watchers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Client) emit(event Event) {
	c.mu.Lock()
	watchers := make([]func(Event), 0, len(c.watchers))
	for _, fn := range c.watchers {
		watchers = append(watchers, fn)
	}
	c.mu.Unlock()

	for _, fn := range watchers {
		fn(event)
	}
}
