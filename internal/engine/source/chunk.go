package source

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/timescope/internal/core/domain"
	"golang.org/x/sync/singleflight"
)

// Records are raw records as a loader returns them.
type Records = []map[string]any

// Expiry lets a loader bound how long its result stays fresh.
type Expiry struct {
	clock clockwork.Clock
	at    time.Time
}

// ExpiresAt sets an absolute expiry.
func (e *Expiry) ExpiresAt(t time.Time) { e.at = t }

// ExpiresIn sets an expiry relative to now.
func (e *Expiry) ExpiresIn(d time.Duration) { e.at = e.clock.Now().Add(d) }

// At is the expiry set so far; zero means never.
func (e *Expiry) At() time.Time { return e.at }

// LoaderFunc loads the raw records of one tile.
type LoaderFunc func(ctx context.Context, desc domain.ChunkDesc, exp *Expiry) (Records, error)

// Chunk is one cached tile of a Source.
type Chunk struct {
	desc   domain.ChunkDesc
	loader LoaderFunc
	clock  clockwork.Clock
	ttl    time.Duration

	group singleflight.Group

	mu          sync.Mutex
	state       domain.TileState
	expiresAt   time.Time
	invalidated bool
	data        Records
}

func newChunk(desc domain.ChunkDesc, loader LoaderFunc, clock clockwork.Clock, ttl time.Duration) *Chunk {
	desc.ExpiresAt = time.Time{}
	return &Chunk{desc: desc, loader: loader, clock: clock, ttl: ttl, state: domain.TileInitial}
}

// Desc describes the tile, including its current expiry.
func (c *Chunk) Desc() domain.ChunkDesc {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.desc
	d.ExpiresAt = c.expiresAt
	return d
}

// State is the load state.
func (c *Chunk) State() domain.TileState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Expired reports whether the next Load has to call the loader.
func (c *Chunk) Expired(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiredLocked(now)
}

func (c *Chunk) expiredLocked(now time.Time) bool {
	if c.state != domain.TileLoaded || c.invalidated {
		return true
	}
	return !c.expiresAt.IsZero() && !now.Before(c.expiresAt)
}

// Invalidate marks the chunk expired. The records stay available until the
// next load replaces them.
func (c *Chunk) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = true
}

// Load returns the chunk records, calling the loader when the chunk is
// expired or force is set. Concurrent loads share one loader call, which
// runs detached from the cancellation of whichever caller started it; a
// caller whose ctx ends stops waiting without failing the others.
func (c *Chunk) Load(ctx context.Context, force bool) (Records, error) {
	c.mu.Lock()
	if !force && !c.expiredLocked(c.clock.Now()) {
		data := c.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	shared := context.WithoutCancel(ctx)
	flight := c.group.DoChan(c.desc.ID, func() (any, error) {
		return c.load(shared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Records), nil
	}
}

func (c *Chunk) load(ctx context.Context) (Records, error) {
	c.mu.Lock()
	c.state = domain.TileLoading
	c.invalidated = false
	c.mu.Unlock()

	exp := &Expiry{clock: c.clock}
	if c.ttl > 0 {
		exp.ExpiresIn(c.ttl)
	}
	data, err := c.loader(ctx, c.desc, exp)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = domain.TileError
		return nil, err
	}
	c.state = domain.TileLoaded
	c.expiresAt = exp.at
	c.data = data
	return data, nil
}
