// Package datacache keeps the rows of a time window resident, loading them
// tile by tile as the view moves.
package datacache

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/timescope/internal/engine/event"
	"go.trai.ch/timescope/internal/engine/timeaxis"
	"go.trai.ch/zerr"
)

// Axis is the view a cache follows.
type Axis interface {
	Current() timeaxis.View
	Committing() timeaxis.View
	Now() decimal.Decimal
	Animating() bool
	Editing() bool
}

// Options configures a Cache.
type Options struct {
	Name   string
	Loader ports.ChunkLoader

	// InstantValue centres the tiles on the committing time, ignoring the
	// visible range.
	InstantValue     bool
	InstantZoomLevel *float64
	// Immediate follows the live interpolated view instead of the
	// committing one.
	Immediate bool

	// ChunkSize is nil for the default; 0 loads one unbounded tile.
	ChunkSize  *int
	ZoomLevels []float64

	Clock     clockwork.Clock
	Frames    ports.FrameScheduler
	Logger    ports.Logger
	Telemetry ports.Telemetry
}

func (o Options) chunkSize() int {
	if o.ChunkSize == nil {
		return domain.DefaultChunkSize
	}
	return *o.ChunkSize
}

// Tile is the externally visible state of one tracked tile.
type Tile struct {
	Desc  domain.ChunkDesc
	State domain.TileState
	Err   error
}

type tile struct {
	desc  domain.ChunkDesc
	span  domain.Range
	state domain.TileState
	err   error
	// stale forces a reload on the next update.
	stale bool
	gen   uint64

	fingerprint uint64
	merged      bool
}

// Cache tracks the tiles covering a view and the merged, time-ordered rows
// they loaded. Update and the getters may be called from any goroutine;
// loads run concurrently and merge under the cache lock.
type Cache struct {
	mu     sync.Mutex
	opts   Options
	clock  clockwork.Clock
	ctx    context.Context
	cancel context.CancelFunc

	tiles  map[string]*tile
	data   []domain.Row
	meta   domain.SeriesMeta
	window domain.Range
	dirty  bool
	closed bool
	gen    uint64

	// Change fires whenever the rows or the meta change. It may fire on a
	// loader goroutine.
	Change      event.Revision
	MetaChanged event.Signal[domain.SeriesMeta]
	// DataChanged fires after a load merged rows.
	DataChanged event.Signal[struct{}]
}

// New creates an empty Cache.
func New(opts Options) *Cache {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		opts:   opts,
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
		tiles:  make(map[string]*tile),
	}
}

// Name identifies the cache in logs and telemetry.
func (c *Cache) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.Name
}

// UpdateOptions swaps the loader and tiling options. Tracked tiles are kept.
func (c *Cache) UpdateOptions(opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if opts.Clock == nil {
		opts.Clock = c.clock
	}
	c.clock = opts.Clock
	c.opts = opts
}

// Data is the merged row buffer sorted by (min-time, max-time). The slice is
// never modified after it is returned.
func (c *Cache) Data() []domain.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// Meta is the last scale metadata set on the cache.
func (c *Cache) Meta() domain.SeriesMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta
}

// SetMeta replaces the scale metadata.
func (c *Cache) SetMeta(meta domain.SeriesMeta) {
	c.mu.Lock()
	c.meta = meta
	c.mu.Unlock()

	c.Change.Bump()
	c.MetaChanged.Emit(meta)
}

// Window is the span retained by the last purge.
func (c *Cache) Window() domain.Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// Revision counts data and meta changes.
func (c *Cache) Revision() uint64 {
	return c.Change.Value()
}

// Tiles lists the tracked tiles ordered by sequence.
func (c *Cache) Tiles() []Tile {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Tile, 0, len(c.tiles))
	for _, t := range c.tiles {
		out = append(out, Tile{Desc: t.desc, State: t.state, Err: t.err})
	}
	slices.SortFunc(out, func(a, b Tile) int {
		return cmp.Or(cmp.Compare(a.Desc.Seq, b.Desc.Seq), strings.Compare(a.Desc.ID, b.Desc.ID))
	})
	return out
}

// Update tracks the tiles the axis needs, starts loads for missing or
// expired ones and purges rows no tracked tile covers.
func (c *Cache) Update(axis Axis) {
	c.mu.Lock()
	opts := c.opts
	c.mu.Unlock()

	busy := axis.Animating() || axis.Editing()

	switch {
	case opts.InstantValue:
		committing := axis.Committing()
		t := domain.Or(committing.Time, axis.Now())
		zoom := committing.Zoom.InexactFloat64()
		if opts.InstantZoomLevel != nil {
			zoom = *opts.InstantZoomLevel
		}
		half := domain.ResolutionFor(zoom).
			Mul(decimal.NewFromInt(int64(opts.chunkSize()))).
			Div(decimal.NewFromInt(2))
		c.UpdateRange(domain.NewRange(t.Sub(half), t.Add(half)), zoom, busy)
	case opts.Immediate:
		v := axis.Current()
		c.UpdateRange(v.Range, v.Zoom.InexactFloat64(), busy)
	default:
		v := axis.Committing()
		c.UpdateRange(v.Range, v.Zoom.InexactFloat64(), busy)
	}
}

// UpdateRange is Update for an explicit range and zoom. busy defers the
// purge while the view is being edited or animated.
func (c *Cache) UpdateRange(r domain.Range, zoom float64, busy bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	size := c.opts.chunkSize()
	zoom = domain.ConstrainZoom(zoom, c.opts.ZoomLevels)
	chunks := domain.CreateChunkList(r, zoom, size)
	now := c.clock.Now()

	active := make(map[string]struct{}, len(chunks))
	var loads []load
	for _, desc := range chunks {
		active[desc.ID] = struct{}{}

		t, ok := c.tiles[desc.ID]
		if ok && !t.stale && !t.desc.Expired(now) {
			continue
		}
		if !ok {
			t = &tile{desc: desc, span: spanOf(desc, size), state: domain.TileInitial}
			c.tiles[desc.ID] = t
		}
		c.dirty = true
		c.gen++
		t.gen = c.gen
		t.stale = false
		t.state = domain.TileLoading
		// Never expires while loading; the result sets the real expiry.
		t.desc.ExpiresAt = time.Time{}
		loads = append(loads, load{desc: t.desc, gen: t.gen})
	}

	for id := range c.tiles {
		if _, ok := active[id]; !ok {
			delete(c.tiles, id)
			c.dirty = true
		}
	}

	purged := false
	if !busy && c.dirty {
		c.dirty = false
		purged = c.purgeLocked()
	}

	opts := c.opts
	ctx := c.ctx
	c.mu.Unlock()

	for _, l := range loads {
		go c.run(ctx, opts, l)
	}
	if purged {
		c.Change.Bump()
	}
}

// spanOf is the range a tile's rows are merged into. A single unbounded
// tile owns the whole axis.
func spanOf(desc domain.ChunkDesc, size int) domain.Range {
	if size <= 0 || !desc.Range.Bounded() {
		return domain.Range{}
	}
	return desc.Range
}

func (c *Cache) purgeLocked() bool {
	spans := make([]domain.Range, 0, len(c.tiles))
	for _, t := range c.tiles {
		spans = append(spans, t.span)
	}
	window, ok := union(spans)
	if !ok {
		return false
	}
	c.window = window
	before := len(c.data)
	c.data = purgeRows(c.data, window)
	return len(c.data) != before
}

type load struct {
	desc domain.ChunkDesc
	gen  uint64
}

func (c *Cache) run(ctx context.Context, opts Options, l load) {
	var vtx ports.Vertex
	if opts.Telemetry != nil {
		ctx, vtx = opts.Telemetry.Record(ctx, "load "+opts.Name+"/"+l.desc.ID)
	}

	res, err := opts.Loader.LoadChunk(ctx, l.desc)
	canceled := errors.Is(err, context.Canceled)
	if err != nil {
		err = zerr.With(zerr.Wrap(err, "failed to load tile"), "tile", l.desc.ID)
	}
	merged := c.finish(l, res, err)

	if vtx != nil {
		if err == nil && !merged {
			vtx.Cached()
		}
		vtx.Complete(err)
	}
	if err != nil && opts.Logger != nil && !canceled {
		opts.Logger.Error(err)
	}
}

// finish records a load result and reports whether rows were merged.
func (c *Cache) finish(l load, res domain.ChunkResult, err error) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	t, ok := c.tiles[l.desc.ID]
	if !ok {
		c.mu.Unlock()
		return false
	}
	current := t.gen == l.gen

	if err != nil {
		if current {
			t.state = domain.TileError
			t.err = err
			t.stale = true
		}
		c.mu.Unlock()
		c.Change.Bump()
		return false
	}

	if current {
		t.state = domain.TileLoaded
		t.err = nil
		t.desc.ExpiresAt = res.ExpiresAt
	}

	rows := filterRows(res.Data, t.span)
	fp := fingerprint(rows)
	if t.merged && t.fingerprint == fp {
		c.mu.Unlock()
		return false
	}
	c.data = mergeRows(c.data, rows, t.span)
	t.fingerprint = fp
	t.merged = true
	c.mu.Unlock()

	c.Change.Bump()
	c.DataChanged.Emit(struct{}{})
	return true
}

// Invalidate forgets every tracked tile so the next Update reloads them.
// Rows stay in place until the reloads replace them.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiles = make(map[string]*tile)
	c.dirty = true
}

// Close disposes the cache. Loads still in flight are cancelled and their
// results dropped.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.tiles = make(map[string]*tile)
}
