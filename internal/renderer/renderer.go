// Package renderer is the rendering context: it owns the time axis and the
// data caches, follows the coordinating context over a bridge channel and
// redraws on a frame loop.
package renderer

import (
	"context"
	"errors"
	"maps"
	"math"
	"slices"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/bridge"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/timescope/internal/engine/datacache"
	"go.trai.ch/timescope/internal/engine/frame"
	"go.trai.ch/timescope/internal/engine/state"
	"go.trai.ch/timescope/internal/engine/timeaxis"
	"golang.org/x/sync/errgroup"
)

// Options configures a Renderer.
type Options struct {
	Channel   *bridge.Channel
	Surface   Surface
	Clock     clockwork.Clock
	FPS       int
	Logger    ports.Logger
	Telemetry ports.Telemetry
}

// Renderer draws the widget. Everything except the bridge handlers runs on
// its frame loop.
type Renderer struct {
	opts  Options
	loop  *frame.Loop
	ch    *bridge.Channel
	axis  *timeaxis.TimeAxis
	clock clockwork.Clock

	ctx    context.Context
	cancel context.CancelFunc

	caches    map[string]*datacache.SeriesCache
	symmetric map[string]bool
	size      domain.Size
	dirty  atomic.Bool
	seq    uint64
}

// New creates a Renderer and registers its commands on opts.Channel.
func New(opts Options) *Renderer {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	loop := frame.NewLoop(clock, opts.FPS)
	ctx, cancel := context.WithCancel(context.Background())

	r := &Renderer{
		opts:   opts,
		loop:   loop,
		ch:     opts.Channel,
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
		caches:    make(map[string]*datacache.SeriesCache),
		symmetric: make(map[string]bool),
		axis:      timeaxis.New(state.Options{Clock: clock, Frames: loop}),
	}
	r.dirty.Store(true)

	r.axis.Change.On(func(uint64) { r.invalidate() })
	r.axis.ViewChanging.On(func(struct{}) { r.viewChanged() })
	r.axis.Sync.On(func(msg domain.SyncMessage) {
		msg.Origin = r.ch.Origin()
		r.report(r.ch.Emit(domain.CommandSync, msg))
	})
	loop.OnFrame(r.frame)

	r.register()
	return r
}

func (r *Renderer) register() {
	bridge.OnEvent(r.ch, domain.CommandSync, func(msg domain.SyncMessage) {
		if msg.Origin == r.ch.Origin() {
			return
		}
		r.loop.Post(func() { r.axis.HandleSync(msg) })
	})
	bridge.OnEvent(r.ch, domain.CommandOptionsUpdate, func(opts domain.RenderOptions) {
		r.loop.Post(func() { r.updateOptions(opts) })
	})
	bridge.OnEvent(r.ch, domain.CommandReload, func(struct{}) {
		r.loop.Post(r.reload)
	})
	bridge.OnEvent(r.ch, domain.CommandRedraw, func(struct{}) {
		r.invalidate()
	})
	bridge.On(r.ch, domain.CommandResize, func(ctx context.Context, size domain.Size) (struct{}, error) {
		return struct{}{}, r.loop.Do(ctx, func() { r.resize(size) })
	})
	bridge.On(r.ch, domain.CommandPointer, func(ctx context.Context, p domain.Pointer) (bool, error) {
		var (
			handled bool
			err     error
		)
		if doErr := r.loop.Do(ctx, func() { handled, err = r.pointer(p) }); doErr != nil {
			return false, doErr
		}
		return handled, err
	})
}

// Run drives the frame loop and the channel until ctx is cancelled or the
// channel is closed.
func (r *Renderer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.loop.Run(ctx) })
	g.Go(func() error {
		defer cancel()
		return r.ch.Run(ctx)
	})
	err := g.Wait()
	r.dispose()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops the renderer and tears down the channel.
func (r *Renderer) Close() {
	r.cancel()
	r.ch.Close()
}

func (r *Renderer) dispose() {
	r.cancel()
	for _, c := range r.caches {
		c.Close()
	}
	r.caches = map[string]*datacache.SeriesCache{}
}

// Axis exposes the time axis. It must only be used from the frame loop.
func (r *Renderer) Axis() *timeaxis.TimeAxis { return r.axis }

// Do runs fn on the frame loop.
func (r *Renderer) Do(ctx context.Context, fn func()) error { return r.loop.Do(ctx, fn) }

func (r *Renderer) invalidate() { r.dirty.Store(true) }

func (r *Renderer) report(err error) {
	if err != nil && r.opts.Logger != nil && r.ctx.Err() == nil {
		r.opts.Logger.Error(err)
	}
}

func (r *Renderer) updateOptions(opts domain.RenderOptions) {
	for key, co := range opts.Charts {
		cacheOpts := r.cacheOptions(key, co)
		r.symmetric[key] = co.Symmetric
		if c, ok := r.caches[key]; ok {
			c.UpdateOptions(cacheOpts)
			c.Invalidate()
			continue
		}
		c := datacache.NewSeries(cacheOpts)
		c.Change.On(func(uint64) { r.invalidate() })
		c.DataChanged.On(func(struct{}) { r.loop.Post(r.viewChanged) })
		r.caches[key] = c
	}
	for key, c := range r.caches {
		if _, ok := opts.Charts[key]; !ok {
			c.Close()
			delete(r.caches, key)
			delete(r.symmetric, key)
		}
	}
	r.invalidate()
}

func (r *Renderer) cacheOptions(key string, co domain.CacheOptions) datacache.Options {
	return datacache.Options{
		Name:             key,
		Loader:           r.loader(key),
		InstantValue:     co.InstantValue,
		InstantZoomLevel: co.InstantZoomLevel,
		Immediate:        co.Immediate,
		ChunkSize:        co.ChunkSize,
		ZoomLevels:       co.ZoomLevels,
		Clock:            r.clock,
		Frames:           r.loop,
		Logger:           r.opts.Logger,
		Telemetry:        r.opts.Telemetry,
	}
}

func (r *Renderer) loader(key string) ports.ChunkLoader {
	return ports.ChunkLoaderFunc(func(ctx context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
		var res domain.ChunkResult
		err := r.ch.Call(ctx, domain.CommandLoadChunk, domain.LoadChunkRequest{Key: key, Chunk: desc}, &res)
		return res, err
	})
}

func (r *Renderer) resize(size domain.Size) {
	r.size = size
	half := float64(size.Width) / 2
	r.axis.SetAxisLength([2]float64{half, half})
	r.invalidate()
}

func (r *Renderer) reload() {
	for _, c := range r.caches {
		c.Invalidate()
	}
	r.invalidate()
}

func (r *Renderer) pointer(p domain.Pointer) (bool, error) {
	switch p.Kind {
	case domain.PointerClick:
		r.axis.Click(p.X)
	case domain.PointerDragStart:
		r.axis.DragStart(p.X)
	case domain.PointerDragUpdate:
		r.axis.DragUpdate(p.X, p.Delta)
	case domain.PointerDragEnd:
		r.axis.DragEnd()
	case domain.PointerDragCancel:
		r.axis.DragCancel()
	case domain.PointerPinchStart:
		r.axis.PinchStart(p.X, p.Y)
	case domain.PointerPinchUpdate:
		r.axis.PinchUpdate(p.X, p.Y)
	case domain.PointerPinchEnd:
		r.axis.PinchEnd()
	case domain.PointerWheel:
		return true, r.axis.Wheel(p.Y)
	default:
		return false, nil
	}
	return true, nil
}

// viewChanged reports the current view and, if the axis did not move in
// the meantime, refreshes the meta of every cache.
func (r *Renderer) viewChanged() {
	v := r.axis.Current()
	revision := r.axis.Change.Value()
	msg := domain.ViewChanged{
		Time:       v.Time,
		Zoom:       v.Zoom.InexactFloat64(),
		Resolution: v.Resolution,
		Range:      v.Range,
	}
	go func() {
		if err := r.ch.Call(r.ctx, domain.CommandViewChanged, msg, nil); err != nil {
			r.report(err)
			return
		}
		r.loop.Post(func() {
			if r.axis.Change.Value() != revision {
				return
			}
			for key, c := range r.caches {
				r.loadMeta(key, c)
			}
		})
	}()
}

func (r *Renderer) loadMeta(key string, c *datacache.SeriesCache) {
	revision := c.Revision()
	v := r.axis.Value()
	req := domain.LoadMetaRequest{Key: key, Zoom: v.Zoom.InexactFloat64(), Resolution: v.Resolution}
	go func() {
		var meta domain.SeriesMeta
		if err := r.ch.Call(r.ctx, domain.CommandLoadMeta, req, &meta); err != nil {
			r.report(err)
			return
		}
		r.loop.Post(func() {
			if c.Revision() == revision {
				c.UpdateMeta(meta)
			}
		})
	}()
}

// renderRequired reports whether the next frame has to be drawn: something
// changed, the time is live, or a bound pinned at now is on screen.
func (r *Renderer) renderRequired() bool {
	if r.dirty.Load() || !r.axis.Value().Time.Valid {
		return true
	}
	d := r.axis.State().Time.Domain()
	width := float64(r.size.Width)
	for _, b := range d {
		if b.Kind != domain.BoundNull {
			continue
		}
		if p := r.axis.P(domain.Null); 0 <= p && p < width {
			return true
		}
	}
	return false
}

func (r *Renderer) frame() {
	if !r.renderRequired() {
		return
	}
	r.dirty.Store(false)

	for _, c := range r.caches {
		c.Update(r.axis)
	}
	if r.opts.Surface != nil {
		r.opts.Surface.Draw(r.snapshot())
	}
}

func (r *Renderer) snapshot() Frame {
	r.seq++
	v := r.axis.Current()
	_, cursor := r.axis.Cursor()
	d := r.axis.State().Time.Domain()
	now := r.axis.Now()

	f := Frame{
		Seq:     r.seq,
		Size:    r.size,
		Time:    v.Time,
		Now:     now,
		Zoom:    v.Zoom,
		Range:   v.Range,
		Cursor:  cursor,
		Bounds:  r.axis.PRange(domain.Range{Start: boundValue(d[0], now), End: boundValue(d[1], now)}),
		Editing: r.axis.Editing(),
	}
	for _, key := range slices.Sorted(maps.Keys(r.caches)) {
		c := r.caches[key]
		f.Tracks = append(f.Tracks, Track{
			Key:      key,
			Meta:     c.Meta(),
			Floating: c.Floating(),
			Points:   points(c.Data(), r.axis.P, r.scaleY(key, c)),
			Tiles:    c.Tiles(),
		})
	}
	return f
}

// scaleY lays a track's values out on the unit axis. Symmetric and log
// charts are normalised against the series extrema; the rest follow the
// animated amplitude of the cache.
func (r *Renderer) scaleY(key string, c *datacache.SeriesCache) func(domain.Value) float64 {
	meta := c.Meta()
	symmetric := r.symmetric[key]
	if !symmetric && meta.Scale != domain.ScaleLog {
		return c.ScaleY(false)
	}
	scale := datacache.CreateScaleY(symmetric, meta.Scale == domain.ScaleLog, scaleMeta(meta))
	if scale == nil {
		return c.ScaleY(false)
	}
	return func(v domain.Value) float64 {
		y, ok := scale(v)
		if !ok {
			return math.NaN()
		}
		if symmetric && meta.Scale != domain.ScaleLog {
			// [-1, 1] around zero onto [0, 1]
			return (y + 1) / 2
		}
		return y
	}
}

// scaleMeta reduces the signed extrema to the overall minimum, maximum and
// amplitude.
func scaleMeta(m domain.SeriesMeta) datacache.ScaleMeta {
	lo, hi := firstValid(m.NMin, m.PMin), firstValid(m.PMax, m.NMax)
	amp := domain.Null
	for _, v := range []domain.Value{lo, hi} {
		if v.Valid && (!amp.Valid || v.Decimal.Abs().GreaterThan(amp.Decimal)) {
			amp = domain.Some(v.Decimal.Abs())
		}
	}
	return datacache.ScaleMeta{Min: lo, Max: hi, Amp: amp}
}

func firstValid(a, b domain.Value) domain.Value {
	if a.Valid {
		return a
	}
	return b
}

func boundValue(b domain.Bound, now decimal.Decimal) domain.Value {
	if d, ok := b.Resolve(now); ok {
		return domain.Some(d)
	}
	return domain.Null
}
