package app

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/bridge"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/timescope/internal/engine/committable"
	"go.trai.ch/timescope/internal/engine/event"
	"go.trai.ch/timescope/internal/engine/frame"
	"go.trai.ch/timescope/internal/engine/source"
	"go.trai.ch/timescope/internal/engine/state"
	"go.trai.ch/timescope/internal/engine/timeaxis"
	"go.trai.ch/timescope/internal/renderer"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ScopeOptions configures a Scope.
type ScopeOptions struct {
	Config    *domain.Config
	Fetcher   ports.Fetcher
	Logger    ports.Logger
	Telemetry ports.Telemetry
	Clock     clockwork.Clock
}

// Scope is the coordinating context of one widget. It owns the time and
// zoom state, the sources and the series, relays state transitions to the
// rendering context and answers its provider calls.
//
// The state lives on the scope's own loop; the exported methods hop onto
// it and may be called from any goroutine once Run is running.
type Scope struct {
	opts  ScopeOptions
	clock clockwork.Clock
	loop  *frame.Loop
	state *state.State

	provider *source.Provider
	sources  map[string]*source.Source

	mu       sync.Mutex
	charts   []domain.ChartConfig
	ch       *bridge.Channel
	renderer *renderer.Renderer
	size     domain.Size

	// ViewChanged fires with every view the renderer settles on.
	ViewChanged event.Signal[domain.ViewChanged]
}

// NewScope builds the sources and series of cfg.
func NewScope(opts ScopeOptions) (*Scope, error) {
	if opts.Config == nil {
		return nil, zerr.Wrap(domain.ErrInvalidConfig, "scope needs a config")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	loop := frame.NewLoop(clock, opts.Config.Render.FPS)

	s := &Scope{
		opts:     opts,
		clock:    clock,
		loop:     loop,
		state:    state.New(state.FromConfig(opts.Config.State, clock, loop)),
		provider: source.NewProvider(),
		sources:  make(map[string]*source.Source, len(opts.Config.Sources)),
	}

	for _, name := range slices.Sorted(maps.Keys(opts.Config.Sources)) {
		cfg := opts.Config.Sources[name]
		src, err := source.New(source.Options{
			Name:       name,
			Data:       cfg.Data,
			URL:        cfg.URL,
			ChunkSize:  cfg.ChunkSize,
			ZoomLevels: cfg.ZoomLevels,
			TTL:        cfg.TTL,
			Fetcher:    opts.Fetcher,
			Logger:     opts.Logger,
			Clock:      clock,
		})
		if err != nil {
			return nil, err
		}
		s.sources[name] = src
	}

	if err := s.register(opts.Config.Charts); err != nil {
		return nil, err
	}
	return s, nil
}

// register binds one series per chart to the provider.
func (s *Scope) register(charts []domain.ChartConfig) error {
	for _, c := range charts {
		cfg, ok := s.opts.Config.Series[c.Series]
		if !ok {
			return zerr.With(domain.ErrUnknownSeries, "series", c.Series)
		}
		series, err := source.NewSeries(c.Name, cfg, s.sources[cfg.Source])
		if err != nil {
			return zerr.With(err, "chart", c.Name)
		}
		s.provider.Register(c.Name, series)
	}
	s.mu.Lock()
	s.charts = slices.Clone(charts)
	s.mu.Unlock()
	return nil
}

// State exposes the time and zoom committables and their signals. Reads
// must happen on the scope loop, e.g. inside Do.
func (s *Scope) State() *state.State { return s.state }

// Provider answers chunk and meta requests for the registered charts.
func (s *Scope) Provider() *source.Provider { return s.provider }

// Source returns the named source.
func (s *Scope) Source(name string) (*source.Source, bool) {
	src, ok := s.sources[name]
	return src, ok
}

// Do runs fn on the scope loop.
func (s *Scope) Do(ctx context.Context, fn func()) error { return s.loop.Do(ctx, fn) }

// Mount creates the rendering context, drawing to surface, and connects it
// to the scope. The initial options and state are queued for it.
func (s *Scope) Mount(surface renderer.Surface) (*renderer.Renderer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil {
		return nil, zerr.New("scope is already mounted")
	}

	main, worker := bridge.Pipe(s.opts.Logger)
	r := renderer.New(renderer.Options{
		Channel:   worker,
		Surface:   surface,
		Clock:     s.clock,
		FPS:       s.opts.Config.Render.FPS,
		Logger:    s.opts.Logger,
		Telemetry: s.opts.Telemetry,
	})
	s.ch, s.renderer = main, r
	s.attach(main)

	if err := main.Emit(domain.CommandOptionsUpdate, s.renderOptionsLocked()); err != nil {
		return nil, err
	}
	s.loop.Post(s.state.Restore)
	return r, nil
}

func (s *Scope) attach(ch *bridge.Channel) {
	relay := func(msg domain.SyncMessage) {
		msg.Origin = ch.Origin()
		s.report(ch.Emit(domain.CommandSync, msg))
	}
	s.state.Time.Sync.On(func(m domain.Sync) { relay(domain.SyncMessage{Time: &m}) })
	s.state.Zoom.Sync.On(func(m domain.Sync) { relay(domain.SyncMessage{Zoom: &m}) })

	bridge.OnEvent(ch, domain.CommandSync, func(msg domain.SyncMessage) {
		if msg.Origin == ch.Origin() {
			return
		}
		s.loop.Post(func() { s.state.HandleSync(msg) })
	})
	bridge.On(ch, domain.CommandLoadChunk, s.provider.LoadChunk)
	bridge.On(ch, domain.CommandLoadMeta, s.provider.LoadMeta)
	bridge.On(ch, domain.CommandViewChanged, func(_ context.Context, v domain.ViewChanged) (struct{}, error) {
		s.provider.ViewChanged(v)
		s.ViewChanged.Emit(v)
		return struct{}{}, nil
	})
}

func (s *Scope) renderOptionsLocked() domain.RenderOptions {
	opts := domain.RenderOptions{Charts: make(map[string]domain.CacheOptions, len(s.charts))}
	for _, c := range s.charts {
		series, err := s.provider.Series(c.Name)
		if err != nil {
			continue
		}
		src := series.Source()
		size := src.ChunkSize()
		opts.Charts[c.Name] = domain.CacheOptions{
			InstantValue: c.Instant,
			Immediate:    c.Immediate,
			ChunkSize:    &size,
			ZoomLevels:   src.ZoomLevels(),
			Symmetric:    c.Symmetric,
		}
	}
	return opts
}

func (s *Scope) channel() (*bridge.Channel, *renderer.Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch, s.renderer
}

func (s *Scope) report(err error) {
	if err != nil && s.opts.Logger != nil && !errors.Is(err, domain.ErrChannelClosed) {
		s.opts.Logger.Error(err)
	}
}

// Run drives the scope loop and, once mounted, the channel and the
// renderer. It returns when ctx is cancelled or the scope is unmounted.
func (s *Scope) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, r := s.channel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop.Run(ctx) })
	if ch != nil {
		g.Go(func() error {
			defer cancel()
			return ch.Run(ctx)
		})
		g.Go(func() error { return r.Run(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Unmount tears the rendering context down.
func (s *Scope) Unmount() {
	ch, r := s.channel()
	if r != nil {
		r.Close()
	}
	if ch != nil {
		ch.Close()
	}
}

// SetTime moves the time; nil or "now" goes live. A nil animation uses the
// default transition.
func (s *Scope) SetTime(ctx context.Context, v any, anim *committable.Animation) error {
	var err error
	if doErr := s.loop.Do(ctx, func() { err = s.state.SetTime(v, anim) }); doErr != nil {
		return doErr
	}
	return err
}

// SetZoom changes the zoom.
func (s *Scope) SetZoom(ctx context.Context, v any, anim *committable.Animation) error {
	var err error
	if doErr := s.loop.Do(ctx, func() { err = s.state.SetZoom(v, anim) }); doErr != nil {
		return doErr
	}
	return err
}

// SetTimeRange replaces the time domain; nil restores the default.
func (s *Scope) SetTimeRange(ctx context.Context, d *domain.Domain) error {
	var err error
	if doErr := s.loop.Do(ctx, func() { err = s.state.SetTimeRange(d) }); doErr != nil {
		return doErr
	}
	return err
}

// SetZoomRange replaces the zoom domain.
func (s *Scope) SetZoomRange(ctx context.Context, d domain.Domain) error {
	var err error
	if doErr := s.loop.Do(ctx, func() { err = s.state.SetZoomRange(d) }); doErr != nil {
		return doErr
	}
	return err
}

// SetPlaybackTime pins "now" to t, so live views follow t instead of the
// clock. Passing domain.Null resumes the clock.
func (s *Scope) SetPlaybackTime(ctx context.Context, t any) error {
	v, err := domain.ParseTime(t)
	if err != nil {
		return zerr.Wrap(err, "failed to set playback time")
	}
	return s.loop.Do(ctx, func() { s.state.SetPlaybackTime(v) })
}

// FitTo zooms and centres the view so that r spans the width minus padding
// on both sides. It reports false before the first resize.
func (s *Scope) FitTo(ctx context.Context, r domain.Range, padding float64) (bool, error) {
	s.mu.Lock()
	width := float64(s.size.Width) - 2*padding
	s.mu.Unlock()
	if width <= 0 || !r.Bounded() {
		return false, nil
	}

	span := r.End.Decimal.Sub(r.Start.Decimal)
	resolution := span.Div(decimal.NewFromFloat(width)).Abs()
	if resolution.IsZero() {
		return false, nil
	}
	centre := r.Start.Decimal.Add(r.End.Decimal).Div(decimal.NewFromInt(2))

	if err := s.SetZoom(ctx, domain.ZoomFor(resolution), nil); err != nil {
		return false, err
	}
	if err := s.SetTime(ctx, centre, nil); err != nil {
		return false, err
	}
	return true, nil
}

// Wheel zooms by a normalised wheel delta; scrolling down zooms out.
func (s *Scope) Wheel(ctx context.Context, deltaY float64) error {
	var err error
	doErr := s.loop.Do(ctx, func() {
		step := decimal.NewFromFloat(deltaY / timeaxis.WheelSensitivity)
		err = s.state.SetZoom(s.state.Zoom.Committing().Decimal.Sub(step), nil)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// UpdateOptions replaces the rendered charts.
func (s *Scope) UpdateOptions(charts []domain.ChartConfig) error {
	s.mu.Lock()
	previous := s.charts
	s.mu.Unlock()
	for _, c := range previous {
		s.provider.Unregister(c.Name)
	}
	if err := s.register(charts); err != nil {
		return err
	}

	ch, _ := s.channel()
	if ch == nil {
		return nil
	}
	s.mu.Lock()
	opts := s.renderOptionsLocked()
	s.mu.Unlock()
	return ch.Emit(domain.CommandOptionsUpdate, opts)
}

// Reload expires the chunks of the named sources, or of every source, and
// makes the renderer refetch.
func (s *Scope) Reload(names ...string) error {
	if len(names) == 0 {
		names = slices.Collect(maps.Keys(s.sources))
	}
	for _, name := range names {
		if src, ok := s.sources[name]; ok {
			src.ExpireChunks(nil)
		}
	}
	ch, _ := s.channel()
	if ch == nil {
		return nil
	}
	return ch.Emit(domain.CommandReload, nil)
}

// Resize tells the renderer its surface size.
func (s *Scope) Resize(ctx context.Context, size domain.Size) error {
	s.mu.Lock()
	s.size = size
	s.mu.Unlock()

	ch, _ := s.channel()
	if ch == nil {
		return nil
	}
	return ch.Call(ctx, domain.CommandResize, size, nil)
}

// Size is the last size passed to Resize.
func (s *Scope) Size() domain.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Pointer forwards a gesture to the renderer and reports whether it was
// handled.
func (s *Scope) Pointer(ctx context.Context, p domain.Pointer) (bool, error) {
	ch, _ := s.channel()
	if ch == nil {
		return false, nil
	}
	var handled bool
	err := ch.Call(ctx, domain.CommandPointer, p, &handled)
	return handled, err
}

// Redraw marks the renderer dirty.
func (s *Scope) Redraw() error {
	ch, _ := s.channel()
	if ch == nil {
		return nil
	}
	return ch.Emit(domain.CommandRedraw, nil)
}

// Snapshot is the scope's view of the state.
type Snapshot struct {
	Time      domain.Value
	Zoom      float64
	TimeRange domain.Domain
	ZoomRange domain.Domain
	Now       decimal.Decimal
	Editing   bool
	Animating bool
}

// Snapshot reads the state on the scope loop.
func (s *Scope) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.loop.Do(ctx, func() {
		snap = Snapshot{
			Time:      s.state.Time.Value(),
			Zoom:      s.state.Zoom.Value().Decimal.InexactFloat64(),
			TimeRange: s.state.Time.Domain(),
			ZoomRange: s.state.Zoom.Domain(),
			Now:       s.state.Now(),
			Editing:   s.state.Time.Editing() || s.state.Zoom.Editing(),
			Animating: s.state.Time.Animating() || s.state.Zoom.Animating(),
		}
	})
	return snap, err
}
