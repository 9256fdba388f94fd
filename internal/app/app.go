// Package app implements the application layer for timescope.
package app

import (
	"context"
	"errors"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/adapters/tui"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/timescope/internal/engine/source"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	fetcher      ports.Fetcher
	telemetry    ports.Telemetry
	clock        clockwork.Clock
	teaOptions   []tea.ProgramOption
	disableTick  bool
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	fetcher ports.Fetcher,
	telemetry ports.Telemetry,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		fetcher:      fetcher,
		telemetry:    telemetry,
		clock:        clockwork.NewRealClock(),
	}
}

// WithTeaOptions adds bubbletea program options to the App.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// WithDisableTick disables the TUI spinner.
// This is primarily used for testing with synctest to avoid goroutine deadlocks.
func (a *App) WithDisableTick() *App {
	a.disableTick = true
	return a
}

// WithClock replaces the wall clock.
func (a *App) WithClock(clock clockwork.Clock) *App {
	a.clock = clock
	return a
}

// Window selects a stretch of the time axis. Empty ends mean now; an empty
// start reaches back one render width at the given zoom.
type Window struct {
	Start string
	End   string
	Zoom  float64
}

func (a *App) loadConfig(path string) (*domain.Config, error) {
	cfg, err := a.configLoader.Load(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return cfg, nil
}

func (a *App) resolve(w Window, width int) (domain.Range, error) {
	end, err := domain.ParseTime(w.End)
	if err != nil {
		return domain.Range{}, zerr.With(err, "end", w.End)
	}
	if !end.Valid {
		end = domain.Some(domain.FromTime(a.clock.Now()))
	}
	start, err := domain.ParseTime(w.Start)
	if err != nil {
		return domain.Range{}, zerr.With(err, "start", w.Start)
	}
	if !start.Valid {
		span := domain.ResolutionFor(w.Zoom).Mul(decimal.NewFromInt(int64(width)))
		start = domain.Some(end.Decimal.Sub(span))
	}
	if start.Decimal.GreaterThan(end.Decimal) {
		return domain.Range{}, zerr.With(zerr.With(domain.ErrInvalidDomain, "start", start.Decimal.String()), "end", end.Decimal.String())
	}
	return domain.NewRange(start.Decimal, end.Decimal), nil
}

func (a *App) newSource(cfg *domain.Config, name string) (*source.Source, error) {
	sc, ok := cfg.Sources[name]
	if !ok {
		return nil, zerr.With(domain.ErrUnknownSource, "source", name)
	}
	return source.New(source.Options{
		Name:       name,
		Data:       sc.Data,
		URL:        sc.URL,
		ChunkSize:  sc.ChunkSize,
		ZoomLevels: sc.ZoomLevels,
		TTL:        sc.TTL,
		Fetcher:    a.fetcher,
		Logger:     a.logger,
		Telemetry:  a.telemetry,
		Clock:      a.clock,
	})
}

// ChunksOptions configures Chunks.
type ChunksOptions struct {
	Config string
	Source string
	Window Window
}

// Chunks lists the tiles a source is split into over the window.
func (a *App) Chunks(_ context.Context, opts ChunksOptions) ([]domain.ChunkDesc, error) {
	cfg, err := a.loadConfig(opts.Config)
	if err != nil {
		return nil, err
	}
	src, err := a.newSource(cfg, opts.Source)
	if err != nil {
		return nil, err
	}
	r, err := a.resolve(opts.Window, cfg.Render.Width)
	if err != nil {
		return nil, err
	}
	zoom := domain.ConstrainZoom(opts.Window.Zoom, src.ZoomLevels())
	return domain.CreateChunkList(r, zoom, src.ChunkSize()), nil
}

// LoadOptions configures Load.
type LoadOptions struct {
	Config string
	Series string
	Window Window
}

// LoadResult is what Load found.
type LoadResult struct {
	Range  domain.Range
	Chunks []domain.ChunkDesc
	Rows   []domain.Row
	Meta   domain.SeriesMeta
	// Failed maps chunk ids to their load error.
	Failed map[string]error
}

// Load loads the tiles of a series over the window concurrently and
// computes its scale meta. Tiles that fail are reported in the result; Load
// itself only fails when nothing could be loaded.
func (a *App) Load(ctx context.Context, opts LoadOptions) (*LoadResult, error) {
	cfg, err := a.loadConfig(opts.Config)
	if err != nil {
		return nil, err
	}
	sc, ok := cfg.Series[opts.Series]
	if !ok {
		return nil, zerr.With(domain.ErrUnknownSeries, "series", opts.Series)
	}
	src, err := a.newSource(cfg, sc.Source)
	if err != nil {
		return nil, err
	}
	series, err := source.NewSeries(opts.Series, sc, src)
	if err != nil {
		return nil, err
	}
	r, err := a.resolve(opts.Window, cfg.Render.Width)
	if err != nil {
		return nil, err
	}

	zoom := domain.ConstrainZoom(opts.Window.Zoom, src.ZoomLevels())
	tiles, err := series.LoadData(ctx, r, zoom)
	if err != nil {
		return nil, err
	}

	res := &LoadResult{Range: r, Failed: make(map[string]error)}
	var errs error
	for _, t := range tiles {
		res.Chunks = append(res.Chunks, t.Desc)
		if t.Err != nil {
			res.Failed[t.Desc.ID] = t.Err
			errs = errors.Join(errs, t.Err)
			continue
		}
		res.Rows = append(res.Rows, t.Result.Data...)
	}
	if len(res.Failed) == len(res.Chunks) && errs != nil {
		return nil, errs
	}
	for id, err := range res.Failed {
		a.logger.Warn("tile " + id + " failed: " + err.Error())
	}

	res.Rows = slices.DeleteFunc(res.Rows, func(row domain.Row) bool { return !inRange(row, r) })
	series.UpdateDataRange(r, zoom)
	res.Meta = series.Meta()
	return res, nil
}

func inRange(row domain.Row, r domain.Range) bool {
	if !row.MinTime.Valid {
		return false
	}
	t := row.MinTime.Decimal
	return !t.LessThan(r.Start.Decimal) && !t.GreaterThan(r.End.Decimal)
}

// ViewOptions configures View.
type ViewOptions struct {
	Config string
}

// View runs the widget in the terminal until the user quits or ctx ends.
func (a *App) View(ctx context.Context, opts ViewOptions) error {
	cfg, err := a.loadConfig(opts.Config)
	if err != nil {
		return err
	}
	scope, err := NewScope(ScopeOptions{
		Config:    cfg,
		Fetcher:   a.fetcher,
		Logger:    a.logger,
		Telemetry: a.telemetry,
		Clock:     a.clock,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewModel(ctx, scope)
	if a.disableTick {
		model = model.WithDisableTick()
	}
	optsTea := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.teaOptions...)
	surface := tui.NewRenderer(model, optsTea...)
	if _, err := scope.Mount(surface); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scope.Run(ctx) })
	g.Go(func() error {
		defer cancel()
		defer scope.Unmount()
		if err := surface.Start(ctx); err != nil {
			return err
		}
		err := surface.Wait()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
