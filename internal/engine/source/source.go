// Package source loads raw records tile by tile and parses them into series
// rows.
package source

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/timescope/internal/engine/event"
	"go.trai.ch/timescope/internal/engine/lru"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxChunks bounds the chunks a Source keeps.
	MaxChunks = 1000
	// MaxParallelLoads bounds the tiles LoadData fetches at once.
	MaxParallelLoads = 8
)

var placeholder = regexp.MustCompile(`\{[a-zA-Z]+\}`)

// Options configures a Source. Exactly one of Loader, Data or URL is used,
// in that order.
type Options struct {
	Name string

	Loader LoaderFunc
	Data   Records
	URL    string

	// ChunkSize is nil or 0 for the default.
	ChunkSize  *int
	ZoomLevels []float64
	// TTL is the default expiry of loaded chunks; loaders may override it.
	TTL time.Duration

	Fetcher   ports.Fetcher
	Logger    ports.Logger
	Telemetry ports.Telemetry
	Clock     clockwork.Clock
}

// Result is one tile of raw records, or the error that tile failed with.
type Result struct {
	Desc    domain.ChunkDesc
	Records Records
	Err     error
}

// Source caches the chunks of one record feed.
type Source struct {
	name       string
	loader     LoaderFunc
	chunkSize  int
	zoomLevels []float64
	ttl        time.Duration
	clock      clockwork.Clock
	telemetry  ports.Telemetry

	alloc  sync.Mutex
	chunks *lru.Cache[string, *Chunk]

	// Change fires when chunks are expired.
	Change event.Revision
}

// New creates a Source.
func New(opts Options) (*Source, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	chunks, err := lru.New[string, *Chunk](MaxChunks)
	if err != nil {
		return nil, err
	}
	s := &Source{
		name:       opts.Name,
		chunkSize:  domain.DefaultChunkSize,
		zoomLevels: opts.ZoomLevels,
		ttl:        opts.TTL,
		clock:      clock,
		telemetry:  opts.Telemetry,
		chunks:     chunks,
	}
	if opts.ChunkSize != nil && *opts.ChunkSize != 0 {
		s.chunkSize = *opts.ChunkSize
	}

	switch {
	case opts.Loader != nil:
		s.loader = opts.Loader
	case opts.Data != nil:
		s.unbounded()
		data := opts.Data
		s.loader = func(context.Context, domain.ChunkDesc, *Expiry) (Records, error) {
			return data, nil
		}
	case opts.URL != "":
		if opts.Fetcher == nil {
			return nil, zerr.With(domain.ErrNoLoader, "source", opts.Name)
		}
		s.loader = urlLoader(opts.URL, opts.Fetcher, opts.Logger)
		if !placeholder.MatchString(opts.URL) {
			s.unbounded()
		}
	default:
		return nil, zerr.With(domain.ErrNoLoader, "source", opts.Name)
	}
	return s, nil
}

// unbounded turns the source into a single tile covering the whole axis.
func (s *Source) unbounded() {
	s.zoomLevels = []float64{0}
	s.chunkSize = 0
}

func urlLoader(tmpl string, fetcher ports.Fetcher, logger ports.Logger) LoaderFunc {
	return func(ctx context.Context, desc domain.ChunkDesc, _ *Expiry) (Records, error) {
		return fetcher.Fetch(ctx, ExpandURL(tmpl, desc, logger))
	}
}

// ExpandURL substitutes the tile placeholders of tmpl: {z} {zoom},
// {r} {resolution}, {s} {start} and {e} {end}. Unknown placeholders are
// kept and reported to logger.
func ExpandURL(tmpl string, desc domain.ChunkDesc, logger ports.Logger) string {
	side := func(v domain.Value) string {
		if !v.Valid {
			return ""
		}
		return v.Decimal.String()
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		switch m[1 : len(m)-1] {
		case "z", "zoom":
			return domain.FormatZoom(desc.Zoom)
		case "r", "resolution":
			return desc.Resolution.String()
		case "s", "start":
			return side(desc.Range.Start)
		case "e", "end":
			return side(desc.Range.End)
		default:
			if logger != nil {
				logger.Warn("unknown template placeholder in url: " + m)
			}
			return m
		}
	})
}

// Name identifies the source.
func (s *Source) Name() string { return s.name }

// ChunkSize is the number of resolution units per tile, 0 when unbounded.
func (s *Source) ChunkSize() int { return s.chunkSize }

// ZoomLevels are the zoom levels tiles are quantized to.
func (s *Source) ZoomLevels() []float64 { return s.zoomLevels }

// Chunk returns the cached chunk for desc, allocating it on first use.
func (s *Source) Chunk(desc domain.ChunkDesc) *Chunk {
	s.alloc.Lock()
	defer s.alloc.Unlock()
	if c, ok := s.chunks.Get(desc.ID); ok {
		return c
	}
	c := newChunk(desc, s.loader, s.clock, s.ttl)
	s.chunks.Set(desc.ID, c)
	return c
}

// LoadChunk loads the records of desc, reusing a fresh cached chunk. With
// telemetry, each call is recorded as "load <source>/<chunk>".
func (s *Source) LoadChunk(ctx context.Context, desc domain.ChunkDesc) (Result, error) {
	c := s.Chunk(desc)

	var vtx ports.Vertex
	if s.telemetry != nil {
		ctx, vtx = s.telemetry.Record(ctx, "load "+s.name+"/"+desc.ID)
		if !c.Expired(s.clock.Now()) {
			vtx.Cached()
		}
	}

	records, err := c.Load(ctx, false)
	if err != nil {
		err = zerr.With(zerr.Wrap(err, "failed to load chunk"), "chunk", desc.ID)
	}
	if vtx != nil {
		vtx.Complete(err)
	}
	if err != nil {
		return Result{Desc: desc, Err: err}, err
	}
	return Result{Desc: c.Desc(), Records: records}, nil
}

// LoadData loads every tile covering r at zoom, at most MaxParallelLoads at
// a time. Results are in tile order and tiles fail independently: a failed
// tile carries its error in Result.Err. LoadData itself only fails when ctx
// ends.
func (s *Source) LoadData(ctx context.Context, r domain.Range, zoom float64) ([]Result, error) {
	zoom = domain.ConstrainZoom(zoom, s.zoomLevels)
	descs := domain.CreateChunkList(r, zoom, s.chunkSize)

	results := make([]Result, len(descs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelLoads)
	for i, desc := range descs {
		g.Go(func() error {
			results[i], _ = s.LoadChunk(gctx, desc)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ExpireChunks invalidates the cached chunks overlapping r, or every chunk
// when r is nil.
func (s *Source) ExpireChunks(r *domain.Range) {
	for _, c := range s.chunks.All() {
		if r == nil || overlaps(c.desc.Range, *r) {
			c.Invalidate()
		}
	}
	s.Change.Bump()
}

func overlaps(a, b domain.Range) bool {
	if a.End.Valid && b.Start.Valid && !a.End.Decimal.GreaterThan(b.Start.Decimal) {
		return false
	}
	if a.Start.Valid && b.End.Valid && !a.Start.Decimal.LessThan(b.End.Decimal) {
		return false
	}
	return true
}
