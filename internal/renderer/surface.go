package renderer

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/engine/datacache"
)

// Surface receives every rendered frame. Draw runs on the render loop and
// must not block.
type Surface interface {
	Draw(f Frame)
}

// Point is one row placed on the surface. X is in pixels along the time
// axis; Y is the value normalised by the track scale, NaN when the row has
// no drawable value.
type Point struct {
	X float64
	Y float64
}

// Track is the rendered state of one chart.
type Track struct {
	Key      string
	Meta     domain.SeriesMeta
	Floating int
	Points   []Point
	Tiles    []datacache.Tile
}

// Frame is everything a surface needs to draw one frame.
type Frame struct {
	Seq    uint64
	Size   domain.Size
	Time   domain.Value
	Now    decimal.Decimal
	Zoom   decimal.Decimal
	Range  domain.Range
	Cursor float64
	// Bounds are the pixel positions of the time domain; open sides sit
	// just off the axis.
	Bounds  [2]float64
	Editing bool
	Tracks  []Track
}

// Recorder is a Surface that keeps the frames it was given.
type Recorder struct {
	mu     sync.Mutex
	frames []Frame
}

// Draw records f.
func (r *Recorder) Draw(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

// Frames returns the recorded frames.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// Last returns the most recent frame.
func (r *Recorder) Last() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// valueField picks the value drawn for a row: "value" when present,
// otherwise the first valid field in name order.
func valueField(row domain.Row) domain.Value {
	if v, ok := row.Value["value"]; ok {
		return v
	}
	best, name := domain.Null, ""
	for k, v := range row.Value {
		if v.Valid && (name == "" || k < name) {
			best, name = v, k
		}
	}
	return best
}

func points(rows []domain.Row, x func(domain.Value) float64, y func(domain.Value) float64) []Point {
	out := make([]Point, 0, len(rows))
	for _, row := range rows {
		if !row.MinTime.Valid {
			continue
		}
		v := valueField(row)
		py := math.NaN()
		if v.Valid {
			py = y(v)
		}
		out = append(out, Point{X: x(row.MinTime), Y: py})
	}
	return out
}
