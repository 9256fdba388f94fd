package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// ResolutionBase is the zoom base: each zoom step halves the resolution.
	ResolutionBase = 2
	// DefaultChunkSize is the number of resolution units per tile.
	DefaultChunkSize = 256
	// ChunkStep is the zoom granularity used when no zoom levels are set.
	ChunkStep = 1
)

// Range is a time range. An invalid side is open.
type Range struct {
	Start Value `json:"start"`
	End   Value `json:"end"`
}

// NewRange builds a closed range.
func NewRange(start, end decimal.Decimal) Range {
	return Range{Start: Some(start), End: Some(end)}
}

// Bounded reports whether both sides are set.
func (r Range) Bounded() bool {
	return r.Start.Valid && r.End.Valid
}

// Equal reports whether both sides match.
func (r Range) Equal(o Range) bool {
	return Equal(r.Start, o.Start) && Equal(r.End, o.End)
}

func (r Range) String() string {
	side := func(v Value) string {
		if !v.Valid {
			return "~"
		}
		return v.Decimal.String()
	}
	return "[" + side(r.Start) + ", " + side(r.End) + "]"
}

// ChunkDesc describes one tile of the time axis at a zoom level.
type ChunkDesc struct {
	ID         string          `json:"id"`
	Seq        int64           `json:"seq"`
	Range      Range           `json:"range"`
	Resolution decimal.Decimal `json:"resolution"`
	Zoom       float64         `json:"zoom"`
	// ExpiresAt is zero when the tile never expires.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the descriptor's expiry has passed at now.
func (c ChunkDesc) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ResolutionFor returns base^(-zoom). Integral zooms are exact.
func ResolutionFor(zoom float64) decimal.Decimal {
	whole := math.Floor(zoom)
	frac := zoom - whole
	k := int64(whole)

	var r decimal.Decimal
	if k >= 0 {
		// 2^-k == 5^k * 10^-k
		r = decimal.NewFromInt(5).Pow(decimal.NewFromInt(k)).Shift(int32(-k))
	} else {
		r = decimal.NewFromInt(ResolutionBase).Pow(decimal.NewFromInt(-k))
	}
	if frac != 0 {
		r = r.Mul(decimal.NewFromFloat(math.Pow(ResolutionBase, -frac)))
	}
	return r
}

// ZoomFor is the inverse of ResolutionFor.
func ZoomFor(resolution decimal.Decimal) float64 {
	return -math.Log(resolution.InexactFloat64()) / math.Log(ResolutionBase)
}

// ConstrainZoom snaps zoom to the nearest of levels, or floors it to the
// chunk step when no levels are configured.
func ConstrainZoom(zoom float64, levels []float64) float64 {
	if len(levels) > 0 {
		best := levels[0]
		for _, l := range levels[1:] {
			if math.Abs(l-zoom) < math.Abs(best-zoom) {
				best = l
			}
		}
		return best
	}
	floored := math.Floor(zoom/ChunkStep) * ChunkStep
	return math.Round(floored*100) / 100
}

// FormatZoom renders a zoom level the way chunk ids embed it.
func FormatZoom(zoom float64) string {
	return strconv.FormatFloat(zoom, 'f', -1, 64)
}

// CreateChunkList enumerates the tiles covering r at zoom. The list runs one
// chunk past the end of r. An open range or a non-positive chunk duration
// yields a single unbounded chunk.
func CreateChunkList(r Range, zoom float64, chunkSize int) []ChunkDesc {
	resolution := ResolutionFor(zoom)
	duration := resolution.Mul(decimal.NewFromInt(int64(chunkSize)))
	z := FormatZoom(zoom)

	if !r.Bounded() || !duration.IsPositive() {
		return []ChunkDesc{{
			ID:         "z" + z,
			Seq:        0,
			Range:      r,
			Resolution: resolution,
			Zoom:       zoom,
		}}
	}

	limit := r.End.Decimal.Add(duration)
	var chunks []ChunkDesc
	for t := r.Start.Decimal; t.LessThanOrEqual(limit); t = t.Add(duration) {
		seq := floorDiv(t, duration)
		s := decimal.NewFromInt(seq)
		chunks = append(chunks, ChunkDesc{
			ID:         fmt.Sprintf("z%s:seq%d", z, seq),
			Seq:        seq,
			Range:      NewRange(duration.Mul(s), duration.Mul(s.Add(decimal.NewFromInt(1)))),
			Resolution: resolution,
			Zoom:       zoom,
		})
	}
	return chunks
}

func floorDiv(a, b decimal.Decimal) int64 {
	q, rem := a.QuoRem(b, 0)
	if rem.Sign() != 0 && rem.Sign() != b.Sign() {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q.IntPart()
}
