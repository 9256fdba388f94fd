package datacache

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/engine/committable"
)

const metaDuration = 200 * time.Millisecond

// SeriesCache is a Cache whose value axis follows the series meta. The
// amplitude and base of the axis are Committables, so rescaling animates.
//
// UpdateMeta, ScaleY and Floating must run on the goroutine that owns
// Options.Frames.
type SeriesCache struct {
	*Cache

	amp  *committable.Committable
	base *committable.Committable
}

// NewSeries creates a SeriesCache.
func NewSeries(opts Options) *SeriesCache {
	c := New(opts)
	copts := committable.Options{
		Initial: domain.Null,
		Domain:  domain.Unbounded,
		Clock:   c.clock,
		Frames:  opts.Frames,
	}
	s := &SeriesCache{
		Cache: c,
		amp:   committable.New(copts),
		base:  committable.New(copts),
	}
	s.amp.Change.On(func(uint64) { c.Change.Bump() })
	s.base.Change.On(func(uint64) { c.Change.Bump() })
	return s
}

// UpdateMeta stores meta and moves the axis towards its extrema.
func (s *SeriesCache) UpdateMeta(meta domain.SeriesMeta) {
	if meta.Empty() {
		return
	}

	var amp, base domain.Value
	if meta.Scale == domain.ScaleLog {
		amp, base = domain.Some(decimal.Zero), domain.Some(decimal.Zero)
		if meta.PMax.Valid {
			amp = domain.Some(log10(meta.PMax.Decimal))
		}
		if meta.PMin.Valid {
			base = domain.Some(log10(meta.PMin.Decimal))
		}
	} else {
		zero := meta.Zero
		if !zero.Valid && meta.PMin.Valid && meta.NMin.Valid {
			zero = domain.Some(decimal.Zero)
		}
		amp = pickAbs(func(a, b decimal.Decimal) bool { return a.GreaterThan(b) }, meta.PMax, meta.NMin, zero)
		base = zero
		if !base.Valid {
			base = pickAbs(func(a, b decimal.Decimal) bool { return a.LessThan(b) }, meta.PMin, meta.NMax)
		}
	}

	if amp.Valid && !amp.Decimal.IsZero() {
		s.amp.SetValue(amp, transition(s.amp))
	}
	if base.Valid {
		s.base.SetValue(base, transition(s.base))
	}
	s.SetMeta(meta)
}

// transition animates once a first value was committed.
func transition(c *committable.Committable) *committable.Animation {
	if !c.Committed().Valid {
		return nil
	}
	return &committable.Animation{Easing: domain.EasingLinear, Duration: metaDuration}
}

// pickAbs returns the first valid value whose magnitude wins under better.
func pickAbs(better func(a, b decimal.Decimal) bool, vs ...domain.Value) domain.Value {
	best := domain.Null
	for _, v := range vs {
		if !v.Valid {
			continue
		}
		if !best.Valid || better(v.Decimal.Abs(), best.Decimal.Abs()) {
			best = v
		}
	}
	return best
}

func log10(d decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(math.Log10(d.InexactFloat64()))
}

func halfSign(v domain.Value) float64 {
	if !v.Valid {
		return 0
	}
	return float64(v.Decimal.Sign()) * 0.5
}

// ScaleY maps values to the unit axis using the animated amplitude and
// base, or their candidates (the targets) when useCandidate is set.
func (s *SeriesCache) ScaleY(useCandidate bool) func(domain.Value) float64 {
	amp, base := s.amp.Current(), s.base.Current()
	if useCandidate {
		amp, base = s.amp.Candidate(), s.base.Candidate()
	}
	if !amp.Valid || !base.Valid || amp.Decimal.IsZero() {
		return halfSign
	}
	scale := amp.Decimal.Abs().Sub(base.Decimal.Abs())
	if scale.IsZero() {
		return halfSign
	}

	if s.Meta().Scale == domain.ScaleLog {
		return func(v domain.Value) float64 {
			if !v.Valid || !v.Decimal.IsPositive() {
				return math.NaN()
			}
			return log10(v.Decimal).Sub(base.Decimal).Div(scale).InexactFloat64()
		}
	}
	return func(v domain.Value) float64 {
		if !v.Valid {
			return 0
		}
		return v.Decimal.Sub(base.Decimal).Div(scale).InexactFloat64()
	}
}

// Floating is the side of zero the axis base sits on: -1, 0 or 1.
func (s *SeriesCache) Floating() int {
	amp, base := s.amp.Current(), s.base.Current()
	if !amp.Valid || !base.Valid {
		return 0
	}
	return base.Decimal.Sign()
}
