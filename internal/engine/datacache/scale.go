package datacache

import (
	"go.trai.ch/timescope/internal/core/domain"
)

// ScaleMeta are the extrema a value axis is normalised against.
type ScaleMeta struct {
	Min domain.Value
	Max domain.Value
	Amp domain.Value
}

// ScaleFunc maps a value onto [0, 1]. It reports false for values the scale
// cannot place.
type ScaleFunc func(domain.Value) (float64, bool)

// CreateScaleY builds a normalising scale, or returns nil when meta is
// degenerate. Symmetric scales divide by the amplitude; log scales need
// positive extrema.
func CreateScaleY(symmetric, logScale bool, meta ScaleMeta) ScaleFunc {
	lo, hi, amp := meta.Min, meta.Max, meta.Amp

	if !logScale {
		if !amp.Valid || !lo.Valid || !hi.Valid || amp.Decimal.IsZero() || lo.Decimal.Equal(hi.Decimal) {
			return nil
		}
		if symmetric {
			return func(v domain.Value) (float64, bool) {
				if !v.Valid {
					return 0, false
				}
				return v.Decimal.Div(amp.Decimal).InexactFloat64(), true
			}
		}
		span := hi.Decimal.Sub(lo.Decimal)
		return func(v domain.Value) (float64, bool) {
			if !v.Valid {
				return 0, false
			}
			return v.Decimal.Sub(lo.Decimal).Div(span).InexactFloat64(), true
		}
	}

	if !lo.Valid || !hi.Valid || !lo.Decimal.IsPositive() || !hi.Decimal.IsPositive() {
		return nil
	}
	minLog, maxLog := log10(lo.Decimal), log10(hi.Decimal)
	if minLog.Equal(maxLog) {
		return nil
	}
	denom := maxLog.Sub(minLog)
	return func(v domain.Value) (float64, bool) {
		if !v.Valid || !v.Decimal.IsPositive() {
			return 0, false
		}
		return log10(v.Decimal).Sub(minLog).Div(denom).InexactFloat64(), true
	}
}
