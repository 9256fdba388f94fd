package committable

import (
	"math"

	"github.com/fogleman/ease"
	"go.trai.ch/timescope/internal/core/domain"
)

// easingFunc maps progress t in [0,1) to an interpolation ratio.
type easingFunc func(t float64) float64

// curve returns the easing for kind, or nil when the transition should
// finish without animating. overshoot bends the out curve past its target.
func curve(kind domain.Easing, overshoot float64) easingFunc {
	switch kind {
	case domain.EasingLinear:
		return ease.Linear
	case domain.EasingInOut:
		return smootherstep
	case domain.EasingOut:
		if overshoot == 0 {
			return ease.OutCubic
		}
		return func(t float64) float64 {
			u := t - 1
			return ease.OutCubic(t) + overshoot*(math.Pow(u, 3)+u*u)
		}
	default:
		return nil
	}
}

func smootherstep(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}
