package timeaxis

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// Kinetic fling defaults.
const (
	KineticDecay       = 0.005
	KineticMinVelocity = 0.05
	KineticWindow      = 100 * time.Millisecond
)

type sample struct {
	x, y float64
	at   time.Time
}

// Kinetic turns the last pointer samples of a drag into a fling distance.
type Kinetic struct {
	clock       clockwork.Clock
	decay       float64
	minVelocity float64
	window      time.Duration

	samples  []sample
	distance float64
	angle    float64
}

// NewKinetic creates a Kinetic with the default decay, velocity threshold
// and sample window.
func NewKinetic(clock clockwork.Clock) *Kinetic {
	return &Kinetic{
		clock:       clock,
		decay:       KineticDecay,
		minVelocity: KineticMinVelocity,
		window:      KineticWindow,
	}
}

// Begin drops all samples.
func (k *Kinetic) Begin() {
	k.samples = k.samples[:0]
}

// Update records a pointer position.
func (k *Kinetic) Update(x, y float64) {
	now := k.clock.Now()
	k.samples = append(k.samples, sample{x: x, y: y, at: now})
	k.trim(now)
}

func (k *Kinetic) trim(now time.Time) {
	cutoff := now.Add(-k.window)
	i := 0
	for i < len(k.samples)-1 && k.samples[i].at.Before(cutoff) {
		i++
	}
	k.samples = k.samples[i:]
}

// End reports whether the gesture ends in a fling. Distance and Angle are
// only meaningful after End returned true.
func (k *Kinetic) End() bool {
	if len(k.samples) < 2 {
		return false
	}
	now := k.clock.Now()
	last := k.samples[len(k.samples)-1]
	if last.at.Before(now.Add(-k.window)) {
		return false
	}
	k.trim(now)
	first := k.samples[0]

	dt := float64(last.at.Sub(first.at)) / float64(time.Millisecond)
	if dt < 1000.0/60 {
		return false
	}
	dx, dy := last.x-first.x, last.y-first.y
	velocity := math.Hypot(dx, dy) / dt
	if velocity < k.minVelocity {
		return false
	}

	k.distance = velocity / k.decay
	k.angle = math.Atan2(dy, dx)
	return true
}

// Distance is the fling length in pixels.
func (k *Kinetic) Distance() float64 { return k.distance }

// Angle is the fling direction in radians.
func (k *Kinetic) Angle() float64 { return k.angle }
