package committable

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/timescope/internal/core/ports"
)

type tween struct {
	easing   easingFunc
	duration time.Duration
	from, to float64
	update   func(v float64)
	done     func()
}

// animation drives at most one tween at a time on a frame scheduler.
type animation struct {
	clock  clockwork.Clock
	frames ports.FrameScheduler

	gen         uint64
	cancelFrame func()
}

// start cancels any running tween and starts tw. Tweens without easing or
// without distance finish synchronously.
func (a *animation) start(tw tween) {
	a.cancel()

	if tw.easing == nil || tw.from == tw.to || tw.duration <= 0 || a.frames == nil {
		tw.done()
		return
	}

	gen := a.gen
	started := a.clock.Now()

	var tick func()
	tick = func() {
		if gen != a.gen {
			return
		}
		elapsed := a.clock.Since(started)
		if elapsed >= tw.duration {
			a.cancelFrame = nil
			tw.done()
			return
		}
		t := tw.easing(float64(elapsed) / float64(tw.duration))
		tw.update(tw.from*(1-t) + tw.to*t)
		a.cancelFrame = a.frames.RequestFrame(tick)
	}
	a.cancelFrame = a.frames.RequestFrame(tick)
}

func (a *animation) cancel() {
	a.gen++
	if a.cancelFrame != nil {
		a.cancelFrame()
		a.cancelFrame = nil
	}
}

func (a *animation) running() bool {
	return a.cancelFrame != nil
}
