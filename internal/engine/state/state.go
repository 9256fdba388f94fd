// Package state composes the time and zoom committables of a widget.
package state

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/timescope/internal/engine/committable"
	"go.trai.ch/timescope/internal/engine/event"
	"go.trai.ch/zerr"
)

// ZoomDuration is the default zoom transition length.
const ZoomDuration = 200 * time.Millisecond

// Options seeds a State.
type Options struct {
	Time      domain.Value
	TimeRange *domain.Domain
	Zoom      decimal.Decimal
	ZoomRange domain.Domain
	Clock     clockwork.Clock
	Frames    ports.FrameScheduler
}

// FromConfig builds Options from a resolved config.
func FromConfig(cfg domain.StateConfig, clock clockwork.Clock, frames ports.FrameScheduler) Options {
	tr := cfg.TimeRange
	return Options{
		Time:      cfg.Time,
		TimeRange: &tr,
		Zoom:      cfg.Zoom,
		ZoomRange: cfg.ZoomRange,
		Clock:     clock,
		Frames:    frames,
	}
}

// State owns the time committable (nullable, null meaning live "now") and
// the zoom committable.
type State struct {
	clock clockwork.Clock

	Time *committable.Committable
	Zoom *committable.Committable

	TimeChanging  event.Signal[domain.Value]
	TimeChanged   event.Signal[domain.Value]
	TimeAnimating event.Signal[domain.Value]
	ZoomChanging  event.Signal[float64]
	ZoomChanged   event.Signal[float64]
	ZoomAnimating event.Signal[float64]
	Change        event.Revision
}

// New creates a State.
func New(opts Options) *State {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	timeRange := domain.DefaultTimeRange
	if opts.TimeRange != nil {
		timeRange = *opts.TimeRange
	}

	s := &State{clock: clock}
	s.Time = committable.New(committable.Options{
		Initial: opts.Time,
		Domain:  timeRange,
		OnNull:  s.now,
		Clock:   clock,
		Frames:  opts.Frames,
	})
	s.Zoom = committable.New(committable.Options{
		Initial: domain.Some(opts.Zoom),
		Domain:  opts.ZoomRange,
		Clock:   clock,
		Frames:  opts.Frames,
	})

	s.Time.Change.On(func(uint64) { s.Change.Bump() })
	s.Time.ValueChanging.On(s.TimeChanging.Emit)
	s.Time.ValueChanged.On(s.TimeChanged.Emit)
	s.Time.ValueAnimating.On(s.TimeAnimating.Emit)

	s.Zoom.Change.On(func(uint64) { s.Change.Bump() })
	s.Zoom.ValueChanging.On(func(v domain.Value) { s.ZoomChanging.Emit(zoomFloat(v)) })
	s.Zoom.ValueChanged.On(func(v domain.Value) { s.ZoomChanged.Emit(zoomFloat(v)) })
	s.Zoom.ValueAnimating.On(func(v domain.Value) { s.ZoomAnimating.Emit(zoomFloat(v)) })

	return s
}

func zoomFloat(v domain.Value) float64 {
	return v.Decimal.InexactFloat64()
}

// Clock is the clock "now" is read from.
func (s *State) Clock() clockwork.Clock { return s.clock }

func (s *State) now() decimal.Decimal {
	return domain.FromTime(s.clock.Now())
}

// Now is the time committable's null value: playback time if set, else the
// clock.
func (s *State) Now() decimal.Decimal {
	return s.Time.NullValue()
}

// SetTime moves the time to v, which may be nil for live. The default
// animation is an out ease. Invalid input leaves the state untouched.
func (s *State) SetTime(v any, anim *committable.Animation) error {
	t, err := domain.ParseTime(v)
	if err != nil {
		return zerr.Wrap(err, "failed to set time")
	}
	if anim == nil {
		anim = &committable.Animation{Easing: domain.EasingOut}
	}
	s.Time.SetValue(t, anim)
	return nil
}

// SetZoom moves the zoom to v. By default zooming in is lazy, so repeated
// wheel steps don't snap the value before the transition settles.
func (s *State) SetZoom(v any, anim *committable.Animation) error {
	z, err := domain.ParseNumber(v)
	if err != nil {
		return zerr.Wrap(err, "failed to set zoom")
	}
	if anim == nil {
		lazy := s.Zoom.Value().Decimal.LessThan(z.Decimal)
		anim = &committable.Animation{Easing: domain.EasingLinear, Duration: ZoomDuration, Lazy: &lazy}
	}
	s.Zoom.SetValue(z, anim)
	return nil
}

// SetTimeRange sets the time domain; nil restores the default [open, now].
func (s *State) SetTimeRange(d *domain.Domain) error {
	r := domain.DefaultTimeRange
	if d != nil {
		r = *d
	}
	if err := validate(r, s.Now()); err != nil {
		return zerr.Wrap(err, "failed to set time range")
	}
	s.Time.SetDomain(r)
	return nil
}

// SetZoomRange sets the zoom domain.
func (s *State) SetZoomRange(d domain.Domain) error {
	if d[0].Kind == domain.BoundNull || d[1].Kind == domain.BoundNull {
		return zerr.With(domain.ErrInvalidDomain, "reason", "zoom bounds cannot track now")
	}
	if err := validate(d, decimal.Zero); err != nil {
		return zerr.Wrap(err, "failed to set zoom range")
	}
	s.Zoom.SetDomain(d)
	return nil
}

// SetPlaybackTime pins "now" to t; Null resumes the clock.
func (s *State) SetPlaybackTime(t domain.Value) {
	s.Time.SetNullValue(t)
}

// Restore re-broadcasts both committables so a freshly attached peer
// starts from the same state.
func (s *State) Restore() {
	s.Time.Restore()
	s.Zoom.Restore()
}

// HandleSync replays a peer's transitions.
func (s *State) HandleSync(msg domain.SyncMessage) {
	if msg.Time != nil {
		s.Time.HandleSync(*msg.Time)
	}
	if msg.Zoom != nil {
		s.Zoom.HandleSync(*msg.Zoom)
	}
}

func validate(d domain.Domain, null decimal.Decimal) error {
	lo, okLo := d[0].Resolve(null)
	hi, okHi := d[1].Resolve(null)
	if okLo && okHi && lo.GreaterThan(hi) {
		return zerr.With(zerr.With(domain.ErrInvalidDomain, "lower", lo.String()), "upper", hi.String())
	}
	return nil
}
