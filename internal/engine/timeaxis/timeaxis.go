// Package timeaxis maps between time and pixel positions and turns pointer
// gestures into time and zoom edits.
package timeaxis

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/engine/committable"
	"go.trai.ch/timescope/internal/engine/event"
	"go.trai.ch/timescope/internal/engine/state"
)

const (
	// openMargin is how far past the axis an open bound is drawn.
	openMargin = 100
	// pinchDeadZone is the minimum finger distance that changes the zoom.
	pinchDeadZone = 2
	// WheelSensitivity is the wheel delta per zoom step.
	WheelSensitivity = 200
	pinchDuration    = 200 * time.Millisecond
)

// View is the axis geometry for one of the committable's values.
type View struct {
	Time       domain.Value
	Zoom       decimal.Decimal
	Resolution decimal.Decimal
	Range      domain.Range
	P          float64
}

// TimeAxis owns a State and the axis geometry.
type TimeAxis struct {
	state   *state.State
	kinetic *Kinetic

	axisLength [2]float64
	disabled   bool
	dragging   bool
	pinch      *[2]decimal.Decimal

	// Sync relays every local time and zoom transition.
	Sync         event.Signal[domain.SyncMessage]
	ViewChanging event.Signal[struct{}]
	ViewChanged  event.Signal[struct{}]
	Change       event.Revision
}

// New creates a TimeAxis over a fresh State.
func New(opts state.Options) *TimeAxis {
	s := state.New(opts)
	clock := opts.Clock
	if clock == nil {
		clock = s.Clock()
	}
	a := &TimeAxis{state: s, kinetic: NewKinetic(clock)}

	s.Change.On(func(uint64) { a.Change.Bump() })
	s.Time.Sync.On(func(m domain.Sync) { a.Sync.Emit(domain.SyncMessage{Time: &m}) })
	s.Zoom.Sync.On(func(m domain.Sync) { a.Sync.Emit(domain.SyncMessage{Zoom: &m}) })

	changing := func(domain.Value) { a.ViewChanging.Emit(struct{}{}) }
	changed := func(domain.Value) { a.ViewChanged.Emit(struct{}{}) }
	s.Time.ValueChanging.On(changing)
	s.Zoom.ValueChanging.On(changing)
	s.Time.ValueChanged.On(changed)
	s.Zoom.ValueChanged.On(changed)
	return a
}

// State exposes the underlying time and zoom committables.
func (a *TimeAxis) State() *state.State { return a.state }

// Now is the time shown when the time value is live.
func (a *TimeAxis) Now() decimal.Decimal { return a.state.Now() }

// P maps a time to a pixel position; null is now.
func (a *TimeAxis) P(t domain.Value) float64 {
	z := a.state.Zoom.Current().Decimal
	centre := domain.Or(a.state.Time.Current(), a.Now())
	target := domain.Or(t, a.Now())
	return target.Sub(centre).Div(resolution(z)).InexactFloat64() + a.axisLength[0]
}

// PRange maps a range to pixels, drawing open sides just off the axis.
func (a *TimeAxis) PRange(r domain.Range) [2]float64 {
	out := [2]float64{-openMargin, a.axisLength[0] + a.axisLength[1] + openMargin}
	if r.Start.Valid {
		out[0] = a.P(r.Start)
	}
	if r.End.Valid {
		out[1] = a.P(r.End)
	}
	return out
}

// T maps a pixel position to a time, rounded to the resolution.
func (a *TimeAxis) T(p float64) decimal.Decimal {
	r := resolution(a.state.Zoom.Current().Decimal)
	centre := domain.Or(a.state.Time.Current(), a.Now())
	return r.Mul(decimal.NewFromFloat(p - a.axisLength[0])).Add(centre).Round(domain.Digits(r))
}

// RangeFor is the time range visible around centre at zoom.
func (a *TimeAxis) RangeFor(centre domain.Value, zoom decimal.Decimal) domain.Range {
	c := domain.Or(centre, a.Now())
	r := resolution(zoom)
	return domain.NewRange(
		c.Sub(r.Mul(decimal.NewFromFloat(a.axisLength[0]))),
		c.Add(r.Mul(decimal.NewFromFloat(a.axisLength[1]))),
	)
}

func resolution(zoom decimal.Decimal) decimal.Decimal {
	return domain.ResolutionFor(zoom.InexactFloat64())
}

func (a *TimeAxis) view(t, z domain.Value) View {
	return View{
		Time:       t,
		Zoom:       z.Decimal,
		Resolution: resolution(z.Decimal),
		Range:      a.RangeFor(t, z.Decimal),
		P:          a.P(t),
	}
}

// Current is the live interpolated view.
func (a *TimeAxis) Current() View {
	return a.view(a.state.Time.Current(), a.state.Zoom.Current())
}

// Candidate is the view of the running edit.
func (a *TimeAxis) Candidate() View {
	return a.view(a.state.Time.Candidate(), a.state.Zoom.Candidate())
}

// Value is the settled view consumers see.
func (a *TimeAxis) Value() View {
	return a.view(a.state.Time.Value(), a.state.Zoom.Value())
}

// Committing is the view the running commit heads to.
func (a *TimeAxis) Committing() View {
	return a.view(a.state.Time.Committing(), a.state.Zoom.Committing())
}

// Committed is the view of the last finished commit.
func (a *TimeAxis) Committed() View {
	return a.view(a.state.Time.Committed(), a.state.Zoom.Committed())
}

// Cursor is the time the playhead marks and its position.
func (a *TimeAxis) Cursor() (domain.Value, float64) {
	c := a.state.Time.Cursor()
	return c, a.P(c)
}

// Editing reports whether time or zoom is being edited.
func (a *TimeAxis) Editing() bool {
	return a.state.Time.Editing() || a.state.Zoom.Editing()
}

// Animating reports whether time or zoom is animating.
func (a *TimeAxis) Animating() bool {
	return a.state.Time.Animating() || a.state.Zoom.Animating()
}

// Dragging reports whether a drag gesture is active.
func (a *TimeAxis) Dragging() bool { return a.dragging }

// Disabled reports whether gestures are ignored.
func (a *TimeAxis) Disabled() bool { return a.disabled }

// SetDisabled toggles gesture handling.
func (a *TimeAxis) SetDisabled(v bool) { a.disabled = v }

// AxisLength is the pixel length left and right of the centre.
func (a *TimeAxis) AxisLength() [2]float64 { return a.axisLength }

// SetAxisLength resizes the axis.
func (a *TimeAxis) SetAxisLength(l [2]float64) {
	a.axisLength = l
	a.Change.Bump()
	a.ViewChanged.Emit(struct{}{})
	a.ViewChanging.Emit(struct{}{})
}

// Click moves the time to the clicked position.
func (a *TimeAxis) Click(p float64) {
	if a.disabled {
		return
	}
	a.state.Time.BeginAt(domain.Some(a.T(p)))
	a.state.Time.Commit(committable.CommitOptions{})
}

// DragStart begins a drag at p.
func (a *TimeAxis) DragStart(p float64) {
	if a.disabled {
		return
	}
	a.state.Time.BeginAt(domain.Some(a.T(p)))
	a.kinetic.Begin()
	a.dragging = true
}

// DragUpdate scrolls by delta pixels; p feeds the fling estimate.
func (a *TimeAxis) DragUpdate(p, delta float64) {
	if !a.dragging || a.disabled {
		return
	}
	a.state.Time.Update(domain.Some(a.T(a.Current().P - delta)))
	a.kinetic.Update(p, 0)
}

// DragEnd commits the drag, flinging when the pointer was still moving.
func (a *TimeAxis) DragEnd() {
	if !a.dragging || a.disabled {
		return
	}
	if a.kinetic.End() {
		delta := a.kinetic.Distance() * math.Cos(a.kinetic.Angle())
		v := domain.Some(a.T(a.Current().P - delta))
		a.state.Time.Commit(committable.CommitOptions{Value: &v})
	} else {
		a.state.Time.Commit(committable.CommitOptions{})
	}
	a.dragging = false
}

// DragCancel abandons the drag without committing.
func (a *TimeAxis) DragCancel() {
	a.dragging = false
}

// PinchStart anchors the times under both fingers.
func (a *TimeAxis) PinchStart(p, q float64) {
	if a.disabled {
		return
	}
	a.state.Time.Update(a.state.Time.Current())

	anchors := [2]decimal.Decimal{a.T(p), a.T(q)}
	if anchors[0].Equal(anchors[1]) {
		a.pinch = nil
		return
	}
	a.pinch = &anchors
	a.state.Zoom.BeginAt(a.state.Zoom.Current())
}

// PinchUpdate zooms so the anchored times stay under the fingers.
func (a *TimeAxis) PinchUpdate(p, q float64) {
	if a.disabled {
		return
	}
	if a.pinch == nil {
		a.PinchStart(p, q)
		return
	}
	if math.Abs(q-p) <= pinchDeadZone {
		return
	}
	r := a.pinch[1].Sub(a.pinch[0]).Div(decimal.NewFromFloat(q - p)).Abs()
	a.state.Zoom.Update(domain.Float(domain.ZoomFor(r)))
}

// PinchEnd commits the pinched zoom.
func (a *TimeAxis) PinchEnd() {
	if a.disabled || a.pinch == nil {
		return
	}
	a.pinch = nil
	a.state.Zoom.Commit(committable.CommitOptions{Easing: domain.EasingLinear, Duration: pinchDuration})
}

// Wheel zooms by a normalised wheel delta; scrolling down zooms out.
func (a *TimeAxis) Wheel(deltaY float64) error {
	if a.disabled {
		return nil
	}
	step := decimal.NewFromFloat(deltaY / WheelSensitivity)
	return a.state.SetZoom(a.state.Zoom.Committing().Decimal.Sub(step), nil)
}

// HandleSync replays a peer's transitions.
func (a *TimeAxis) HandleSync(msg domain.SyncMessage) {
	a.state.HandleSync(msg)
}
