// Package committable implements an editable, animatable scalar that can be
// replicated across execution contexts by replaying its sync messages.
//
// A Committable is not safe for concurrent use; it belongs to the goroutine
// that runs its frame scheduler.
package committable

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/timescope/internal/engine/event"
)

// DefaultDuration is the commit animation length when none is given.
const DefaultDuration = 500 * time.Millisecond

// Options configures a Committable.
type Options struct {
	Initial domain.Value
	Domain  domain.Domain
	// Lazy defers the value change of commits until their animation ends.
	Lazy bool
	// OnNull supplies the null value when none was set explicitly.
	OnNull func() decimal.Decimal
	Clock  clockwork.Clock
	Frames ports.FrameScheduler
}

// CommitOptions tunes one commit. The zero value commits the candidate with
// the automatic easing.
type CommitOptions struct {
	// Value overrides the candidate as the requested value.
	Value    *domain.Value
	Easing   domain.Easing
	Duration time.Duration
	Lazy     *bool
}

// Animation describes how SetValue transitions.
type Animation struct {
	Easing   domain.Easing
	Duration time.Duration
	Lazy     *bool
}

// Snapshot is the externally visible state.
type Snapshot struct {
	Value      domain.Value `json:"value"`
	Candidate  domain.Value `json:"candidate"`
	Committed  domain.Value `json:"committed"`
	Committing domain.Value `json:"committing"`
	Current    domain.Value `json:"current"`
	Editing    bool         `json:"editing"`
	Animating  bool         `json:"animating"`
}

// Committable is a user-editable value with begin/update/commit/restore
// semantics.
type Committable struct {
	lazy   bool
	onNull func() decimal.Decimal
	anim   animation

	value      domain.Value
	committed  domain.Value
	committing domain.Value
	current    domain.Value
	candidate  domain.Value
	requested  domain.Value
	nullValue  domain.Value
	domain     domain.Domain

	editing    bool
	animating  bool
	updated    bool
	cursorMode domain.CursorMode

	// Sync fires before every local transition with the message that
	// replays it.
	Sync event.Signal[domain.Sync]
	// ValueChanging fires when the candidate or value moves.
	ValueChanging event.Signal[domain.Value]
	// ValueChanged fires when value settles.
	ValueChanged event.Signal[domain.Value]
	// ValueAnimating fires on every interpolation step of current.
	ValueAnimating event.Signal[domain.Value]
	// Change counts state-affecting mutations.
	Change event.Revision
}

// New creates a Committable holding the initial value clamped to the domain.
func New(opts Options) *Committable {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Committable{
		lazy:       opts.Lazy,
		onNull:     opts.OnNull,
		anim:       animation{clock: clock, frames: opts.Frames},
		domain:     opts.Domain,
		cursorMode: domain.CursorCurrent,
	}
	v, _ := domain.Clamp(opts.Initial, c.domain, c.NullValue())
	c.value, c.committed, c.current, c.candidate, c.committing, c.requested = v, v, v, v, v, v
	return c
}

// Value is the last committed value visible to consumers.
func (c *Committable) Value() domain.Value { return c.value }

// Committed is the value the last finished commit settled on.
func (c *Committable) Committed() domain.Value { return c.committed }

// Committing is the target of the in-flight commit.
func (c *Committable) Committing() domain.Value { return c.committing }

// Current is the live interpolated value.
func (c *Committable) Current() domain.Value { return c.current }

// Candidate is the provisional value of the running edit.
func (c *Committable) Candidate() domain.Value { return c.candidate }

// Domain is the clamp range.
func (c *Committable) Domain() domain.Domain { return c.domain }

// Editing reports whether an edit has begun and not yet been committed.
func (c *Committable) Editing() bool { return c.editing }

// Animating reports whether a commit animation is running.
func (c *Committable) Animating() bool { return c.animating }

// CursorMode reports what Cursor follows.
func (c *Committable) CursorMode() domain.CursorMode { return c.cursorMode }

// Cursor is current or committing depending on the cursor mode.
func (c *Committable) Cursor() domain.Value {
	if c.cursorMode == domain.CursorCurrent {
		return c.current
	}
	return c.committing
}

// NullValue is substituted for null in comparisons.
func (c *Committable) NullValue() decimal.Decimal {
	if c.nullValue.Valid {
		return c.nullValue.Decimal
	}
	if c.onNull != nil {
		return c.onNull()
	}
	return decimal.Zero
}

// Snapshot returns the externally visible state.
func (c *Committable) Snapshot() Snapshot {
	return Snapshot{
		Value:      c.value,
		Candidate:  c.candidate,
		Committed:  c.committed,
		Committing: c.committing,
		Current:    c.current,
		Editing:    c.editing,
		Animating:  c.animating,
	}
}

func (c *Committable) clamp(v domain.Value) (domain.Value, bool) {
	return domain.Clamp(v, c.domain, c.NullValue())
}

func (c *Committable) emit(msg domain.Sync) {
	c.Sync.Emit(msg)
	c.HandleSync(msg)
}

// Begin starts an edit at the current value.
func (c *Committable) Begin() {
	c.BeginAt(c.current)
}

// BeginAt starts an edit with candidate clamped into the domain.
func (c *Committable) BeginAt(candidate domain.Value) {
	clamped, _ := c.clamp(candidate)
	c.emit(domain.Sync{Kind: domain.SyncBegin, Candidate: clamped, Requested: candidate})
}

// Update moves current toward candidate. When clamping engages only half the
// distance is covered, which resists dragging past the domain.
func (c *Committable) Update(candidate domain.Value) {
	null := c.NullValue()
	clamped, engaged := c.clamp(candidate)

	to := domain.Or(candidate, null)
	from := domain.Or(c.current, null)
	delta := to.Sub(from)
	if engaged {
		delta = delta.Div(decimal.NewFromInt(2))
	}
	current := from.Add(delta).Round(domain.Digits(to))

	c.emit(domain.Sync{
		Kind:      domain.SyncUpdate,
		Candidate: clamped,
		Requested: candidate,
		Current:   domain.Some(current),
	})
}

// Commit settles the edit, animating current toward the clamped target.
func (c *Committable) Commit(opts CommitOptions) {
	null := c.NullValue()

	divergent := c.requested
	if opts.Value != nil {
		divergent = *opts.Value
	}
	target, _ := c.clamp(divergent)

	cursorMode := c.cursorMode
	easing := opts.Easing
	if easing == domain.EasingAuto {
		cursorMode = domain.CursorTarget
		if c.updated {
			cursorMode = domain.CursorCurrent
		}
		easing = domain.EasingInOut
		if c.editing {
			easing = domain.EasingOut
		}
	}

	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}
	lazy := c.lazy
	if opts.Lazy != nil {
		lazy = *opts.Lazy
	}

	origin := domain.Or(c.current, null)
	a := domain.Or(target, null)
	b := domain.Or(divergent, null)

	var overshoot float64
	if !a.Equal(b) && !b.Equal(origin) && !a.Equal(origin) {
		alpha := b.Sub(origin).Div(a.Sub(origin)).InexactFloat64()
		overshoot = 1.5 * (alpha - 1)
	}

	c.emit(domain.Sync{
		Kind:      domain.SyncCommit,
		Candidate: target,
		Commit: &domain.CommitSync{
			Target:     target,
			Divergent:  divergent,
			Origin:     domain.Some(origin),
			Overshoot:  overshoot,
			Easing:     easing,
			Duration:   duration,
			CursorMode: cursorMode,
			Lazy:       lazy,
		},
	})
}

// SetValue runs a complete begin/commit to v unless v is already the value.
// A nil animation changes the value without animating.
func (c *Committable) SetValue(v domain.Value, anim *Animation) {
	if domain.Equal(c.value, v) {
		return
	}
	opts := CommitOptions{Easing: domain.EasingNone}
	if anim != nil {
		opts = CommitOptions{Easing: anim.Easing, Duration: anim.Duration, Lazy: anim.Lazy}
	}
	c.BeginAt(v)
	c.Commit(opts)
}

// Restore resets every field to the last committed value and stops any
// animation.
func (c *Committable) Restore() {
	d := c.domain
	c.emit(domain.Sync{Kind: domain.SyncRestore, Value: c.value, Domain: &d})
}

// SetNullValue sets the value substituted for null, e.g. a playback "now".
func (c *Committable) SetNullValue(v domain.Value) {
	c.emit(domain.Sync{Kind: domain.SyncSetNullValue, NullValue: v})
}

// SetDomain replaces the clamp range and re-clamps the value into it.
func (c *Committable) SetDomain(d domain.Domain) {
	if c.domain.Equal(d) {
		return
	}
	c.domain = d
	c.Restore()
	v, _ := c.clamp(c.value)
	c.SetValue(v, nil)
	c.Change.Bump()
}

// HandleSync applies msg. Local operations and replayed remote messages both
// go through here. Unknown kinds are ignored.
func (c *Committable) HandleSync(msg domain.Sync) {
	switch msg.Kind {
	case domain.SyncBegin:
		c.handleBegin(msg)
	case domain.SyncUpdate:
		c.handleUpdate(msg)
	case domain.SyncCommit:
		if msg.Commit != nil {
			c.handleCommit(*msg.Commit)
		}
	case domain.SyncRestore:
		c.handleRestore(msg)
	case domain.SyncSetNullValue:
		c.nullValue = msg.NullValue
		c.Change.Bump()
	}
}

func (c *Committable) handleBegin(msg domain.Sync) {
	c.anim.cancel()
	c.cursorMode = domain.CursorCurrent
	c.editing = true
	c.updated = false
	c.candidate = msg.Candidate
	c.requested = msg.Requested

	c.ValueChanging.Emit(c.candidate)
	c.Change.Bump()
}

func (c *Committable) handleUpdate(msg domain.Sync) {
	c.editing = true
	c.updated = true
	c.candidate = msg.Candidate
	c.requested = msg.Requested
	c.current = msg.Current

	c.ValueChanging.Emit(c.candidate)
	c.ValueAnimating.Emit(c.current)
	c.Change.Bump()
}

func (c *Committable) handleCommit(m domain.CommitSync) {
	target := m.Target
	null := c.NullValue()
	origin := domain.Or(m.Origin, domain.Or(c.current, null))

	changeValue := func() {
		c.value = target
		c.editing = false
		c.ValueChanging.Emit(c.value)
		c.ValueChanged.Emit(c.value)
		c.Change.Bump()
	}

	c.cursorMode = m.CursorMode
	c.candidate = target
	c.requested = target
	c.committing = target
	if !m.Lazy {
		changeValue()
	}

	to := 1.0
	if domain.Or(target, null).Equal(origin) {
		to = 0
	}

	c.animating = true
	c.anim.start(tween{
		easing:   curve(m.Easing, m.Overshoot),
		duration: m.Duration,
		from:     0,
		to:       to,
		update: func(v float64) {
			c.animating = true
			end := domain.Or(target, c.NullValue())
			c.current = domain.Some(end.Sub(origin).Mul(decimal.NewFromFloat(v)).Add(origin))
			c.ValueAnimating.Emit(c.current)
			c.Change.Bump()
		},
		done: func() {
			c.animating = false
			c.current = target
			if m.Lazy {
				changeValue()
			}
			c.committed = target
			c.ValueAnimating.Emit(c.current)
			c.Change.Bump()
		},
	})
}

func (c *Committable) handleRestore(msg domain.Sync) {
	c.anim.cancel()

	c.cursorMode = domain.CursorCurrent
	c.value = msg.Value
	c.candidate = msg.Value
	c.requested = msg.Value
	c.committed = msg.Value
	c.committing = msg.Value
	c.current = msg.Value
	c.editing = false
	c.animating = false
	c.updated = false
	if msg.Domain != nil {
		c.domain = *msg.Domain
	}
	c.Change.Bump()
}
