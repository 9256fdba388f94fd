package domain

import "time"

// Easing names an animation curve.
type Easing string

const (
	// EasingAuto lets the committable pick: out while editing, in-out otherwise.
	EasingAuto Easing = ""
	// EasingNone finishes the transition synchronously.
	EasingNone Easing = "none"
	// EasingLinear interpolates linearly.
	EasingLinear Easing = "linear"
	// EasingInOut is a smootherstep curve.
	EasingInOut Easing = "in-out"
	// EasingOut decelerates, overshooting by the commit's overshoot factor.
	EasingOut Easing = "out"
)

// CursorMode selects what a committable's cursor follows.
type CursorMode string

const (
	// CursorCurrent tracks the interpolated value.
	CursorCurrent CursorMode = "current"
	// CursorTarget tracks the commit target.
	CursorTarget CursorMode = "target"
)

// SyncKind tags a committable sync message.
type SyncKind string

const (
	// SyncBegin opens an edit at Candidate.
	SyncBegin SyncKind = "begin"
	// SyncUpdate moves the candidate of an open edit.
	SyncUpdate SyncKind = "update"
	// SyncCommit starts the animation described by Commit.
	SyncCommit SyncKind = "commit"
	// SyncRestore replaces the whole state with Value and Domain.
	SyncRestore SyncKind = "restore"
	// SyncSetNullValue sets the value substituted for null.
	SyncSetNullValue SyncKind = "set:nullvalue"
)

// CommitSync is the replayable part of a commit.
type CommitSync struct {
	Target     Value         `json:"target"`
	Divergent  Value         `json:"divergent"`
	Origin     Value         `json:"origin"`
	Overshoot  float64       `json:"overshoot"`
	Easing     Easing        `json:"easing"`
	Duration   time.Duration `json:"duration"`
	CursorMode CursorMode    `json:"cursorMode"`
	Lazy       bool          `json:"lazy"`
}

// Sync describes one committable transition. Only the fields relevant to
// Kind are set.
type Sync struct {
	Kind      SyncKind    `json:"type"`
	Candidate Value       `json:"candidate"`
	Requested Value       `json:"requested"`
	Current   Value       `json:"current"`
	Commit    *CommitSync `json:"commit,omitempty"`
	Value     Value       `json:"value"`
	Domain    *Domain     `json:"domain,omitempty"`
	NullValue Value       `json:"nullValue"`
}

// SyncMessage carries time and/or zoom transitions between contexts.
// Origin is the channel endpoint that produced the transitions; a context
// drops messages carrying its own origin so a relayed transition is never
// replayed where it started.
type SyncMessage struct {
	Origin string `json:"origin,omitempty"`
	Time   *Sync  `json:"time,omitempty"`
	Zoom   *Sync  `json:"zoom,omitempty"`
}
