package ports

// FrameScheduler runs callbacks on the owning context's next frame.
type FrameScheduler interface {
	// RequestFrame schedules fn for the next frame. The returned function
	// cancels the request if it has not run yet.
	RequestFrame(fn func()) (cancel func())
}
