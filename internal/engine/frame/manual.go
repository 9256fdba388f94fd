package frame

// Manual is a FrameScheduler advanced explicitly, for tests and headless
// stepping.
type Manual struct {
	queue
}

// NewManual creates an empty Manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// Step runs one frame and reports how many callbacks ran.
func (m *Manual) Step() int {
	reqs := m.drain()
	for _, r := range reqs {
		r.fn()
	}
	return len(reqs)
}

// Pending returns the number of callbacks waiting for the next frame.
func (m *Manual) Pending() int {
	return m.len()
}
