package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/timescope/internal/renderer"
)

// Renderer runs the model in a bubbletea program and serves as the
// widget's drawing surface.
//
// Draw never blocks the frame loop: it keeps only the newest frame in a
// single slot and one sender goroutine forwards it to the program. Frames
// drawn faster than the program consumes them are dropped, and the ones
// delivered arrive in order.
type Renderer struct {
	program *tea.Program
	model   *Model
	errCh   chan error
	send    func(tea.Msg)

	mu      sync.Mutex
	pending *renderer.Frame
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewRenderer creates a renderer for model.
func NewRenderer(model *Model, opts ...tea.ProgramOption) *Renderer {
	r := &Renderer{
		program: tea.NewProgram(model, opts...),
		model:   model,
		errCh:   make(chan error, 1),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	r.send = r.program.Send
	return r
}

// Start launches the program and the frame sender in background goroutines.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		_, err := r.program.Run()
		r.errCh <- err
	}()
	go r.sendFrames()
	return nil
}

// Stop asks the program to quit.
func (r *Renderer) Stop() error {
	r.once.Do(func() { close(r.done) })
	r.program.Quit()
	return nil
}

// Wait blocks until the program has terminated.
func (r *Renderer) Wait() error {
	return <-r.errCh
}

// Draw replaces the pending frame with f.
func (r *Renderer) Draw(f renderer.Frame) {
	r.mu.Lock()
	r.pending = &f
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Renderer) sendFrames() {
	for {
		select {
		case <-r.done:
			return
		case <-r.notify:
		}

		r.mu.Lock()
		f := r.pending
		r.pending = nil
		r.mu.Unlock()
		if f != nil {
			r.send(MsgFrame{Frame: *f})
		}
	}
}

// Program returns the underlying tea.Program for testing.
func (r *Renderer) Program() *tea.Program {
	return r.program
}
