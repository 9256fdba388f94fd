package frame

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/timescope/internal/core/domain"
)

const taskBuffer = 256

// Loop is a single-goroutine executor. Posted tasks and frame callbacks all
// run on the goroutine that called Run, so state owned by the loop needs no
// locking.
type Loop struct {
	queue

	clock    clockwork.Clock
	interval time.Duration
	tasks    chan func()
	done     chan struct{}
	once     sync.Once

	hookMu sync.Mutex
	hooks  []func()
}

// NewLoop creates a loop ticking fps times per second.
func NewLoop(clock clockwork.Clock, fps int) *Loop {
	if fps <= 0 {
		fps = domain.DefaultRender.FPS
	}
	return &Loop{
		clock:    clock,
		interval: time.Second / time.Duration(fps),
		tasks:    make(chan func(), taskBuffer),
		done:     make(chan struct{}),
	}
}

// OnFrame registers fn to run on every frame after the requested callbacks.
func (l *Loop) OnFrame(fn func()) {
	l.hookMu.Lock()
	defer l.hookMu.Unlock()
	l.hooks = append(l.hooks, fn)
}

// Post queues fn to run on the loop. It returns false once the loop stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return domain.ErrChannelClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return domain.ErrChannelClosed
	}
}

// Run processes tasks and frames until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()
	defer l.once.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			fn()
		case <-ticker.Chan():
			l.frame()
		}
	}
}

// Done is closed after Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) frame() {
	for _, r := range l.drain() {
		r.fn()
	}

	l.hookMu.Lock()
	hooks := l.hooks
	l.hookMu.Unlock()
	for _, h := range hooks {
		h()
	}
}
