package navigation

import (
	"context"
)

// Dispatcher runs listener callbacks on an execution context chosen by the
// caller. Dispatch may block until there is room for fn and must give up when
// ctx is done. Listeners that call Pipeline.Stop need a Dispatcher that runs fn
// on a goroutine other than the caller of Dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, fn func()) error
}

// Loop is a Dispatcher whose callbacks run on whichever goroutine calls Run,
// so listeners can share that goroutine's state without locking
type Loop struct {
	tasks chan func()
}

// NewLoop creates a Loop that queues up to buffer callbacks before Dispatch blocks
func NewLoop(buffer int) *Loop {
	if buffer < 0 {
		buffer = 0
	}
	return &Loop{tasks: make(chan func(), buffer)}
}

// StartLoop runs a new Loop on its own goroutine until ctx is done
func StartLoop(ctx context.Context, buffer int) *Loop {
	l := NewLoop(buffer)
	go func() {
		_ = l.Run(ctx)
	}()
	return l
}

// Dispatch queues fn
func (l *Loop) Dispatch(ctx context.Context, fn func()) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.tasks <- fn:
		return nil
	}
}

// Run executes queued callbacks in order until ctx is done
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Pending is the number of callbacks waiting to run
func (l *Loop) Pending() int {
	return len(l.tasks)
}
