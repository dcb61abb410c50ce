// README: Serialized task loop; every engine mutation of a session runs on its single goroutine.
package session

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("session closed")

// Loop runs posted tasks one at a time in FIFO order. The queue is
// unbounded, so Post never blocks.
type Loop struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

func NewLoop() *Loop {
	l := &Loop{done: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Run drains the queue until Close. Tasks already queued when Close is
// called still run.
func (l *Loop) Run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
	}
}

// Post queues fn. It reports false when the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)
	l.cond.Signal()
	return true
}

// Do queues fn and waits for it to run. It must not be called from a task.
func (l *Loop) Do(fn func()) error {
	ran := make(chan struct{})
	if !l.Post(func() {
		defer close(ran)
		fn()
	}) {
		return ErrClosed
	}
	<-ran
	return nil
}

// Close stops accepting tasks and waits for queued ones to finish. It
// requires Run to have been started.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.cond.Broadcast()
	}
	l.mu.Unlock()
	<-l.done
}
