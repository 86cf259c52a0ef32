package server

import (
	"sync"
)

// Executor runs callback deliveries. Jobs submitted to one executor must
// run one at a time in submission order.
type Executor interface {
	Submit(job func())
}

// serialExecutor is a single worker goroutine with an unbounded queue.
type serialExecutor struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

func newSerialExecutor() *serialExecutor {
	e := &serialExecutor{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go e.run()
	return e
}

// Submit queues job. Jobs submitted after close are discarded.
func (e *serialExecutor) Submit(job func()) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, job)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *serialExecutor) run() {
	defer close(e.done)
	for range e.wake {
		for {
			e.mu.Lock()
			if len(e.queue) == 0 {
				closed := e.closed
				e.mu.Unlock()
				if closed {
					return
				}
				break
			}
			job := e.queue[0]
			e.queue[0] = nil
			e.queue = e.queue[1:]
			e.mu.Unlock()
			job()
		}
	}
}

// close discards queued jobs and stops the worker once the running job,
// if any, returns. It may be called from a job.
func (e *serialExecutor) close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.queue = nil
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}
