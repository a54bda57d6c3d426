// Package forkjoin provides a work-stealing pool for recursive fork/join tasks.
//
// Each worker owns a deque. A worker pushes and pops its own tasks at the tail
// and steals from the head of other workers' deques when it runs dry. A task
// joining a forked child never parks its worker while there is other work to
// do: it either runs the child itself or helps with whatever is ready.
//
// Thread safety: Pool is safe for concurrent use. A Worker must only be used
// from within the task it was handed to.
package forkjoin

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrPoolClosed is returned by Invoke after Close.
	ErrPoolClosed = errors.New("forkjoin: pool is closed")

	// ErrTaskPanic wraps the value of a panic raised by any task of an Invoke.
	ErrTaskPanic = errors.New("forkjoin: task panicked")
)

// Pool is a fixed set of worker goroutines sharing fork/join tasks.
type Pool struct {
	workers []*Worker

	// inject holds root tasks submitted from outside the pool.
	inject deque

	// wake is closed and replaced whenever new work is pushed.
	wakeMu sync.Mutex
	wake   chan struct{}

	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	executed atomic.Uint64
	stolen   atomic.Uint64
}

// Stats counts the tasks a pool has run.
type Stats struct {
	Executed uint64
	Stolen   uint64
}

// NewPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		workers: make([]*Worker, workers),
		wake:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for i := range p.workers {
		p.workers[i] = &Worker{id: i, pool: p}
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for _, w := range p.workers {
		go w.loop()
	}

	return p
}

// Invoke runs fn on the pool and waits until it, and every task it joined,
// has finished. A panic in any task is returned as an error wrapping
// ErrTaskPanic.
//
// If ctx is cancelled before a worker picks the task up, Invoke returns
// ctx.Err() without running it. Once started, fn runs to completion; it should
// observe ctx itself.
func (p *Pool) Invoke(ctx context.Context, fn func(*Worker)) error {
	if !p.running.Load() {
		return ErrPoolClosed
	}

	t := newTask(fn)
	p.inject.push(t)
	p.signal()

	select {
	case <-t.done:
	case <-ctx.Done():
		if t.claim() {
			return ctx.Err()
		}
		<-t.done
	}

	if t.panicked {
		return fmt.Errorf("%w: %v", ErrTaskPanic, t.panicValue)
	}
	return nil
}

// Close stops the workers. It must not be called while an Invoke is in
// progress. Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return len(p.workers)
}

// IsRunning returns true until Close is called.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// Stats returns the number of tasks run so far, and how many of them were
// stolen from another worker's deque.
func (p *Pool) Stats() Stats {
	return Stats{
		Executed: p.executed.Load(),
		Stolen:   p.stolen.Load(),
	}
}

func (p *Pool) signal() {
	p.wakeMu.Lock()
	close(p.wake)
	p.wake = make(chan struct{})
	p.wakeMu.Unlock()
}

// wakeChan returns the channel closed by the next signal. Take it before
// looking for work so that a push after the look is not missed.
func (p *Pool) wakeChan() <-chan struct{} {
	p.wakeMu.Lock()
	defer p.wakeMu.Unlock()
	return p.wake
}
