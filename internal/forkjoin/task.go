package forkjoin

import (
	"sync"
	"sync/atomic"
)

const (
	taskPending int32 = iota
	taskClaimed
)

// task is a unit of work which runs at most once. A task may sit in several
// places (a deque and a joiner's hands); whoever claims it first runs it.
type task struct {
	fn    func(*Worker)
	state atomic.Int32
	done  chan struct{}

	// Written before done is closed.
	panicked   bool
	panicValue any
}

func newTask(fn func(*Worker)) *task {
	return &task{
		fn:   fn,
		done: make(chan struct{}),
	}
}

func (t *task) claim() bool {
	return t.state.CompareAndSwap(taskPending, taskClaimed)
}

func (t *task) run(w *Worker) {
	t.panicked, t.panicValue = runRecovered(t.fn, w)
	close(t.done)
}

func runRecovered(fn func(*Worker), w *Worker) (panicked bool, value any) {
	defer func() {
		if v := recover(); v != nil {
			panicked, value = true, v
		}
	}()
	fn(w)
	return false, nil
}

// deque is a mutex-guarded double-ended queue of tasks. The owner works at
// the tail, thieves at the head.
type deque struct {
	mu    sync.Mutex
	tasks []*task
}

func (d *deque) push(t *task) {
	d.mu.Lock()
	d.tasks = append(d.tasks, t)
	d.mu.Unlock()
}

func (d *deque) pop() *task {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.tasks)
	if n == 0 {
		return nil
	}
	t := d.tasks[n-1]
	d.tasks[n-1] = nil
	d.tasks = d.tasks[:n-1]
	return t
}

func (d *deque) steal() *task {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.tasks) == 0 {
		return nil
	}
	t := d.tasks[0]
	d.tasks[0] = nil
	d.tasks = d.tasks[1:]
	return t
}
