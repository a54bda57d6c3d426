package forkjoin

// Worker is a pool goroutine. Tasks receive the Worker running them and use
// it to fork subtasks.
type Worker struct {
	id    int
	pool  *Pool
	queue deque
}

// ID returns the worker's index in [0, Pool.Workers()).
func (w *Worker) ID() int {
	return w.id
}

// InvokeAll runs a and b, possibly in parallel, and returns once both have
// completed. b is forked onto this worker's deque where idle workers may steal
// it; a runs on the calling goroutine.
//
// If either function panics, InvokeAll re-panics with that value after both
// have finished.
func (w *Worker) InvokeAll(a, b func(*Worker)) {
	tb := newTask(b)
	w.queue.push(tb)
	w.pool.signal()

	aPanicked, aValue := runRecovered(a, w)

	w.join(tb)

	if aPanicked {
		panic(aValue)
	}
	if tb.panicked {
		panic(tb.panicValue)
	}
}

func (w *Worker) loop() {
	defer w.pool.wg.Done()

	for {
		wake := w.pool.wakeChan()

		if t := w.find(); t != nil {
			w.execute(t)
			continue
		}

		select {
		case <-w.pool.done:
			return
		case <-wake:
		}
	}
}

// join waits for t. An unclaimed t runs inline; otherwise the worker executes
// other ready tasks until t is done.
func (w *Worker) join(t *task) {
	if t.claim() {
		w.pool.executed.Add(1)
		t.run(w)
		return
	}

	for {
		wake := w.pool.wakeChan()

		select {
		case <-t.done:
			return
		default:
		}

		if next := w.find(); next != nil {
			w.execute(next)
			continue
		}

		select {
		case <-t.done:
			return
		case <-wake:
		}
	}
}

// find looks for a task: own deque first, then the injection queue, then the
// other workers.
func (w *Worker) find() *task {
	if t := w.queue.pop(); t != nil {
		return t
	}

	if t := w.pool.inject.steal(); t != nil {
		return t
	}

	n := len(w.pool.workers)
	for i := 1; i < n; i++ {
		victim := w.pool.workers[(w.id+i)%n]
		if t := victim.queue.steal(); t != nil {
			w.pool.stolen.Add(1)
			return t
		}
	}

	return nil
}

// execute runs t unless another worker, or a joiner, already claimed it.
func (w *Worker) execute(t *task) {
	if !t.claim() {
		return
	}
	w.pool.executed.Add(1)
	t.run(w)
}
