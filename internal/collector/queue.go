package collector

import "sync"

// serialQueue runs tasks one at a time in submission order on a single
// worker goroutine. push never blocks.
type serialQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
	done   chan struct{}
}

func newSerialQueue() *serialQueue {
	q := &serialQueue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// push schedules task after every task pushed before it.
func (q *serialQueue) push(task func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrCollectorDone
	}
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return nil
}

// wait blocks until every task pushed so far has run.
func (q *serialQueue) wait() error {
	ch := make(chan struct{})
	if err := q.push(func() { close(ch) }); err != nil {
		return err
	}
	<-ch
	return nil
}

// close schedules final as the last task, rejects further pushes and waits
// for the worker to exit.
func (q *serialQueue) close(final func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrCollectorDone
	}
	q.tasks = append(q.tasks, final)
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()

	<-q.done
	return nil
}

func (q *serialQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task()
	}
}
