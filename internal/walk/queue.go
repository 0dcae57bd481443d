package walk

import "sync"

// dirQueue is an unbounded LIFO of directories with a pending count covering
// both queued and in-flight entries. Workers never block on push, so a worker
// can enqueue children while every other worker is busy.
type dirQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []string
	pending int
	closed  bool
}

func newDirQueue() *dirQueue {
	q := &dirQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *dirQueue) push(dir string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending++
	q.items = append(q.items, dir)
	q.cond.Signal()
}

// pop blocks until a directory is available or the queue is closed.
func (q *dirQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return "", false
	}
	last := len(q.items) - 1
	dir := q.items[last]
	q.items = q.items[:last]
	return dir, true
}

// done marks one popped directory as fully processed. The queue closes once
// nothing is queued or in flight.
func (q *dirQueue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending--
	if q.pending == 0 {
		q.closed = true
		q.cond.Broadcast()
	}
}

// abort wakes every waiting worker and drops queued work.
func (q *dirQueue) abort() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}
