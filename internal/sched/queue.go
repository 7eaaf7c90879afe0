package sched

import "github.com/me/ossim/pkg/model"

// readyQueue is a singly-linked FIFO threaded through Process.Next, with
// head and tail anchors for O(1) append. Insertion order is preserved;
// extraction order is imposed by the selector, which walks the list.
type readyQueue struct {
	head *model.Process
	tail *model.Process
}

// isEmpty reports whether the queue holds no processes.
func (q *readyQueue) isEmpty() bool {
	return q.head == nil
}

// enqueue stamps p's enqueue time and appends it at the tail. p must not
// already be linked into the queue.
func (q *readyQueue) enqueue(p *model.Process, now model.Tick) {
	p.Next = nil
	p.EnqueueTime = now

	if q.head == nil {
		q.head = p
		q.tail = p
		return
	}
	q.tail.Next = p
	q.tail = p
}

// dequeue removes and returns the head, or nil if the queue is empty.
func (q *readyQueue) dequeue() *model.Process {
	if q.head == nil {
		return nil
	}
	p := q.head
	q.head = p.Next
	if q.head == nil {
		q.tail = nil
	}
	p.Next = nil
	return p
}

// extract unlinks p given its predecessor prev (nil means p is the head)
// and fixes up the tail when p was the tail.
func (q *readyQueue) extract(p, prev *model.Process) {
	if prev == nil {
		q.head = p.Next
	} else {
		prev.Next = p.Next
	}
	if q.tail == p {
		q.tail = prev
	}
	p.Next = nil
}

// extractBest walks the queue once, keeping the first process for which
// no later process is strictly better, removes it, and returns it.
// Returns nil on an empty queue. better must be a strict comparison so
// that ties resolve to the earlier queue position.
func (q *readyQueue) extractBest(better func(cand, best *model.Process) bool) *model.Process {
	if q.head == nil {
		return nil
	}

	best := q.head
	var prevBest *model.Process
	var prev *model.Process

	for p := q.head; p != nil; prev, p = p, p.Next {
		if p != best && better(p, best) {
			best = p
			prevBest = prev
		}
	}

	q.extract(best, prevBest)
	return best
}
