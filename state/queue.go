package state

import "github.com/justapithecus/dredge/types"

// Queue is the four-way partition of item identifiers driving detail-fetch
// work. The four sets are pairwise disjoint; pending is FIFO-ordered.
type Queue struct {
	pending    []types.ItemID
	pendingSet map[types.ItemID]struct{}
	inProgress map[types.ItemID]struct{}
	done       map[types.ItemID]struct{}
	errored    map[types.ItemID]struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		pendingSet: make(map[types.ItemID]struct{}),
		inProgress: make(map[types.ItemID]struct{}),
		done:       make(map[types.ItemID]struct{}),
		errored:    make(map[types.ItemID]struct{}),
	}
}

// EnqueueIfNew appends id to pending only if it is absent from all four
// sets. Returns true when the id was enqueued.
func (q *Queue) EnqueueIfNew(id types.ItemID) bool {
	if q.Contains(id) {
		return false
	}
	q.pending = append(q.pending, id)
	q.pendingSet[id] = struct{}{}
	return true
}

// Contains reports whether id is in any of the four sets.
func (q *Queue) Contains(id types.ItemID) bool {
	if _, ok := q.pendingSet[id]; ok {
		return true
	}
	if _, ok := q.inProgress[id]; ok {
		return true
	}
	if _, ok := q.done[id]; ok {
		return true
	}
	_, ok := q.errored[id]
	return ok
}

// PopPending atomically removes the head of pending and places it in
// inProgress. Returns false when pending is empty.
func (q *Queue) PopPending() (types.ItemID, bool) {
	if len(q.pending) == 0 {
		return "", false
	}
	id := q.pending[0]
	q.pending = q.pending[1:]
	delete(q.pendingSet, id)
	q.inProgress[id] = struct{}{}
	return id, true
}

// BeginWork moves id from pending to inProgress. A no-op, not an error,
// when the id is already elsewhere.
func (q *Queue) BeginWork(id types.ItemID) {
	if _, ok := q.pendingSet[id]; !ok {
		return
	}
	q.removePending(id)
	q.inProgress[id] = struct{}{}
}

// Complete moves id to done, removing it from the other three sets.
func (q *Queue) Complete(id types.ItemID) {
	q.removePending(id)
	delete(q.inProgress, id)
	delete(q.errored, id)
	q.done[id] = struct{}{}
}

// Fail moves id to errored, removing it from pending and inProgress.
func (q *Queue) Fail(id types.ItemID) {
	q.removePending(id)
	delete(q.inProgress, id)
	q.errored[id] = struct{}{}
}

// RequeueFront moves id to the front of pending regardless of its current
// set, so it is retried before other pending work.
func (q *Queue) RequeueFront(id types.ItemID) {
	q.removePending(id)
	delete(q.inProgress, id)
	delete(q.done, id)
	delete(q.errored, id)
	q.pending = append([]types.ItemID{id}, q.pending...)
	q.pendingSet[id] = struct{}{}
}

func (q *Queue) removePending(id types.ItemID) {
	if _, ok := q.pendingSet[id]; !ok {
		return
	}
	delete(q.pendingSet, id)
	for i, p := range q.pending {
		if p == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
}

// Pending returns a copy of the FIFO pending list.
func (q *Queue) Pending() []types.ItemID {
	return append([]types.ItemID(nil), q.pending...)
}

// InProgress returns the in-progress ids (order unspecified).
func (q *Queue) InProgress() []types.ItemID { return setToSlice(q.inProgress) }

// Done returns the done ids (order unspecified).
func (q *Queue) Done() []types.ItemID { return setToSlice(q.done) }

// Errored returns the errored ids (order unspecified).
func (q *Queue) Errored() []types.ItemID { return setToSlice(q.errored) }

// Counts returns the size of each set.
func (q *Queue) Counts() (pending, inProgress, done, errored int) {
	return len(q.pending), len(q.inProgress), len(q.done), len(q.errored)
}

// IsDrained reports whether no work is pending or in flight.
func (q *Queue) IsDrained() bool {
	return len(q.pending) == 0 && len(q.inProgress) == 0
}

// Reset empties all four sets.
func (q *Queue) Reset() {
	q.pending = nil
	q.pendingSet = make(map[types.ItemID]struct{})
	q.inProgress = make(map[types.ItemID]struct{})
	q.done = make(map[types.ItemID]struct{})
	q.errored = make(map[types.ItemID]struct{})
}

func setToSlice(set map[types.ItemID]struct{}) []types.ItemID {
	out := make([]types.ItemID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
