package lstore

import (
	"container/heap"
	"time"
)

// expiryItem is one scheduled key. at is the expiry in unix nanoseconds.
type expiryItem struct {
	key   string
	at    int64
	index int // maintained by the heap
}

// expiryQueue is a min-heap of keys ordered by expiry time combined with a map
// for key based updates and removal. It is not safe for concurrent use.
type expiryQueue struct {
	items []*expiryItem
	byKey map[string]*expiryItem
}

func newExpiryQueue() *expiryQueue {
	return &expiryQueue{
		items: make([]*expiryItem, 0),
		byKey: make(map[string]*expiryItem),
	}
}

// Len is part of heap.Interface
func (q *expiryQueue) Len() int { return len(q.items) }

// Less is part of heap.Interface, the earliest expiry comes first
func (q *expiryQueue) Less(i, j int) bool {
	return q.items[i].at < q.items[j].at
}

// Swap is part of heap.Interface
func (q *expiryQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

// Push is part of heap.Interface, use schedule instead
func (q *expiryQueue) Push(x interface{}) {
	it := x.(*expiryItem)
	it.index = len(q.items)
	q.items = append(q.items, it)
	q.byKey[it.key] = it
}

// Pop is part of heap.Interface, use due instead
func (q *expiryQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	q.items = old[:n-1]
	delete(q.byKey, it.key)
	return it
}

// schedule sets the expiry of key. A zero time removes the key from the queue.
func (q *expiryQueue) schedule(key string, at time.Time) {
	it, exists := q.byKey[key]
	if at.IsZero() {
		if exists {
			heap.Remove(q, it.index)
		}
		return
	}

	if exists {
		it.at = at.UnixNano()
		heap.Fix(q, it.index)
		return
	}
	heap.Push(q, &expiryItem{key: key, at: at.UnixNano()})
}

// due removes and returns all keys whose expiry is not after now
func (q *expiryQueue) due(now time.Time) []string {
	var keys []string
	limit := now.UnixNano()
	for len(q.items) > 0 && q.items[0].at <= limit {
		keys = append(keys, heap.Pop(q).(*expiryItem).key)
	}
	return keys
}
