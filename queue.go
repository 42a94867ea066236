package remesh

import (
	"container/heap"

	"github.com/soypat/remesh/mesh"
)

type edgeItem struct {
	e  mesh.Edge
	l2 float64 // squared length when queued.
}

// edgeQueue orders edges by squared length, longest first when longest
// is set. Ties go to the lower edge handle so runs are deterministic.
type edgeQueue struct {
	items   []edgeItem
	longest bool
}

func (q *edgeQueue) Len() int { return len(q.items) }

func (q *edgeQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.l2 != b.l2 {
		return (a.l2 > b.l2) == q.longest
	}
	return a.e < b.e
}

func (q *edgeQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *edgeQueue) Push(x any) { q.items = append(q.items, x.(edgeItem)) }

func (q *edgeQueue) Pop() any {
	n := len(q.items) - 1
	it := q.items[n]
	q.items = q.items[:n]
	return it
}

func (q *edgeQueue) push(e mesh.Edge, l2 float64) { heap.Push(q, edgeItem{e: e, l2: l2}) }

func (q *edgeQueue) pop() edgeItem { return heap.Pop(q).(edgeItem) }
