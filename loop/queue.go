package loop

import "container/heap"

// waitTask pairs a parked coroutine with the monotonic instant it should be
// resumed at. Ties on wakeAt are broken by insertion order.
type waitTask struct {
	task   *task
	wakeAt float64
	seq    uint64
}

// taskQueue is a min-heap of waitTasks keyed by wake time. It is not safe
// for concurrent use; only the simulation goroutine touches it.
type taskQueue struct {
	items   []waitTask
	nextSeq uint64
}

func (q *taskQueue) push(t *task, wakeAt float64) {
	heap.Push((*taskHeap)(q), waitTask{task: t, wakeAt: wakeAt, seq: q.nextSeq})
	q.nextSeq++
}

func (q *taskQueue) peek() waitTask { return q.items[0] }

func (q *taskQueue) pop() waitTask {
	return heap.Pop((*taskHeap)(q)).(waitTask)
}

func (q *taskQueue) len() int { return len(q.items) }

// taskHeap adapts taskQueue to container/heap.
type taskHeap taskQueue

func (h *taskHeap) Len() int { return len(h.items) }

func (h *taskHeap) Less(i, j int) bool {
	if h.items[i].wakeAt != h.items[j].wakeAt {
		return h.items[i].wakeAt < h.items[j].wakeAt
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *taskHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *taskHeap) Push(x any) { h.items = append(h.items, x.(waitTask)) }

func (h *taskHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
