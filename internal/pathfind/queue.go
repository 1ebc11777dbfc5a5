package pathfind

// entry is a queued search state. Entries are plain values; a superseded
// entry stays in the queue and is discarded when popped.
type entry struct {
	node int
	cost float64
}

// priorityQueue is a min-heap on cost for container/heap. Equal costs pop
// the lower node index first so runs are reproducible.
type priorityQueue []entry

func (q priorityQueue) Len() int { return len(q) }
func (q priorityQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].node < q[j].node
}
func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *priorityQueue) Push(x any) {
	*q = append(*q, x.(entry))
}

func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}
