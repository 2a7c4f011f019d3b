package ranking

import (
	"container/heap"
	"sort"
)

// worstFirst is a heap whose root is the lowest-ranked candidate kept so far.
type worstFirst []Scored

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return Before(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(Scored)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// collector keeps the best n candidates offered to it.
type collector struct {
	n    int
	heap worstFirst
}

func newCollector(n int) *collector {
	return &collector{n: n, heap: make(worstFirst, 0, n)}
}

func (c *collector) offer(s Scored) {
	if c.n <= 0 {
		return
	}
	if len(c.heap) < c.n {
		heap.Push(&c.heap, s)
		return
	}
	if Before(s, c.heap[0]) {
		c.heap[0] = s
		heap.Fix(&c.heap, 0)
	}
}

// sorted returns the kept candidates best first.
func (c *collector) sorted() []Scored {
	out := make([]Scored, len(c.heap))
	copy(out, c.heap)
	sort.Slice(out, func(i, j int) bool { return Before(out[i], out[j]) })
	return out
}

// SelectTop returns the best n of candidates under Before. The input is not modified.
// n <= 0 yields an empty result.
func SelectTop(candidates []Scored, n int) []Scored {
	c := newCollector(max(0, min(n, len(candidates))))
	for _, s := range candidates {
		c.offer(s)
	}
	return c.sorted()
}
