package similarity

import (
	"container/heap"
	"sort"
)

// worse reports whether a ranks below b: lower score, or equal score and higher index.
func worse(a, b Neighbor) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}

	return a.Index > b.Index
}

// boundedHeap keeps the k best neighbors seen so far; the root is the worst of them.
type boundedHeap struct {
	k     int
	items []Neighbor
}

func newBoundedHeap(k int) *boundedHeap {
	return &boundedHeap{k: k, items: make([]Neighbor, 0, k)}
}

func (h *boundedHeap) Len() int           { return len(h.items) }
func (h *boundedHeap) Less(i, j int) bool { return worse(h.items[i], h.items[j]) }
func (h *boundedHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedHeap) Push(x any) { h.items = append(h.items, x.(Neighbor)) }

func (h *boundedHeap) Pop() any {
	last := h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]

	return last
}

func (h *boundedHeap) offer(n Neighbor) {
	if len(h.items) < h.k {
		heap.Push(h, n)

		return
	}

	if worse(h.items[0], n) {
		h.items[0] = n
		heap.Fix(h, 0)
	}
}

// ranked returns the kept neighbors best first.
func (h *boundedHeap) ranked() []Neighbor {
	out := make([]Neighbor, len(h.items))
	copy(out, h.items)

	sort.Slice(out, func(i, j int) bool { return worse(out[j], out[i]) })

	return out
}

// selectRow ranks one similarity row. scores[self] is overwritten with SelfSentinel and
// the self index is never returned, so a catalog of M rows yields at most M-1 neighbors.
func selectRow(scores []float64, self, k int) []Neighbor {
	if self >= 0 && self < len(scores) {
		scores[self] = SelfSentinel
	}

	h := newBoundedHeap(min(k, max(len(scores)-1, 0)))
	if h.k == 0 {
		return []Neighbor{}
	}

	for j, s := range scores {
		if j == self {
			continue
		}

		h.offer(Neighbor{Index: j, Score: clamp(s)})
	}

	return h.ranked()
}
