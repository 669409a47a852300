package recommend

import (
	"container/heap"
	"sort"
)

// cosineEps guards against zero-norm vectors.
const cosineEps = 1e-8

// Index answers k-nearest-neighbor queries over the normalized catalog.
// Scores are cosine similarities, returned closest-first. Implementations
// are immutable after construction and safe for concurrent queries.
type Index interface {
	Search(v []float32, k int) (scores []float32, ids []int)
}

// BruteIndex is the exact backend: every query scans all rows. It is the
// reference implementation the ranker's behavior is pinned to.
type BruteIndex struct {
	data  *Matrix
	norms []float64
}

// NewBruteIndex builds an exact cosine-similarity index over x. The matrix
// is referenced, not copied, and must not be mutated afterwards.
func NewBruteIndex(x *Matrix) *BruteIndex {
	norms := make([]float64, x.Rows)
	for i := 0; i < x.Rows; i++ {
		norms[i] = norm(x.Row(i)) + cosineEps
	}
	return &BruteIndex{data: x, norms: norms}
}

// Search returns the k rows most similar to v, closest first.
func (idx *BruteIndex) Search(v []float32, k int) ([]float32, []int) {
	qnorm := norm(v) + cosineEps
	sel := newTopK(k)
	for i := 0; i < idx.data.Rows; i++ {
		sim := dot(v, idx.data.Row(i)) / (idx.norms[i] * qnorm)
		sel.push(float32(sim), i)
	}
	return sel.results()
}

// topK selects the k highest-scoring candidates using a bounded min-heap.
// Equal scores order by ascending id so results are deterministic.
type topK struct {
	k     int
	items topKHeap
}

type topKItem struct {
	score float32
	id    int
}

func newTopK(k int) *topK {
	if k < 0 {
		k = 0
	}
	return &topK{k: k, items: make(topKHeap, 0, k)}
}

func (t *topK) push(score float32, id int) {
	if t.k == 0 {
		return
	}
	if len(t.items) < t.k {
		heap.Push(&t.items, topKItem{score, id})
		return
	}
	worst := t.items[0]
	if score > worst.score || (score == worst.score && id < worst.id) {
		t.items[0] = topKItem{score, id}
		heap.Fix(&t.items, 0)
	}
}

func (t *topK) results() ([]float32, []int) {
	sorted := make([]topKItem, len(t.items))
	copy(sorted, t.items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score > sorted[j].score
		}
		return sorted[i].id < sorted[j].id
	})

	scores := make([]float32, len(sorted))
	ids := make([]int, len(sorted))
	for i, it := range sorted {
		scores[i] = it.score
		ids[i] = it.id
	}
	return scores, ids
}

// topKHeap is a min-heap by score, with larger ids treated as worse on ties.
type topKHeap []topKItem

func (h topKHeap) Len() int { return len(h) }
func (h topKHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].id > h[j].id
}
func (h topKHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *topKHeap) Push(x any) { *h = append(*h, x.(topKItem)) }
func (h *topKHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
