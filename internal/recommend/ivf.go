package recommend

import (
	"errors"
	"fmt"
	"sort"
)

// Default IVF parameters.
const (
	DefaultIVFLists  = 64
	DefaultIVFProbes = 8
)

// ErrBadIVFConfig is returned for a non-positive list or probe count.
var ErrBadIVFConfig = errors.New("invalid ivf configuration")

// IVFIndex is the approximate backend: rows are partitioned into coarse
// cells by a small k-means quantizer, and queries only scan the closest
// nprobe cells. Recall is traded for sub-linear query cost; results are
// semantically interchangeable with BruteIndex from the ranker's view.
type IVFIndex struct {
	data      *Matrix
	norms     []float64
	centroids *Matrix
	cells     [][]int32
	nprobe    int
}

// NewIVFIndex partitions x into nlist cells (capped at the row count) and
// probes nprobe of them per query. seed makes the partition deterministic.
func NewIVFIndex(x *Matrix, nlist, nprobe int, seed int64) (*IVFIndex, error) {
	if nlist <= 0 || nprobe <= 0 {
		return nil, fmt.Errorf("%w: nlist=%d nprobe=%d", ErrBadIVFConfig, nlist, nprobe)
	}
	if nlist > x.Rows {
		nlist = x.Rows
	}
	if nprobe > nlist {
		nprobe = nlist
	}

	labels, centroids, err := MiniBatchKMeans(x, KMeansConfig{K: nlist, Seed: seed})
	if err != nil {
		return nil, fmt.Errorf("building coarse quantizer: %w", err)
	}

	return newIVFFromParts(x, centroids, labels, nprobe), nil
}

func newIVFFromParts(x *Matrix, centroids *Matrix, labels []int32, nprobe int) *IVFIndex {
	cells := make([][]int32, centroids.Rows)
	for i, label := range labels {
		cells[label] = append(cells[label], int32(i))
	}
	norms := make([]float64, x.Rows)
	for i := 0; i < x.Rows; i++ {
		norms[i] = norm(x.Row(i)) + cosineEps
	}
	return &IVFIndex{
		data:      x,
		norms:     norms,
		centroids: centroids,
		cells:     cells,
		nprobe:    nprobe,
	}
}

// Search ranks cells by centroid distance to v, scans the nprobe closest,
// and returns the k best rows found, closest first.
func (idx *IVFIndex) Search(v []float32, k int) ([]float32, []int) {
	type cellDist struct {
		cell int
		dist float64
	}
	dists := make([]cellDist, idx.centroids.Rows)
	for j := 0; j < idx.centroids.Rows; j++ {
		dists[j] = cellDist{j, sqDist(v, idx.centroids.Row(j))}
	}
	sort.Slice(dists, func(i, j int) bool {
		if dists[i].dist != dists[j].dist {
			return dists[i].dist < dists[j].dist
		}
		return dists[i].cell < dists[j].cell
	})

	qnorm := norm(v) + cosineEps
	sel := newTopK(k)
	for _, cd := range dists[:idx.nprobe] {
		for _, row := range idx.cells[cd.cell] {
			i := int(row)
			sim := dot(v, idx.data.Row(i)) / (idx.norms[i] * qnorm)
			sel.push(float32(sim), i)
		}
	}
	return sel.results()
}
