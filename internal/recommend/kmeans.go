package recommend

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Default mini-batch k-means parameters.
const (
	DefaultBatchSize = 50000
	DefaultMaxIter   = 200
	DefaultTol       = 1e-4
	DefaultSeed      = 42

	// convergenceCheckEvery is the iteration cadence of the full-catalog
	// inertia check. Tunable heuristic, not part of the contract.
	convergenceCheckEvery = 10
)

// ErrBadClusterCount is returned when k is non-positive or exceeds the
// number of rows.
var ErrBadClusterCount = errors.New("invalid cluster count")

// KMeansConfig holds mini-batch k-means parameters. Zero values fall back to
// the defaults above.
type KMeansConfig struct {
	K         int
	BatchSize int
	MaxIter   int
	Tol       float64
	Seed      int64
}

func (c KMeansConfig) withDefaults() KMeansConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxIter <= 0 {
		c.MaxIter = DefaultMaxIter
	}
	if c.Tol <= 0 {
		c.Tol = DefaultTol
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	return c
}

// MiniBatchKMeans partitions the rows of x into cfg.K clusters without ever
// holding pairwise-distance structures over the full dataset. Centroids are
// seeded with k-means++ and updated from random mini-batches via a decaying
// online running mean, so each centroid is the incremental mean of every
// point ever assigned to it. A full-catalog inertia check runs every 10
// iterations and on the last one; the loop stops early when the relative
// inertia change drops below cfg.Tol. Hitting MaxIter without converging is
// not an error: the best labels found are returned.
//
// The result is deterministic for a fixed seed and identical input.
func MiniBatchKMeans(x *Matrix, cfg KMeansConfig) ([]int32, *Matrix, error) {
	cfg = cfg.withDefaults()
	n := x.Rows
	if n == 0 {
		return nil, nil, ErrEmptyCatalog
	}
	if cfg.K <= 0 || cfg.K > n {
		return nil, nil, fmt.Errorf("%w: k=%d with %d rows", ErrBadClusterCount, cfg.K, n)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	centroids := seedCentroids(x, cfg.K, rng)

	batchSize := cfg.BatchSize
	if batchSize > n {
		batchSize = n
	}

	counts := make([]int64, cfg.K)
	sums := NewMatrix(cfg.K, x.Cols)
	batchCounts := make([]int64, cfg.K)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	prevInertia := math.Inf(1)
	for it := 0; it < cfg.MaxIter; it++ {
		// Draw a mini-batch without replacement.
		for i := 0; i < batchSize; i++ {
			j := i + rng.Intn(n-i)
			order[i], order[j] = order[j], order[i]
		}

		for j := range batchCounts {
			batchCounts[j] = 0
		}
		for i := range sums.Data {
			sums.Data[i] = 0
		}

		// Assign batch points to their nearest centroid.
		for _, row := range order[:batchSize] {
			j, _ := nearestCentroid(x.Row(row), centroids)
			batchCounts[j]++
			sum := sums.Row(j)
			for d, v := range x.Row(row) {
				sum[d] += v
			}
		}

		// Decaying online update for every cluster the batch touched. A
		// cluster no batch ever touches keeps its seed centroid.
		for j := 0; j < cfg.K; j++ {
			if batchCounts[j] == 0 {
				continue
			}
			counts[j] += batchCounts[j]
			eta := 1.0 / float64(counts[j])
			centroid := centroids.Row(j)
			sum := sums.Row(j)
			for d := range centroid {
				mean := sum[d] / float32(batchCounts[j])
				centroid[d] += float32(eta * float64(mean-centroid[d]))
			}
		}

		if it%convergenceCheckEvery == 0 || it == cfg.MaxIter-1 {
			_, inertia := assignAll(x, centroids)
			if math.Abs(prevInertia-inertia) < cfg.Tol*prevInertia {
				break
			}
			prevInertia = inertia
		}
	}

	labels, _ := assignAll(x, centroids)
	return labels, centroids, nil
}

// seedCentroids runs k-means++ initialization: the first centroid is a
// uniformly random row, each subsequent one is sampled with probability
// proportional to its squared distance to the nearest chosen centroid.
func seedCentroids(x *Matrix, k int, rng *rand.Rand) *Matrix {
	n := x.Rows
	centroids := NewMatrix(k, x.Cols)
	copy(centroids.Row(0), x.Row(rng.Intn(n)))

	closestSq := make([]float64, n)
	for i := range closestSq {
		closestSq[i] = math.Inf(1)
	}

	for c := 1; c < k; c++ {
		var total float64
		for i := 0; i < n; i++ {
			d := sqDist(x.Row(i), centroids.Row(c-1))
			if d < closestSq[i] {
				closestSq[i] = d
			}
			total += closestSq[i]
		}

		pick := 0
		if total > 0 {
			r := rng.Float64() * total
			var cum float64
			for i := 0; i < n; i++ {
				cum += closestSq[i]
				if cum >= r {
					pick = i
					break
				}
			}
		} else {
			// All remaining mass is zero (duplicate rows); fall back to
			// uniform sampling.
			pick = rng.Intn(n)
		}
		copy(centroids.Row(c), x.Row(pick))
	}
	return centroids
}

// nearestCentroid returns the index of the centroid closest to v and the
// squared distance to it.
func nearestCentroid(v []float32, centroids *Matrix) (int, float64) {
	best := 0
	bestDist := math.Inf(1)
	for j := 0; j < centroids.Rows; j++ {
		if d := sqDist(v, centroids.Row(j)); d < bestDist {
			best = j
			bestDist = d
		}
	}
	return best, bestDist
}

// assignAll labels every row with its nearest centroid and returns the
// global inertia (sum of squared distances to assigned centroids).
func assignAll(x *Matrix, centroids *Matrix) ([]int32, float64) {
	labels := make([]int32, x.Rows)
	var inertia float64
	for i := 0; i < x.Rows; i++ {
		j, d := nearestCentroid(x.Row(i), centroids)
		labels[i] = int32(j)
		inertia += d
	}
	return labels, inertia
}
