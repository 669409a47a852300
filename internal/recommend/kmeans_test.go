package recommend

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// blobs generates two tight, well-separated groups of points in dims
// dimensions, deterministic for the given seed.
func blobs(perBlob, dims int, seed int64) *Matrix {
	rng := rand.New(rand.NewSource(seed))
	m := NewMatrix(2*perBlob, dims)
	for i := 0; i < 2*perBlob; i++ {
		center := float32(0)
		if i >= perBlob {
			center = 10
		}
		row := m.Row(i)
		for d := range row {
			row[d] = center + float32(rng.Float64())*0.5
		}
	}
	return m
}

func TestMiniBatchKMeansInvalidInput(t *testing.T) {
	x := blobs(4, 3, 1)

	tests := []struct {
		name string
		x    *Matrix
		k    int
		want error
	}{
		{"zero k", x, 0, ErrBadClusterCount},
		{"negative k", x, -2, ErrBadClusterCount},
		{"k exceeds rows", x, x.Rows + 1, ErrBadClusterCount},
		{"empty matrix", NewMatrix(0, 3), 2, ErrEmptyCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := MiniBatchKMeans(tt.x, KMeansConfig{K: tt.k})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMiniBatchKMeansLabelsDense(t *testing.T) {
	x := blobs(20, 4, 7)
	labels, centroids, err := MiniBatchKMeans(x, KMeansConfig{K: 4, Seed: 7})
	if err != nil {
		t.Fatalf("MiniBatchKMeans failed: %v", err)
	}

	if len(labels) != x.Rows {
		t.Fatalf("len(labels) = %d, want %d", len(labels), x.Rows)
	}
	if centroids.Rows != 4 || centroids.Cols != 4 {
		t.Fatalf("centroids %dx%d, want 4x4", centroids.Rows, centroids.Cols)
	}
	for i, label := range labels {
		if label < 0 || label >= 4 {
			t.Errorf("labels[%d] = %d, want within [0,4)", i, label)
		}
	}
}

func TestMiniBatchKMeansSingleCluster(t *testing.T) {
	x := blobs(4, 3, 3)

	labels, few, err := MiniBatchKMeans(x, KMeansConfig{K: 1, MaxIter: 5, Tol: 1e-12, Seed: 3})
	if err != nil {
		t.Fatalf("MiniBatchKMeans failed: %v", err)
	}
	for i, label := range labels {
		if label != 0 {
			t.Errorf("labels[%d] = %d, want 0", i, label)
		}
	}

	_, many, err := MiniBatchKMeans(x, KMeansConfig{K: 1, MaxIter: 200, Tol: 1e-12, Seed: 3})
	if err != nil {
		t.Fatalf("MiniBatchKMeans failed: %v", err)
	}

	// The single centroid converges toward the global mean as iterations
	// increase.
	mean := make([]float32, x.Cols)
	for i := 0; i < x.Rows; i++ {
		for d, v := range x.Row(i) {
			mean[d] += v / float32(x.Rows)
		}
	}
	distFew := math.Sqrt(sqDist(few.Row(0), mean))
	distMany := math.Sqrt(sqDist(many.Row(0), mean))
	if distMany > distFew {
		t.Errorf("distance to mean grew with iterations: %v iter5, %v iter200", distFew, distMany)
	}
}

func TestMiniBatchKMeansDeterministic(t *testing.T) {
	x := blobs(25, 5, 11)
	cfg := KMeansConfig{K: 3, Seed: 99}

	labels1, centroids1, err := MiniBatchKMeans(x, cfg)
	if err != nil {
		t.Fatalf("MiniBatchKMeans failed: %v", err)
	}
	labels2, centroids2, err := MiniBatchKMeans(x, cfg)
	if err != nil {
		t.Fatalf("MiniBatchKMeans failed: %v", err)
	}

	for i := range labels1 {
		if labels1[i] != labels2[i] {
			t.Fatalf("labels diverge at %d: %d vs %d", i, labels1[i], labels2[i])
		}
	}
	for i := range centroids1.Data {
		if centroids1.Data[i] != centroids2.Data[i] {
			t.Fatalf("centroids diverge at %d: %v vs %v", i, centroids1.Data[i], centroids2.Data[i])
		}
	}
}

func TestMiniBatchKMeansSeparatesBlobs(t *testing.T) {
	x := blobs(15, 3, 21)
	labels, _, err := MiniBatchKMeans(x, KMeansConfig{K: 2, Seed: 21})
	if err != nil {
		t.Fatalf("MiniBatchKMeans failed: %v", err)
	}

	first := labels[0]
	second := labels[15]
	if first == second {
		t.Fatalf("blobs share a cluster: %d", first)
	}
	for i := 0; i < 15; i++ {
		if labels[i] != first {
			t.Errorf("blob 0 row %d got label %d, want %d", i, labels[i], first)
		}
		if labels[15+i] != second {
			t.Errorf("blob 1 row %d got label %d, want %d", i, labels[15+i], second)
		}
	}
}

// TestMiniBatchKMeansQuality cross-checks partition quality against the
// muesli/kmeans reference on an easy dataset: the streaming variant should
// land within a factor of the library's inertia.
func TestMiniBatchKMeansQuality(t *testing.T) {
	x := blobs(12, 3, 17)

	labels, centroids, err := MiniBatchKMeans(x, KMeansConfig{K: 2, Seed: 17})
	if err != nil {
		t.Fatalf("MiniBatchKMeans failed: %v", err)
	}
	var ours float64
	for i := 0; i < x.Rows; i++ {
		ours += sqDist(x.Row(i), centroids.Row(int(labels[i])))
	}

	var obs clusters.Observations
	for i := 0; i < x.Rows; i++ {
		coords := make(clusters.Coordinates, x.Cols)
		for d, v := range x.Row(i) {
			coords[d] = float64(v)
		}
		obs = append(obs, coords)
	}
	km := kmeans.New()
	result, err := km.Partition(obs, 2)
	if err != nil {
		t.Fatalf("library partition failed: %v", err)
	}
	var theirs float64
	for _, c := range result {
		for _, o := range c.Observations {
			coords := o.Coordinates()
			var d2 float64
			for d, v := range coords {
				diff := v - c.Center[d]
				d2 += diff * diff
			}
			theirs += d2
		}
	}

	if ours > theirs*2+1e-9 {
		t.Errorf("inertia %v, want within 2x of library inertia %v", ours, theirs)
	}
}
