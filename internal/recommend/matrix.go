// Package recommend implements the content-based recommendation engine:
// feature scaling, mini-batch k-means clustering, cluster mood labeling,
// nearest-neighbor search, and heuristic re-ranking over a static catalog.
package recommend

import (
	"math"

	"github.com/musicrec/musicrec/internal/catalog"
)

// Matrix is a dense row-major float32 matrix. float32 keeps the full catalog
// (up to ~1.2M rows) and its scaled copy memory-bounded.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// Row returns row i as a slice view into the matrix.
func (m *Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// FeatureMatrix copies the catalog's raw feature vectors into a matrix.
func FeatureMatrix(cat *catalog.Catalog) *Matrix {
	m := NewMatrix(cat.Len(), catalog.NumFeatures)
	for i := range cat.Tracks {
		copy(m.Row(i), cat.Tracks[i].Features[:])
	}
	return m
}

// sqDist returns the squared Euclidean distance between two vectors.
func sqDist(a, b []float32) float64 {
	var sum float64
	for d := range a {
		diff := float64(a[d]) - float64(b[d])
		sum += diff * diff
	}
	return sum
}

// norm returns the Euclidean norm of v.
func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// dot returns the dot product of a and b.
func dot(a, b []float32) float64 {
	var sum float64
	for d := range a {
		sum += float64(a[d]) * float64(b[d])
	}
	return sum
}
