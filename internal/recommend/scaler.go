package recommend

import (
	"errors"
)

// ErrEmptyCatalog is returned when an operation needs at least one row.
var ErrEmptyCatalog = errors.New("empty catalog")

// Scaler is a fitted per-dimension min-max normalizer. A fitted scaler is
// immutable and reusable indefinitely, including for single-row query
// transforms long after fitting.
type Scaler struct {
	Min   []float32
	Range []float32
}

// FitScaler learns per-dimension min and range from x. A dimension whose raw
// span is zero gets range 1, so it scales to a constant 0 instead of
// dividing by zero.
func FitScaler(x *Matrix) (*Scaler, error) {
	if x.Rows == 0 {
		return nil, ErrEmptyCatalog
	}

	s := &Scaler{
		Min:   make([]float32, x.Cols),
		Range: make([]float32, x.Cols),
	}
	max := make([]float32, x.Cols)
	copy(s.Min, x.Row(0))
	copy(max, x.Row(0))

	for i := 1; i < x.Rows; i++ {
		row := x.Row(i)
		for d, v := range row {
			if v < s.Min[d] {
				s.Min[d] = v
			}
			if v > max[d] {
				max[d] = v
			}
		}
	}

	for d := range s.Range {
		r := max[d] - s.Min[d]
		if r == 0 {
			r = 1
		}
		s.Range[d] = r
	}
	return s, nil
}

// Transform scales every row of x into a new matrix. No clamping: values
// outside the fitted span map outside [0,1].
func (s *Scaler) Transform(x *Matrix) *Matrix {
	out := NewMatrix(x.Rows, x.Cols)
	for i := 0; i < x.Rows; i++ {
		s.transformInto(out.Row(i), x.Row(i))
	}
	return out
}

// TransformRow scales a single vector, e.g. a query vector normalized
// consistently with the fitted catalog.
func (s *Scaler) TransformRow(v []float32) []float32 {
	out := make([]float32, len(v))
	s.transformInto(out, v)
	return out
}

func (s *Scaler) transformInto(dst, src []float32) {
	for d, v := range src {
		dst[d] = (v - s.Min[d]) / s.Range[d]
	}
}
