package recommend

import (
	"errors"
	"testing"
)

func TestBruteIndexExactFirst(t *testing.T) {
	x := matrixFromRows([][]float32{
		{1, 0},
		{0, 1},
		{0.9, 0.1},
		{0.5, 0.5},
	})
	idx := NewBruteIndex(x)

	scores, ids := idx.Search(x.Row(0), 3)
	if len(ids) != 3 {
		t.Fatalf("got %d results, want 3", len(ids))
	}
	if ids[0] != 0 {
		t.Errorf("ids[0] = %d, want the query row itself", ids[0])
	}
	if scores[0] < 0.999 {
		t.Errorf("self similarity = %v, want ~1", scores[0])
	}
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[i-1] {
			t.Errorf("scores out of order at %d: %v > %v", i, scores[i], scores[i-1])
		}
	}
	if ids[1] != 2 {
		t.Errorf("ids[1] = %d, want 2 (the near-duplicate direction)", ids[1])
	}
}

func TestBruteIndexKExceedsRows(t *testing.T) {
	x := matrixFromRows([][]float32{
		{1, 0},
		{0, 1},
	})
	idx := NewBruteIndex(x)

	scores, ids := idx.Search([]float32{1, 1}, 10)
	if len(ids) != 2 || len(scores) != 2 {
		t.Fatalf("got %d results, want all 2 rows", len(ids))
	}
}

func TestBruteIndexZeroK(t *testing.T) {
	x := matrixFromRows([][]float32{{1, 0}})
	idx := NewBruteIndex(x)

	scores, ids := idx.Search([]float32{1, 0}, 0)
	if len(ids) != 0 || len(scores) != 0 {
		t.Fatalf("got %d results, want none", len(ids))
	}
}

func TestBruteIndexTieBreaksByID(t *testing.T) {
	// Five copies of the same vector: all similarities are identical, so
	// ordering must fall back to ascending row id.
	rows := make([][]float32, 5)
	for i := range rows {
		rows[i] = []float32{0.3, 0.7}
	}
	idx := NewBruteIndex(matrixFromRows(rows))

	_, ids := idx.Search([]float32{0.3, 0.7}, 3)
	want := []int{0, 1, 2}
	for i, id := range ids {
		if id != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, id, want[i])
		}
	}
}

func TestBruteIndexZeroVectorSafe(t *testing.T) {
	x := matrixFromRows([][]float32{
		{0, 0},
		{1, 0},
	})
	idx := NewBruteIndex(x)

	scores, _ := idx.Search([]float32{0, 0}, 2)
	for i, s := range scores {
		if s != s { // NaN check
			t.Errorf("scores[%d] is NaN", i)
		}
	}
}

func TestNewIVFIndexBadConfig(t *testing.T) {
	x := blobs(8, 3, 5)
	for _, tc := range []struct{ nlist, nprobe int }{
		{0, 4}, {-1, 4}, {4, 0}, {4, -1},
	} {
		if _, err := NewIVFIndex(x, tc.nlist, tc.nprobe, 1); !errors.Is(err, ErrBadIVFConfig) {
			t.Errorf("nlist=%d nprobe=%d: err = %v, want ErrBadIVFConfig", tc.nlist, tc.nprobe, err)
		}
	}
}

func TestIVFIndexFullProbeMatchesBrute(t *testing.T) {
	// Probing every cell degenerates to an exhaustive scan, so results must
	// agree with the exact backend.
	x := blobs(20, 4, 13)
	brute := NewBruteIndex(x)
	ivf, err := NewIVFIndex(x, 4, 4, 13)
	if err != nil {
		t.Fatalf("NewIVFIndex failed: %v", err)
	}

	q := []float32{5, 5, 5, 5}
	bScores, bIDs := brute.Search(q, 8)
	iScores, iIDs := ivf.Search(q, 8)

	if len(iIDs) != len(bIDs) {
		t.Fatalf("result sizes differ: ivf %d, brute %d", len(iIDs), len(bIDs))
	}
	for i := range bIDs {
		if iIDs[i] != bIDs[i] || iScores[i] != bScores[i] {
			t.Errorf("result %d: ivf (%d, %v), brute (%d, %v)", i, iIDs[i], iScores[i], bIDs[i], bScores[i])
		}
	}
}

func TestIVFIndexListsCappedAtRows(t *testing.T) {
	x := blobs(2, 3, 9) // 4 rows
	ivf, err := NewIVFIndex(x, 100, 100, 9)
	if err != nil {
		t.Fatalf("NewIVFIndex failed: %v", err)
	}

	_, ids := ivf.Search(x.Row(0), x.Rows)
	if len(ids) != x.Rows {
		t.Fatalf("got %d results, want %d", len(ids), x.Rows)
	}
}
