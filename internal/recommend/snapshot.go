package recommend

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot file names under the store directory.
const (
	scalerFile    = "scaler.gob"
	labelsFile    = "labels.gob"
	centroidsFile = "centroids.gob"
	indexFile     = "index.gob"
)

// SnapshotStore persists build-phase artifacts so a restarted process can
// skip recomputation. Loads are best-effort: a missing, unreadable, or stale
// snapshot simply reports !ok and the caller recomputes.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates the snapshot directory if needed.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

// LoadScaler returns the persisted scaler if present and dimensioned for
// cols features.
func (s *SnapshotStore) LoadScaler(cols int) (*Scaler, bool) {
	var scaler Scaler
	if !s.load(scalerFile, &scaler) {
		return nil, false
	}
	if len(scaler.Min) != cols || len(scaler.Range) != cols {
		return nil, false
	}
	return &scaler, true
}

// SaveScaler persists the fitted scaler.
func (s *SnapshotStore) SaveScaler(scaler *Scaler) error {
	return s.save(scalerFile, scaler)
}

// LoadClusters returns persisted labels and centroids. A label array whose
// length differs from the live catalog, or a centroid matrix with the wrong
// dimensionality, is stale and reports !ok.
func (s *SnapshotStore) LoadClusters(n, cols int) ([]int32, *Matrix, bool) {
	var labels []int32
	var centroids Matrix
	if !s.load(labelsFile, &labels) || !s.load(centroidsFile, &centroids) {
		return nil, nil, false
	}
	if len(labels) != n || centroids.Cols != cols || centroids.Rows == 0 {
		return nil, nil, false
	}
	for _, label := range labels {
		if label < 0 || int(label) >= centroids.Rows {
			return nil, nil, false
		}
	}
	return labels, &centroids, true
}

// SaveClusters persists the label array and centroid matrix.
func (s *SnapshotStore) SaveClusters(labels []int32, centroids *Matrix) error {
	if err := s.save(labelsFile, labels); err != nil {
		return err
	}
	return s.save(centroidsFile, centroids)
}

// ivfSnapshot is the persisted form of an IVF index. The underlying data
// matrix is not stored; it is re-derived from the live catalog on load.
type ivfSnapshot struct {
	Centroids *Matrix
	Cells     [][]int32
}

// LoadIVF reattaches a persisted IVF partition to the live scaled matrix.
// A snapshot referencing rows outside the catalog is stale.
func (s *SnapshotStore) LoadIVF(scaled *Matrix, nprobe int) (*IVFIndex, bool) {
	var snap ivfSnapshot
	if !s.load(indexFile, &snap) {
		return nil, false
	}
	if snap.Centroids == nil || snap.Centroids.Cols != scaled.Cols || len(snap.Cells) != snap.Centroids.Rows {
		return nil, false
	}
	total := 0
	for _, cell := range snap.Cells {
		for _, row := range cell {
			if row < 0 || int(row) >= scaled.Rows {
				return nil, false
			}
		}
		total += len(cell)
	}
	if total != scaled.Rows {
		return nil, false
	}

	if nprobe > snap.Centroids.Rows {
		nprobe = snap.Centroids.Rows
	}
	norms := make([]float64, scaled.Rows)
	for i := 0; i < scaled.Rows; i++ {
		norms[i] = norm(scaled.Row(i)) + cosineEps
	}
	return &IVFIndex{
		data:      scaled,
		norms:     norms,
		centroids: snap.Centroids,
		cells:     snap.Cells,
		nprobe:    nprobe,
	}, true
}

// SaveIVF persists the IVF partition.
func (s *SnapshotStore) SaveIVF(idx *IVFIndex) error {
	return s.save(indexFile, ivfSnapshot{Centroids: idx.centroids, Cells: idx.cells})
}

func (s *SnapshotStore) load(name string, v any) bool {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return false
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v) == nil
}

func (s *SnapshotStore) save(name string, v any) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
