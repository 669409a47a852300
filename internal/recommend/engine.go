package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/musicrec/musicrec/internal/catalog"
)

// Defaults for the build and query phases.
const (
	DefaultClusters = 150
	DefaultTopN     = 10

	// overfetch widens index queries beyond top_n so re-ranking bonuses
	// cannot push near-miss candidates out of reach.
	overfetch = 20

	clusterBonus = 0.1
	artistBonus  = 0.1
)

// Index backend names.
const (
	BackendBrute = "brute"
	BackendIVF   = "ivf"
)

// BuildConfig controls the one-time engine build.
type BuildConfig struct {
	KMeans KMeansConfig

	// IndexBackend selects "brute" (exact, the reference backend) or "ivf"
	// (approximate). Empty means brute.
	IndexBackend string
	IVFLists     int
	IVFProbes    int

	// Snapshots, when set, is consulted before each build stage and updated
	// after recomputation.
	Snapshots *SnapshotStore
}

// TitleMatch is one unranked title-search result.
type TitleMatch struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists string `json:"artists"`
}

// Recommendation is one ranked entry of a recommendation result.
type Recommendation struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Artists     string  `json:"artists"`
	Album       string  `json:"album,omitempty"`
	ReleaseYear int     `json:"release_year"`
	Duration    string  `json:"duration"`
	Cluster     int     `json:"cluster"`
	ClusterMood string  `json:"cluster_mood"`
	Score       float64 `json:"score"`
}

// Engine owns the frozen recommendation state. Build constructs it once;
// afterwards every field is immutable, so SearchTitles and Recommend are
// pure reads safe for unlimited concurrent callers without locking.
type Engine struct {
	cat       *catalog.Catalog
	scaler    *Scaler
	scaled    *Matrix
	labels    []int32
	centroids *Matrix
	moods     map[int]string
	index     Index
	titles    map[string]int
}

// Build runs the full build phase: fit (or load) the scaler, cluster (or
// load labels and centroids), label cluster moods, and build (or load) the
// similarity index. Persisted artifacts whose length no longer matches the
// catalog are treated as stale and recomputed.
func Build(cat *catalog.Catalog, cfg BuildConfig, log zerolog.Logger) (*Engine, error) {
	n := cat.Len()
	if n == 0 {
		return nil, ErrEmptyCatalog
	}
	if cfg.KMeans.K == 0 {
		cfg.KMeans.K = DefaultClusters
	}
	if cfg.KMeans.K < 0 || cfg.KMeans.K > n {
		return nil, fmt.Errorf("%w: k=%d with %d rows", ErrBadClusterCount, cfg.KMeans.K, n)
	}

	raw := FeatureMatrix(cat)

	scaler, err := buildScaler(raw, cfg.Snapshots, log)
	if err != nil {
		return nil, err
	}
	scaled := scaler.Transform(raw)

	labels, centroids, err := buildClusters(scaled, cfg, log)
	if err != nil {
		return nil, err
	}
	for i := range cat.Tracks {
		cat.Tracks[i].Cluster = labels[i]
	}

	moods := LabelMoods(cat, labels)
	log.Info().Int("clusters", centroids.Rows).Int("moods", len(moods)).Msg("labeled cluster moods")

	index, err := buildIndex(scaled, cfg, log)
	if err != nil {
		return nil, err
	}

	titles := make(map[string]int, n)
	for i := range cat.Tracks {
		key := strings.ToLower(cat.Tracks[i].Name)
		if _, ok := titles[key]; !ok {
			titles[key] = i
		}
	}

	return &Engine{
		cat:       cat,
		scaler:    scaler,
		scaled:    scaled,
		labels:    labels,
		centroids: centroids,
		moods:     moods,
		index:     index,
		titles:    titles,
	}, nil
}

func buildScaler(raw *Matrix, snaps *SnapshotStore, log zerolog.Logger) (*Scaler, error) {
	if snaps != nil {
		if s, ok := snaps.LoadScaler(raw.Cols); ok {
			log.Info().Msg("loaded scaler snapshot")
			return s, nil
		}
	}

	s, err := FitScaler(raw)
	if err != nil {
		return nil, fmt.Errorf("fitting scaler: %w", err)
	}
	log.Info().Int("rows", raw.Rows).Msg("fitted feature scaler")
	if snaps != nil {
		if err := snaps.SaveScaler(s); err != nil {
			log.Warn().Err(err).Msg("saving scaler snapshot")
		}
	}
	return s, nil
}

func buildClusters(scaled *Matrix, cfg BuildConfig, log zerolog.Logger) ([]int32, *Matrix, error) {
	if cfg.Snapshots != nil {
		if labels, centroids, ok := cfg.Snapshots.LoadClusters(scaled.Rows, scaled.Cols); ok {
			log.Info().Int("clusters", centroids.Rows).Msg("loaded cluster snapshot")
			return labels, centroids, nil
		}
	}

	log.Info().Int("k", cfg.KMeans.K).Int("rows", scaled.Rows).Msg("clustering catalog")
	labels, centroids, err := MiniBatchKMeans(scaled, cfg.KMeans)
	if err != nil {
		return nil, nil, fmt.Errorf("clustering: %w", err)
	}
	if cfg.Snapshots != nil {
		if err := cfg.Snapshots.SaveClusters(labels, centroids); err != nil {
			log.Warn().Err(err).Msg("saving cluster snapshot")
		}
	}
	return labels, centroids, nil
}

func buildIndex(scaled *Matrix, cfg BuildConfig, log zerolog.Logger) (Index, error) {
	if cfg.IndexBackend != BackendIVF {
		// The brute backend has no derived state beyond row norms; it is
		// rebuilt from the scaled matrix instead of persisted.
		return NewBruteIndex(scaled), nil
	}

	nlist := cfg.IVFLists
	if nlist <= 0 {
		nlist = DefaultIVFLists
	}
	nprobe := cfg.IVFProbes
	if nprobe <= 0 {
		nprobe = DefaultIVFProbes
	}

	if cfg.Snapshots != nil {
		if idx, ok := cfg.Snapshots.LoadIVF(scaled, nprobe); ok {
			log.Info().Msg("loaded similarity index snapshot")
			return idx, nil
		}
	}

	log.Info().Int("lists", nlist).Int("probes", nprobe).Msg("building ivf index")
	idx, err := NewIVFIndex(scaled, nlist, nprobe, cfg.KMeans.Seed)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	if cfg.Snapshots != nil {
		if err := cfg.Snapshots.SaveIVF(idx); err != nil {
			log.Warn().Err(err).Msg("saving index snapshot")
		}
	}
	return idx, nil
}

// Mood returns the mood label of a cluster, or "Unknown".
func (e *Engine) Mood(cluster int) string {
	if mood, ok := e.moods[cluster]; ok {
		return mood
	}
	return "Unknown"
}

// SearchTitles returns unranked matches for a partial title: the exact match
// if one exists, otherwise up to limit name-prefix matches in catalog order.
func (e *Engine) SearchTitles(query string, limit int) []TitleMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultTopN
	}

	if row, ok := e.titles[q]; ok {
		return []TitleMatch{e.titleMatch(row)}
	}

	var out []TitleMatch
	for i := range e.cat.Tracks {
		if strings.HasPrefix(strings.ToLower(e.cat.Tracks[i].Name), q) {
			out = append(out, e.titleMatch(i))
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func (e *Engine) titleMatch(row int) TitleMatch {
	t := &e.cat.Tracks[row]
	return TitleMatch{ID: t.ID, Name: t.Name, Artists: t.Artists}
}

// Recommend resolves the query title to an anchor track and returns up to
// topN tracks ranked by composite score: raw cosine similarity plus a 0.1
// bonus for sharing the anchor's cluster and another 0.1 for an identical
// artist string. An unresolvable title yields an empty result, not an error.
// With includeQuery the anchor itself is prepended as the first entry.
func (e *Engine) Recommend(query string, topN int, includeQuery bool) []Recommendation {
	if topN <= 0 {
		topN = DefaultTopN
	}

	anchor, ok := e.resolve(query)
	if !ok {
		return nil
	}
	anchorTrack := &e.cat.Tracks[anchor]

	scores, ids := e.index.Search(e.scaled.Row(anchor), topN+overfetch)

	type candidate struct {
		row       int
		composite float64
	}
	candidates := make([]candidate, 0, len(ids))
	for i, row := range ids {
		if row == anchor {
			continue
		}
		composite := float64(scores[i])
		if e.labels[row] == e.labels[anchor] {
			composite += clusterBonus
		}
		if e.cat.Tracks[row].Artists == anchorTrack.Artists {
			composite += artistBonus
		}
		candidates = append(candidates, candidate{row, composite})
	}

	// Stable sort: ties keep closest-first index order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].composite > candidates[j].composite
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	out := make([]Recommendation, 0, len(candidates)+1)
	if includeQuery {
		out = append(out, e.recommendation(anchor, 1+clusterBonus+artistBonus))
	}
	for _, c := range candidates {
		out = append(out, e.recommendation(c.row, c.composite))
	}
	return out
}

func (e *Engine) recommendation(row int, score float64) Recommendation {
	t := &e.cat.Tracks[row]
	cluster := int(e.labels[row])
	return Recommendation{
		ID:          t.ID,
		Name:        t.Name,
		Artists:     t.Artists,
		Album:       t.Album,
		ReleaseYear: t.Year,
		Duration:    t.Duration(),
		Cluster:     cluster,
		ClusterMood: e.Mood(cluster),
		Score:       score,
	}
}
