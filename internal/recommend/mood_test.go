package recommend

import (
	"testing"

	"github.com/musicrec/musicrec/internal/catalog"
)

// emotionMeans builds a 7-value mean vector in emotionFeatures order:
// energy, danceability, valence, acousticness, instrumentalness, liveness,
// speechiness.
func emotionMeans(energy, dance, valence, acoustic, instrumental, live, speech float64) []float64 {
	return []float64{energy, dance, valence, acoustic, instrumental, live, speech}
}

func TestMoodLabel(t *testing.T) {
	tests := []struct {
		name  string
		means []float64
		want  string
	}{
		{
			name:  "energy dominant",
			means: emotionMeans(0.9, 0.2, 0.1, 0.1, 0.1, 0.1, 0.1),
			want:  "High Energetic",
		},
		{
			name:  "danceability dominant still energetic",
			means: emotionMeans(0.2, 0.9, 0.1, 0.1, 0.1, 0.1, 0.1),
			want:  "High Energetic",
		},
		{
			name:  "valence dominant",
			means: emotionMeans(0.1, 0.2, 0.95, 0.1, 0.1, 0.1, 0.1),
			want:  "High Happy",
		},
		{
			name:  "acousticness dominant",
			means: emotionMeans(0.1, 0.1, 0.1, 0.8, 0.1, 0.1, 0.1),
			want:  "High Relaxed",
		},
		{
			name:  "instrumentalness dominant",
			means: emotionMeans(0.1, 0.1, 0.1, 0.1, 0.8, 0.1, 0.1),
			want:  "High Calm",
		},
		{
			name:  "liveness dominant",
			means: emotionMeans(0.1, 0.1, 0.1, 0.1, 0.1, 0.8, 0.1),
			want:  "High Live",
		},
		{
			name:  "speechiness dominant",
			means: emotionMeans(0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.8),
			want:  "High Talky",
		},
		{
			// A flat profile normalizes to all zeros: ties flatten to
			// neutral and the first feature wins the argmax.
			name:  "flat profile",
			means: emotionMeans(0.4, 0.4, 0.4, 0.4, 0.4, 0.4, 0.4),
			want:  "Low Energetic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := moodLabel(tt.means); got != tt.want {
				t.Errorf("moodLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIntensityBuckets(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "Low"},
		{0.32, "Low"},
		{0.33, "Medium"},
		{0.5, "Medium"},
		{0.65, "Medium"},
		{0.66, "High"},
		{1, "High"},
	}
	for _, tt := range tests {
		if got := intensity(tt.v); got != tt.want {
			t.Errorf("intensity(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestLabelMoods(t *testing.T) {
	energetic := [catalog.NumFeatures]float32{}
	energetic[catalog.FeatEnergy] = 0.95
	energetic[catalog.FeatValence] = 0.2

	happy := [catalog.NumFeatures]float32{}
	happy[catalog.FeatValence] = 0.9
	happy[catalog.FeatEnergy] = 0.1

	cat := &catalog.Catalog{Tracks: []catalog.Track{
		{Name: "a", Features: energetic},
		{Name: "b", Features: energetic},
		{Name: "c", Features: happy},
	}}
	labels := []int32{0, 0, 1}

	moods := LabelMoods(cat, labels)
	if len(moods) != 2 {
		t.Fatalf("got %d moods, want 2", len(moods))
	}
	if moods[0] != "High Energetic" {
		t.Errorf("cluster 0 mood = %q, want High Energetic", moods[0])
	}
	if moods[1] != "High Happy" {
		t.Errorf("cluster 1 mood = %q, want High Happy", moods[1])
	}

	// Stable across repeated runs with identical membership.
	again := LabelMoods(cat, labels)
	for cid, mood := range moods {
		if again[cid] != mood {
			t.Errorf("cluster %d mood changed across runs: %q vs %q", cid, mood, again[cid])
		}
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("tempo"); got != "Tempo" {
		t.Errorf("titleCase(tempo) = %q, want Tempo", got)
	}
	if got := titleCase(""); got != "" {
		t.Errorf("titleCase(empty) = %q, want empty", got)
	}
}
