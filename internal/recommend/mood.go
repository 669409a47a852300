package recommend

import (
	"strings"

	"github.com/musicrec/musicrec/internal/catalog"
)

// emotionFeatures is the fixed subset of features used for mood labeling, in
// evaluation order. The first feature wins ties in the argmax.
var emotionFeatures = []int{
	catalog.FeatEnergy,
	catalog.FeatDanceability,
	catalog.FeatValence,
	catalog.FeatAcousticness,
	catalog.FeatInstrumentalness,
	catalog.FeatLiveness,
	catalog.FeatSpeechiness,
}

// moodByFeature maps a dominant emotion feature to its qualitative tag.
var moodByFeature = map[int]string{
	catalog.FeatEnergy:           "Energetic",
	catalog.FeatDanceability:     "Energetic",
	catalog.FeatValence:          "Happy",
	catalog.FeatAcousticness:     "Relaxed",
	catalog.FeatInstrumentalness: "Calm",
	catalog.FeatLiveness:         "Live",
	catalog.FeatSpeechiness:      "Talky",
}

// LabelMoods derives a qualitative mood tag for every cluster that has at
// least one member. Each cluster's 7 emotion-feature means (over raw, not
// scaled, values) are normalized locally to [0,1]; the dominant feature
// picks the tag and its normalized value picks the intensity word.
//
// The normalization is intentionally local per cluster: identical absolute
// feature values can land in different intensity buckets across clusters.
func LabelMoods(cat *catalog.Catalog, labels []int32) map[int]string {
	sums := make(map[int][]float64)
	members := make(map[int]int)
	for i, label := range labels {
		cid := int(label)
		sum, ok := sums[cid]
		if !ok {
			sum = make([]float64, len(emotionFeatures))
			sums[cid] = sum
		}
		for e, feat := range emotionFeatures {
			sum[e] += float64(cat.Tracks[i].Features[feat])
		}
		members[cid]++
	}

	moods := make(map[int]string, len(sums))
	for cid, sum := range sums {
		means := make([]float64, len(sum))
		for e, s := range sum {
			means[e] = s / float64(members[cid])
		}
		moods[cid] = moodLabel(means)
	}
	return moods
}

// moodLabel turns the 7 emotion-feature means of one cluster into a label
// like "High Energetic".
func moodLabel(means []float64) string {
	lo, hi := means[0], means[0]
	for _, v := range means[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	// Local min-max; a flat profile collapses to all zeros so ties read as
	// neutral.
	normed := make([]float64, len(means))
	if hi > lo {
		for e, v := range means {
			normed[e] = (v - lo) / (hi - lo)
		}
	}

	top := 0
	for e, v := range normed {
		if v > normed[top] {
			top = e
		}
	}

	mood, ok := moodByFeature[emotionFeatures[top]]
	if !ok {
		mood = titleCase(catalog.FeatureNames[emotionFeatures[top]])
	}
	return intensity(normed[top]) + " " + mood
}

// intensity buckets a normalized value into an intensity word.
func intensity(v float64) string {
	switch {
	case v < 0.33:
		return "Low"
	case v < 0.66:
		return "Medium"
	default:
		return "High"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
