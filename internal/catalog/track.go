// Package catalog holds the static track catalog the recommender is built
// over: typed track records, the fixed audio-feature layout, and CSV
// load/store for the dataset.
package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// NumFeatures is the dimensionality of every track's audio-feature vector.
const NumFeatures = 12

// Feature indices into a track's feature vector. The order matches the
// dataset's column layout and must never change: persisted scaler and
// centroid snapshots depend on it.
const (
	FeatDanceability = iota
	FeatEnergy
	FeatKey
	FeatLoudness
	FeatMode
	FeatSpeechiness
	FeatAcousticness
	FeatInstrumentalness
	FeatLiveness
	FeatValence
	FeatTempo
	FeatDurationMS
)

// FeatureNames lists the audio-feature column names in vector order.
var FeatureNames = [NumFeatures]string{
	"danceability", "energy", "key", "loudness", "mode", "speechiness",
	"acousticness", "instrumentalness", "liveness", "valence", "tempo",
	"duration_ms",
}

// Track is an immutable catalog row.
type Track struct {
	ID         string
	Name       string
	Artists    string
	Album      string
	Year       int
	DurationMS int
	Features   [NumFeatures]float32

	// Cluster is the assigned cluster id, or -1 before clustering.
	Cluster int32
}

// TrackID derives the stable track id as the md5 hex digest of
// "name|artists".
func TrackID(name, artists string) string {
	sum := md5.Sum([]byte(name + "|" + artists))
	return hex.EncodeToString(sum[:])
}

// Duration formats the track duration as "m:ss".
func (t Track) Duration() string {
	minutes := t.DurationMS / 60000
	seconds := (t.DurationMS % 60000) / 1000
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// Catalog is the full static set of tracks. It is loaded once and treated as
// immutable for the process lifetime, except for the one-time cluster
// assignment during the build phase.
type Catalog struct {
	Tracks []Track
}

// Len returns the number of tracks.
func (c *Catalog) Len() int {
	return len(c.Tracks)
}

// cleanArtists flattens a raw artists cell to a ", "-joined string. The
// dataset stores artists as Python-style list literals like ['A', "B"].
func cleanArtists(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return s
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	var names []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(inner); i++ {
		ch := inner[i]
		switch {
		case quote != 0:
			if ch == '\\' && i+1 < len(inner) {
				i++
				cur.WriteByte(inner[i])
			} else if ch == quote {
				quote = 0
			} else {
				cur.WriteByte(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ',':
			if name := strings.TrimSpace(cur.String()); name != "" {
				names = append(names, name)
			}
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if name := strings.TrimSpace(cur.String()); name != "" {
		names = append(names, name)
	}

	if len(names) == 0 {
		return s
	}
	return strings.Join(names, ", ")
}
