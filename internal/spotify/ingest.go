package spotify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/musicrec/musicrec/internal/catalog"
)

// maxFeaturesPerRequest is the Spotify audio-features batch limit.
const maxFeaturesPerRequest = 100

// FetchPlaylistTracks pulls every track of a public playlist, fetches its
// audio features, and returns catalog rows ready for the CSV writer. Tracks
// Spotify has no audio features for are dropped.
func (c *Client) FetchPlaylistTracks(ctx context.Context, playlistID string) ([]catalog.Track, error) {
	page, err := c.api.GetPlaylistItems(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, fmt.Errorf("fetching playlist %s: %w", playlistID, err)
	}

	var tracks []catalog.Track
	var ids []spotify.ID
	for {
		for _, item := range page.Items {
			full := item.Track.Track
			if full == nil || full.ID == "" {
				continue
			}
			tracks = append(tracks, convertTrack(full))
			ids = append(ids, full.ID)
		}
		err = c.api.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetching next playlist page: %w", err)
		}
	}

	withFeatures, err := c.applyAudioFeatures(ctx, tracks, ids)
	if err != nil {
		return nil, err
	}
	return withFeatures, nil
}

// applyAudioFeatures fills the feature vectors in batches of 100 and drops
// tracks without features.
func (c *Client) applyAudioFeatures(ctx context.Context, tracks []catalog.Track, ids []spotify.ID) ([]catalog.Track, error) {
	indexByID := make(map[string]int, len(ids))
	for i, id := range ids {
		indexByID[id.String()] = i
	}
	got := make([]bool, len(tracks))

	for i := 0; i < len(ids); i += maxFeaturesPerRequest {
		end := min(i+maxFeaturesPerRequest, len(ids))
		features, err := c.api.GetAudioFeatures(ctx, ids[i:end]...)
		if err != nil {
			return nil, fmt.Errorf("fetching audio features (batch %d-%d): %w", i+1, end, err)
		}
		for _, f := range features {
			if f == nil {
				continue
			}
			idx, ok := indexByID[f.ID.String()]
			if !ok {
				continue
			}
			setFeatures(&tracks[idx], f)
			got[idx] = true
		}
	}

	out := tracks[:0]
	for i := range tracks {
		if got[i] {
			out = append(out, tracks[i])
		}
	}
	return out, nil
}

func convertTrack(full *spotify.FullTrack) catalog.Track {
	names := make([]string, len(full.Artists))
	for i, a := range full.Artists {
		names[i] = a.Name
	}
	artists := strings.Join(names, ", ")

	return catalog.Track{
		ID:         catalog.TrackID(full.Name, artists),
		Name:       full.Name,
		Artists:    artists,
		Album:      full.Album.Name,
		Year:       releaseYear(full.Album.ReleaseDate),
		DurationMS: int(full.Duration),
		Cluster:    -1,
	}
}

func setFeatures(t *catalog.Track, f *spotify.AudioFeatures) {
	t.Features[catalog.FeatDanceability] = f.Danceability
	t.Features[catalog.FeatEnergy] = f.Energy
	t.Features[catalog.FeatKey] = float32(f.Key)
	t.Features[catalog.FeatLoudness] = f.Loudness
	t.Features[catalog.FeatMode] = float32(f.Mode)
	t.Features[catalog.FeatSpeechiness] = f.Speechiness
	t.Features[catalog.FeatAcousticness] = f.Acousticness
	t.Features[catalog.FeatInstrumentalness] = f.Instrumentalness
	t.Features[catalog.FeatLiveness] = f.Liveness
	t.Features[catalog.FeatValence] = f.Valence
	t.Features[catalog.FeatTempo] = f.Tempo
	t.Features[catalog.FeatDurationMS] = float32(f.Duration)
	if t.DurationMS == 0 {
		t.DurationMS = int(f.Duration)
	}
}

// releaseYear parses the year out of Spotify release dates, which come as
// "2006", "2006-01", or "2006-01-02".
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
