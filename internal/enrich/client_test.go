package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicrec/musicrec/internal/catalog"
)

func newTestClient(t *testing.T, itunesHandler, youtubeHandler http.HandlerFunc) *Client {
	t.Helper()
	itunes := httptest.NewServer(itunesHandler)
	t.Cleanup(itunes.Close)
	youtube := httptest.NewServer(youtubeHandler)
	t.Cleanup(youtube.Close)

	c := NewClient(filepath.Join(t.TempDir(), "enrich.json"), 2, zerolog.Nop())
	c.itunesURL = itunes.URL
	c.youtubeURL = youtube.URL
	return c
}

func TestLookupITunesHit(t *testing.T) {
	var gotTerm string
	c := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			gotTerm = r.URL.Query().Get("term")
			fmt.Fprint(w, `{"resultCount":1,"results":[{
				"artworkUrl100":"https://cdn.test/img/100x100bb.jpg",
				"previewUrl":"https://cdn.test/preview.m4a"}]}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("youtube fallback must not fire on an itunes hit")
		},
	)

	art, err := c.Lookup(context.Background(), "Dreams", "Fleetwood Mac, Someone Else")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.test/img/300x300bb.jpg", art.ArtworkURL)
	assert.Equal(t, "https://cdn.test/preview.m4a", art.PreviewURL)
	assert.Empty(t, art.YouTubeID)
	assert.Equal(t, "Dreams Fleetwood Mac", gotTerm, "search term uses the lead artist only")
}

func TestLookupYouTubeFallback(t *testing.T) {
	c := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"resultCount":0,"results":[]}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html><a href="/watch?v=dQw4w9WgXcQ">first</a></html>`)
		},
	)

	art, err := c.Lookup(context.Background(), "Obscure B-Side", "Nobody")
	require.NoError(t, err)

	assert.Equal(t, DefaultArtwork, art.ArtworkURL)
	assert.Equal(t, "dQw4w9WgXcQ", art.YouTubeID)
}

func TestLookupUsesCache(t *testing.T) {
	calls := 0
	c := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			calls++
			fmt.Fprint(w, `{"resultCount":1,"results":[{"artworkUrl100":"https://cdn.test/a/100x100bb.jpg"}]}`)
		},
		func(w http.ResponseWriter, r *http.Request) {},
	)

	_, err := c.Lookup(context.Background(), "Song", "Artist")
	require.NoError(t, err)
	_, err = c.Lookup(context.Background(), "Song", "Artist")
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second lookup must come from the cache")
}

func TestCachePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enrich.json")

	cache := OpenCache(path)
	id := catalog.TrackID("Song", "Artist")
	cache.Put(id, Artwork{ArtworkURL: "https://cdn.test/x.jpg"})
	require.NoError(t, cache.Save())

	reopened := OpenCache(path)
	art, ok := reopened.Get(id)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.test/x.jpg", art.ArtworkURL)

	// An unchanged cache skips the write.
	require.NoError(t, reopened.Save())
}

func TestLookupBatch(t *testing.T) {
	c := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"resultCount":1,"results":[{"artworkUrl100":"https://cdn.test/b/100x100bb.jpg"}]}`)
		},
		func(w http.ResponseWriter, r *http.Request) {},
	)

	tracks := []catalog.Track{
		{ID: catalog.TrackID("One", "A"), Name: "One", Artists: "A"},
		{ID: catalog.TrackID("Two", "B"), Name: "Two", Artists: "B"},
		{ID: catalog.TrackID("Three", "C"), Name: "Three", Artists: "C"},
	}
	c.LookupBatch(context.Background(), tracks)

	assert.Equal(t, 3, c.cache.Len())
}
