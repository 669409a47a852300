// Package enrich resolves cover artwork and preview links for tracks from
// the iTunes Search API, with a YouTube search fallback when iTunes has
// nothing. Results are cached on disk across runs.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/musicrec/musicrec/internal/catalog"
)

const (
	itunesBaseURL  = "https://itunes.apple.com/search"
	youtubeBaseURL = "https://www.youtube.com/results"

	// DefaultArtwork is served when no source had an image.
	DefaultArtwork = "/static/default-cover.png"

	defaultWorkers = 8
)

// youtubeIDPattern extracts the first video id from a results page.
var youtubeIDPattern = regexp.MustCompile(`watch\?v=([\w-]{11})`)

// Artwork is the enrichment result for one track.
type Artwork struct {
	ArtworkURL string `json:"artwork_url"`
	PreviewURL string `json:"preview_url,omitempty"`
	YouTubeID  string `json:"youtube_id,omitempty"`
}

// Client fetches artwork with an on-disk cache.
type Client struct {
	httpClient *http.Client
	itunesURL  string
	youtubeURL string
	cache      *Cache
	workers    int
	log        zerolog.Logger
}

// NewClient creates a Client backed by the cache at cachePath.
func NewClient(cachePath string, workers int, log zerolog.Logger) *Client {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		itunesURL:  itunesBaseURL,
		youtubeURL: youtubeBaseURL,
		cache:      OpenCache(cachePath),
		workers:    workers,
		log:        log,
	}
}

// Lookup returns artwork for a track, consulting the cache first. A track
// no source knows gets the default artwork, cached, and no error.
func (c *Client) Lookup(ctx context.Context, name, artists string) (Artwork, error) {
	id := catalog.TrackID(name, artists)
	if art, ok := c.cache.Get(id); ok {
		return art, nil
	}

	art, err := c.lookupITunes(ctx, name, artists)
	if err != nil {
		return Artwork{}, err
	}
	if art.ArtworkURL == "" {
		videoID, err := c.lookupYouTube(ctx, name, artists)
		if err != nil {
			return Artwork{}, err
		}
		art.YouTubeID = videoID
		art.ArtworkURL = DefaultArtwork
	}

	c.cache.Put(id, art)
	return art, nil
}

// LookupBatch enriches all tracks concurrently and saves the cache once at
// the end. Individual failures are logged and skipped.
func (c *Client) LookupBatch(ctx context.Context, tracks []catalog.Track) {
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	for i := range tracks {
		t := &tracks[i]
		if _, ok := c.cache.Get(t.ID); ok {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := c.Lookup(ctx, t.Name, t.Artists); err != nil {
				c.log.Warn().Err(err).Str("track", t.Name).Msg("enrichment failed")
			}
		}()
	}
	wg.Wait()

	if err := c.cache.Save(); err != nil {
		c.log.Warn().Err(err).Msg("saving enrich cache")
	} else {
		c.log.Info().Int("entries", c.cache.Len()).Msg("saved enrich cache")
	}
}

// Save flushes the cache to disk.
func (c *Client) Save() error {
	return c.cache.Save()
}

type itunesResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		ArtworkURL100 string `json:"artworkUrl100"`
		PreviewURL    string `json:"previewUrl"`
	} `json:"results"`
}

func (c *Client) lookupITunes(ctx context.Context, name, artists string) (Artwork, error) {
	params := url.Values{
		"term":   {name + " " + firstArtist(artists)},
		"entity": {"song"},
		"limit":  {"1"},
	}
	body, err := c.get(ctx, c.itunesURL+"?"+params.Encode())
	if err != nil {
		return Artwork{}, fmt.Errorf("querying itunes: %w", err)
	}

	var resp itunesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Artwork{}, fmt.Errorf("parsing itunes response: %w", err)
	}
	if resp.ResultCount == 0 || len(resp.Results) == 0 {
		return Artwork{}, nil
	}

	r := resp.Results[0]
	return Artwork{
		// The API hands out a 100x100 thumbnail; the CDN serves larger
		// renditions at the same path.
		ArtworkURL: strings.Replace(r.ArtworkURL100, "100x100bb", "300x300bb", 1),
		PreviewURL: r.PreviewURL,
	}, nil
}

func (c *Client) lookupYouTube(ctx context.Context, name, artists string) (string, error) {
	params := url.Values{
		"search_query": {name + " " + firstArtist(artists)},
	}
	body, err := c.get(ctx, c.youtubeURL+"?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("querying youtube: %w", err)
	}

	m := youtubeIDPattern.FindSubmatch(body)
	if m == nil {
		return "", nil
	}
	return string(m[1]), nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// firstArtist trims a comma-joined artist list to its lead artist, which
// keeps search terms short and specific.
func firstArtist(artists string) string {
	if i := strings.Index(artists, ","); i >= 0 {
		return strings.TrimSpace(artists[:i])
	}
	return artists
}
