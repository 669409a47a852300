// Command musicrec-ingest builds a track catalog CSV from one or more
// public Spotify playlists, using SPOTIFY_ID and SPOTIFY_SECRET client
// credentials.
//
// Usage:
//
//	musicrec-ingest -out data/tracks.csv PLAYLIST_ID [PLAYLIST_ID...]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/musicrec/musicrec/internal/catalog"
	"github.com/musicrec/musicrec/internal/spotify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	out := flag.String("out", "data/tracks.csv", "output CSV path")
	flag.Parse()
	if flag.NArg() == 0 {
		return fmt.Errorf("no playlist ids given")
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	ctx := context.Background()

	client, err := spotify.New(ctx, os.Getenv("SPOTIFY_ID"), os.Getenv("SPOTIFY_SECRET"))
	if err != nil {
		return fmt.Errorf("authenticating with spotify: %w", err)
	}

	seen := make(map[string]bool)
	var tracks []catalog.Track
	for _, playlistID := range flag.Args() {
		log.Info().Str("playlist", playlistID).Msg("fetching playlist")
		fetched, err := client.FetchPlaylistTracks(ctx, playlistID)
		if err != nil {
			return fmt.Errorf("fetching playlist %s: %w", playlistID, err)
		}
		added := 0
		for _, t := range fetched {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			tracks = append(tracks, t)
			added++
		}
		log.Info().Str("playlist", playlistID).Int("tracks", added).Msg("fetched playlist")
	}
	if len(tracks) == 0 {
		return fmt.Errorf("no tracks with audio features found")
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", *out, err)
	}
	defer f.Close()
	if err := catalog.WriteCSV(f, tracks); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", *out, err)
	}

	log.Info().Int("tracks", len(tracks)).Str("path", *out).Msg("wrote catalog")
	return nil
}
