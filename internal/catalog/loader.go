package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// LoadCSV reads and cleans the catalog dataset from a CSV file.
func LoadCSV(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()

	cat, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return cat, nil
}

// ReadCSV parses catalog rows from r. Cleaning mirrors the dataset
// preparation the recommender was tuned on: artist list literals are
// flattened, rows with empty names are dropped, duplicate (name, artists)
// pairs keep their first occurrence, and unparseable feature values become 0.
func ReadCSV(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	required := []string{"name", "artists", "year"}
	for _, name := range FeatureNames {
		required = append(required, name)
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	albumCol, hasAlbum := col["album"]

	seen := make(map[string]struct{})
	cat := &Catalog{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		field := func(i int) string {
			if i < len(record) {
				return record[i]
			}
			return ""
		}

		name := strings.TrimSpace(field(col["name"]))
		if name == "" {
			continue
		}
		artists := cleanArtists(field(col["artists"]))

		key := name + "|" + artists
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		track := Track{
			ID:      TrackID(name, artists),
			Name:    name,
			Artists: artists,
			Cluster: -1,
		}
		if hasAlbum {
			track.Album = strings.TrimSpace(field(albumCol))
		}
		if year, err := strconv.Atoi(strings.TrimSpace(field(col["year"]))); err == nil {
			track.Year = year
		}
		for d, fname := range FeatureNames {
			v, err := strconv.ParseFloat(strings.TrimSpace(field(col[fname])), 32)
			if err != nil {
				v = 0
			}
			track.Features[d] = float32(v)
		}
		track.DurationMS = int(track.Features[FeatDurationMS])

		cat.Tracks = append(cat.Tracks, track)
	}

	return cat, nil
}

// WriteCSV writes tracks in the loader's column layout. Used by the ingest
// tool to produce catalog files.
func WriteCSV(w io.Writer, tracks []Track) error {
	cw := csv.NewWriter(w)

	header := []string{"name", "artists", "album", "year"}
	header = append(header, FeatureNames[:]...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, t := range tracks {
		row := []string{t.Name, t.Artists, t.Album, strconv.Itoa(t.Year)}
		for _, v := range t.Features {
			row = append(row, strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
