package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlaylistRepository handles playlist database operations. Every method takes
// the owning user's id so one user can never touch another's playlists.
type PlaylistRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a playlist. A duplicate name for the same user returns
// ErrConflict.
func (r *PlaylistRepository) Create(ctx context.Context, userID uuid.UUID, name string) (*Playlist, error) {
	p := &Playlist{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	query := `
		INSERT INTO playlists (id, user_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, p.ID, p.UserID, p.Name, p.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("inserting playlist: %w", err)
	}
	return p, nil
}

// Get retrieves one playlist owned by the user.
func (r *PlaylistRepository) Get(ctx context.Context, userID, id uuid.UUID) (*Playlist, error) {
	query := `
		SELECT p.id, p.user_id, p.name, p.created_at, COUNT(s.song_id)
		FROM playlists p
		LEFT JOIN playlist_songs s ON s.playlist_id = p.id
		WHERE p.id = $1 AND p.user_id = $2
		GROUP BY p.id
	`
	var p Playlist
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.SongCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	return &p, nil
}

// ListByUser returns the user's playlists with song counts, newest first.
func (r *PlaylistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Playlist, error) {
	query := `
		SELECT p.id, p.user_id, p.name, p.created_at, COUNT(s.song_id)
		FROM playlists p
		LEFT JOIN playlist_songs s ON s.playlist_id = p.id
		WHERE p.user_id = $1
		GROUP BY p.id
		ORDER BY p.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.SongCount); err != nil {
			return nil, fmt.Errorf("scanning playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// Count returns the total number of playlists across all users.
func (r *PlaylistRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM playlists`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting playlists: %w", err)
	}
	return n, nil
}

// CountByUser returns the number of playlists one user owns.
func (r *PlaylistRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM playlists WHERE user_id = $1`
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting playlists: %w", err)
	}
	return n, nil
}

// Rename changes a playlist's name.
func (r *PlaylistRepository) Rename(ctx context.Context, userID, id uuid.UUID, name string) error {
	query := `UPDATE playlists SET name = $3 WHERE id = $1 AND user_id = $2`
	result, err := r.pool.Exec(ctx, query, id, userID, name)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("renaming playlist: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a playlist and, via cascade, its songs.
func (r *PlaylistRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting playlist: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSong appends a song. Adding a song that is already present is a no-op.
func (r *PlaylistRepository) AddSong(ctx context.Context, userID uuid.UUID, song *PlaylistSong) error {
	// Ownership check rides along in the INSERT ... SELECT.
	query := `
		INSERT INTO playlist_songs (playlist_id, song_id, name, artists, added_at)
		SELECT p.id, $3, $4, $5, $6
		FROM playlists p
		WHERE p.id = $1 AND p.user_id = $2
		ON CONFLICT (playlist_id, song_id) DO NOTHING
	`
	song.AddedAt = time.Now()
	result, err := r.pool.Exec(ctx, query,
		song.PlaylistID, userID, song.SongID, song.Name, song.Artists, song.AddedAt)
	if err != nil {
		return fmt.Errorf("adding playlist song: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Either the playlist is not the user's, or the song was already
		// there. Distinguish so the handler can 404 the former.
		if _, err := r.Get(ctx, userID, song.PlaylistID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveSong drops a song from a playlist.
func (r *PlaylistRepository) RemoveSong(ctx context.Context, userID, playlistID uuid.UUID, songID string) error {
	query := `
		DELETE FROM playlist_songs s
		USING playlists p
		WHERE s.playlist_id = p.id AND p.id = $1 AND p.user_id = $2 AND s.song_id = $3
	`
	result, err := r.pool.Exec(ctx, query, playlistID, userID, songID)
	if err != nil {
		return fmt.Errorf("removing playlist song: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSongs returns a playlist's songs in insertion order.
func (r *PlaylistRepository) ListSongs(ctx context.Context, userID, playlistID uuid.UUID) ([]PlaylistSong, error) {
	if _, err := r.Get(ctx, userID, playlistID); err != nil {
		return nil, err
	}
	query := `
		SELECT playlist_id, song_id, name, artists, added_at
		FROM playlist_songs
		WHERE playlist_id = $1
		ORDER BY added_at
	`
	rows, err := r.pool.Query(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("listing playlist songs: %w", err)
	}
	defer rows.Close()

	var songs []PlaylistSong
	for rows.Next() {
		var s PlaylistSong
		if err := rows.Scan(&s.PlaylistID, &s.SongID, &s.Name, &s.Artists, &s.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning playlist song: %w", err)
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}
