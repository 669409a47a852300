package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LikedRepository handles the per-user liked songs list.
type LikedRepository struct {
	pool *pgxpool.Pool
}

// Toggle likes the song if it is not liked yet, otherwise unlikes it, and
// reports the resulting state.
func (r *LikedRepository) Toggle(ctx context.Context, song *LikedSong) (liked bool, err error) {
	del := `DELETE FROM liked_songs WHERE user_id = $1 AND song_id = $2`
	result, err := r.pool.Exec(ctx, del, song.UserID, song.SongID)
	if err != nil {
		return false, fmt.Errorf("unliking song: %w", err)
	}
	if result.RowsAffected() > 0 {
		return false, nil
	}

	ins := `
		INSERT INTO liked_songs (user_id, song_id, name, artists, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, song_id) DO NOTHING
	`
	song.AddedAt = time.Now()
	if _, err := r.pool.Exec(ctx, ins, song.UserID, song.SongID, song.Name, song.Artists, song.AddedAt); err != nil {
		return false, fmt.Errorf("liking song: %w", err)
	}
	return true, nil
}

// List returns the user's liked songs, most recently liked first.
func (r *LikedRepository) List(ctx context.Context, userID uuid.UUID) ([]LikedSong, error) {
	query := `
		SELECT user_id, song_id, name, artists, added_at
		FROM liked_songs
		WHERE user_id = $1
		ORDER BY added_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing liked songs: %w", err)
	}
	defer rows.Close()

	var songs []LikedSong
	for rows.Next() {
		var s LikedSong
		if err := rows.Scan(&s.UserID, &s.SongID, &s.Name, &s.Artists, &s.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning liked song: %w", err)
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// Count returns the total number of liked songs across all users.
func (r *LikedRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM liked_songs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting liked songs: %w", err)
	}
	return n, nil
}

// CountByUser returns the number of songs one user has liked.
func (r *LikedRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM liked_songs WHERE user_id = $1`
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting liked songs: %w", err)
	}
	return n, nil
}

// IsLiked reports whether the user has liked the song.
func (r *LikedRepository) IsLiked(ctx context.Context, userID uuid.UUID, songID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM liked_songs WHERE user_id = $1 AND song_id = $2)`
	if err := r.pool.QueryRow(ctx, query, userID, songID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking liked song: %w", err)
	}
	return exists, nil
}
