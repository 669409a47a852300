package db

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account.
type User struct {
	ID            uuid.UUID
	Username      string
	Email         string
	PasswordHash  string
	IsAdmin       bool
	EmailVerified bool
	VerifyToken   *string    // nullable, cleared on verification
	ResetToken    *string    // nullable
	ResetExpires  *time.Time // nullable
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Playlist is a user-owned named collection of songs.
type Playlist struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	CreatedAt time.Time
	SongCount int
}

// PlaylistSong is one song in a playlist. Name and artists are denormalized
// so listings never need the in-memory catalog.
type PlaylistSong struct {
	PlaylistID uuid.UUID
	SongID     string
	Name       string
	Artists    string
	AddedAt    time.Time
}

// LikedSong is one entry of a user's liked list.
type LikedSong struct {
	UserID  uuid.UUID
	SongID  string
	Name    string
	Artists string
	AddedAt time.Time
}
