package web

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/musicrec/musicrec/internal/db"
	"github.com/musicrec/musicrec/internal/recommend"
)

// Recommender is the read-only music surface the handlers serve.
type Recommender interface {
	SearchTitles(query string, limit int) []recommend.TitleMatch
	Recommend(query string, topN int, includeQuery bool) []recommend.Recommendation
}

// UserStore is the subset of db.UserRepository the handlers need.
type UserStore interface {
	Create(ctx context.Context, user *db.User) error
	Get(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetByEmail(ctx context.Context, email string) (*db.User, error)
	GetByLogin(ctx context.Context, login string) (*db.User, error)
	GetByVerifyToken(ctx context.Context, token string) (*db.User, error)
	GetByResetToken(ctx context.Context, token string) (*db.User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	UpdateUsername(ctx context.Context, id uuid.UUID, username string) error
	UpdateEmail(ctx context.Context, id uuid.UUID, email, verifyToken string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error
	List(ctx context.Context) ([]db.User, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PlaylistStore is the subset of db.PlaylistRepository the handlers need.
type PlaylistStore interface {
	Create(ctx context.Context, userID uuid.UUID, name string) (*db.Playlist, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*db.Playlist, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]db.Playlist, error)
	Rename(ctx context.Context, userID, id uuid.UUID, name string) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	AddSong(ctx context.Context, userID uuid.UUID, song *db.PlaylistSong) error
	RemoveSong(ctx context.Context, userID, playlistID uuid.UUID, songID string) error
	ListSongs(ctx context.Context, userID, playlistID uuid.UUID) ([]db.PlaylistSong, error)
	Count(ctx context.Context) (int, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// LikedStore is the subset of db.LikedRepository the handlers need.
type LikedStore interface {
	Toggle(ctx context.Context, song *db.LikedSong) (bool, error)
	List(ctx context.Context, userID uuid.UUID) ([]db.LikedSong, error)
	Count(ctx context.Context) (int, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// MailSender delivers account email.
type MailSender interface {
	SendVerification(to, token string) error
	SendPasswordReset(to, token string) error
}
