package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/musicrec/musicrec/internal/db"
)

// handleAdminListUsers returns all accounts (GET /api/admin/users).
func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.internalError(w, err, "listing users")
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": out})
}

// handleAdminStats returns service-wide counts (GET /api/admin/stats).
func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := s.users.Count(ctx)
	if err != nil {
		s.internalError(w, err, "counting users")
		return
	}
	playlists, err := s.playlists.Count(ctx)
	if err != nil {
		s.internalError(w, err, "counting playlists")
		return
	}
	liked, err := s.liked.Count(ctx)
	if err != nil {
		s.internalError(w, err, "counting liked songs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"users":       users,
		"playlists":   playlists,
		"liked_songs": liked,
	})
}

// handleAdminUserStats returns one account with its activity counts
// (GET /api/admin/users/{userID}/stats).
func (s *Server) handleAdminUserStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "looking up user")
		return
	}
	playlists, err := s.playlists.CountByUser(ctx, userID)
	if err != nil {
		s.internalError(w, err, "counting playlists")
		return
	}
	liked, err := s.liked.CountByUser(ctx, userID)
	if err != nil {
		s.internalError(w, err, "counting liked songs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":        toUserResponse(user),
		"playlists":   playlists,
		"liked_songs": liked,
	})
}

// handleAdminDeleteUser removes an account (DELETE /api/admin/users/{userID}).
// Admins cannot delete themselves.
func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	if claimsFrom(r.Context()).UserID == userID {
		respondError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	err := s.users.Delete(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "deleting user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// handleAdminSetAdmin grants or revokes the admin flag
// (PUT /api/admin/users/{userID}/admin).
func (s *Server) handleAdminSetAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Admin bool `json:"admin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	if claimsFrom(r.Context()).UserID == userID && !req.Admin {
		respondError(w, http.StatusBadRequest, "cannot revoke your own admin access")
		return
	}

	err := s.users.SetAdmin(r.Context(), userID, req.Admin)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, err, "updating admin flag")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"admin": req.Admin})
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}
