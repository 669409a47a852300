package web

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/musicrec/musicrec/internal/auth"
	"github.com/musicrec/musicrec/internal/db"
)

type userResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	IsAdmin       bool   `json:"is_admin"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
}

func toUserResponse(u *db.User) userResponse {
	return userResponse{
		ID:            u.ID.String(),
		Username:      u.Username,
		Email:         u.Email,
		IsAdmin:       u.IsAdmin,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// handleMe returns the calling user's profile (GET /api/me).
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	user, err := s.users.Get(r.Context(), claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}
	if err != nil {
		s.internalError(w, err, "looking up user")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

// handleChangePassword requires the current password
// (POST /api/change-password).
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	claims := claimsFrom(r.Context())
	user, err := s.users.Get(r.Context(), claims.UserID)
	if err != nil {
		s.internalError(w, err, "looking up user")
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		respondError(w, http.StatusUnauthorized, "wrong current password")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.internalError(w, err, "hashing password")
		return
	}
	if err := s.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.internalError(w, err, "updating password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// handleUpdateUsername changes the display name (POST /api/update-username).
func (s *Server) handleUpdateUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	claims := claimsFrom(r.Context())
	if err := s.users.UpdateUsername(r.Context(), claims.UserID, req.Username); err != nil {
		s.internalError(w, err, "updating username")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "username updated"})
}

// handleUpdateEmail changes the address and restarts verification
// (POST /api/update-email).
func (s *Server) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	token, err := auth.RandomToken()
	if err != nil {
		s.internalError(w, err, "generating verification token")
		return
	}
	claims := claimsFrom(r.Context())
	if err := s.users.UpdateEmail(r.Context(), claims.UserID, req.Email, token); err != nil {
		if errors.Is(err, db.ErrConflict) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		s.internalError(w, err, "updating email")
		return
	}
	if err := s.mailer.SendVerification(req.Email, token); err != nil {
		s.log.Warn().Err(err).Str("email", req.Email).Msg("sending verification mail")
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "email updated, check your inbox to verify it",
	})
}
