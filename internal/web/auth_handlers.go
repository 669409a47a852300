package web

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/musicrec/musicrec/internal/auth"
	"github.com/musicrec/musicrec/internal/db"
)

const (
	minPasswordLen = 8
	resetTokenTTL  = time.Hour
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest identifies the account by username or email; "login" takes
// either, "email" is kept for older clients.
type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// handleRegister creates an account and mails a verification link
// (POST /api/register).
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLen {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(w, err, "hashing password")
		return
	}
	token, err := auth.RandomToken()
	if err != nil {
		s.internalError(w, err, "generating verification token")
		return
	}

	user := &db.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		VerifyToken:  &token,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrConflict) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		s.internalError(w, err, "creating user")
		return
	}

	if err := s.mailer.SendVerification(user.Email, token); err != nil {
		// The account exists; verification can be retried later.
		s.log.Warn().Err(err).Str("email", user.Email).Msg("sending verification mail")
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "registered, check your email to verify the account",
	})
}

// handleVerifyEmail consumes a verification token
// (GET /api/verify-email?token=...).
func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusBadRequest, "missing token")
		return
	}
	user, err := s.users.GetByVerifyToken(r.Context(), token)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusBadRequest, "invalid or used verification token")
		return
	}
	if err != nil {
		s.internalError(w, err, "looking up verification token")
		return
	}
	if err := s.users.MarkVerified(r.Context(), user.ID); err != nil {
		s.internalError(w, err, "marking user verified")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

// handleLogin exchanges credentials for a token pair (POST /api/login).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}

	user, err := s.users.GetByLogin(r.Context(), login)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		s.internalError(w, err, "looking up user")
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.EmailVerified {
		respondError(w, http.StatusForbidden, "email not verified")
		return
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		s.internalError(w, err, "issuing tokens")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// handleRefreshToken exchanges a refresh token for a fresh pair
// (POST /api/refresh-token).
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := s.tokens.Verify(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	// Re-read the user so revoked accounts and demoted admins drop out on
	// refresh.
	user, err := s.users.Get(r.Context(), claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}
	if err != nil {
		s.internalError(w, err, "looking up user")
		return
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		s.internalError(w, err, "issuing tokens")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// handleForgotPassword mails a reset link (POST /api/forgot-password). The
// response never reveals whether the address exists.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	accepted := map[string]string{"message": "if the address exists, a reset link was sent"}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, db.ErrNotFound) {
		respondJSON(w, http.StatusOK, accepted)
		return
	}
	if err != nil {
		s.internalError(w, err, "looking up user")
		return
	}

	token, err := auth.RandomToken()
	if err != nil {
		s.internalError(w, err, "generating reset token")
		return
	}
	if err := s.users.SetResetToken(r.Context(), user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		s.internalError(w, err, "storing reset token")
		return
	}
	if err := s.mailer.SendPasswordReset(user.Email, token); err != nil {
		s.log.Warn().Err(err).Str("email", user.Email).Msg("sending reset mail")
	}
	respondJSON(w, http.StatusOK, accepted)
}

// handleResetPassword consumes a reset token (POST /api/reset-password).
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Password) < minPasswordLen {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := s.users.GetByResetToken(r.Context(), req.Token)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusBadRequest, "invalid or expired reset token")
		return
	}
	if err != nil {
		s.internalError(w, err, "looking up reset token")
		return
	}

	hash, err := auth.HashPassword(req.Password)
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

func (s *Server) issueTokens(user *db.User) (tokenPair, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.IsAdmin)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID, user.IsAdmin)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Server) internalError(w http.ResponseWriter, err error, msg string) {
	s.log.Error().Err(err).Msg(msg)
	respondError(w, http.StatusInternalServerError, "internal error")
}
