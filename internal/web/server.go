// Package web serves the JSON API: search and recommendations from the
// in-memory engine, and accounts, playlists, and liked songs from Postgres.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/musicrec/musicrec/internal/auth"
	"github.com/musicrec/musicrec/internal/config"
)

// Server is the HTTP server for the API.
type Server struct {
	cfg    config.ServerConfig
	router chi.Router
	server *http.Server
	log    zerolog.Logger

	rec       Recommender
	users     UserStore
	playlists PlaylistStore
	liked     LikedStore
	tokens    *auth.TokenIssuer
	mailer    MailSender
}

// Deps carries the server's collaborators. Users, Playlists, Liked, Tokens,
// and Mailer may all be nil together, which disables the account surface.
type Deps struct {
	Recommender Recommender
	Users       UserStore
	Playlists   PlaylistStore
	Liked       LikedStore
	Tokens      *auth.TokenIssuer
	Mailer      MailSender
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, deps Deps, log zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		log:       log,
		rec:       deps.Recommender,
		users:     deps.Users,
		playlists: deps.Playlists,
		liked:     deps.Liked,
		tokens:    deps.Tokens,
		mailer:    deps.Mailer,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/search", s.handleSearch)
		r.Get("/recommend", s.handleRecommend)

		if !s.accountsEnabled() {
			return
		}

		r.Post("/register", s.handleRegister)
		r.Get("/verify-email", s.handleVerifyEmail)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh-token", s.handleRefreshToken)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/reset-password", s.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/me", s.handleMe)
			r.Post("/change-password", s.handleChangePassword)
			r.Post("/update-username", s.handleUpdateUsername)
			r.Post("/update-email", s.handleUpdateEmail)

			r.Route("/playlists", func(r chi.Router) {
				r.Get("/", s.handleListPlaylists)
				r.Post("/", s.handleCreatePlaylist)
				r.Route("/{playlistID}", func(r chi.Router) {
					r.Get("/", s.handleGetPlaylist)
					r.Put("/", s.handleRenamePlaylist)
					r.Delete("/", s.handleDeletePlaylist)
					r.Post("/songs", s.handleAddPlaylistSong)
					r.Delete("/songs/{songID}", s.handleRemovePlaylistSong)
				})
			})

			r.Get("/liked_songs", s.handleListLiked)
			r.Post("/liked_songs", s.handleToggleLiked)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/stats", s.handleAdminStats)
				r.Get("/users", s.handleAdminListUsers)
				r.Get("/users/{userID}/stats", s.handleAdminUserStats)
				r.Delete("/users/{userID}", s.handleAdminDeleteUser)
				r.Put("/users/{userID}/admin", s.handleAdminSetAdmin)
			})
		})
	})
}

func (s *Server) accountsEnabled() bool {
	return s.users != nil && s.tokens != nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"accounts": s.accountsEnabled(),
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server and blocks until an interrupt, then shuts down
// gracefully.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("starting server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.log.Info().Msg("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
