// Command musicrec loads the track catalog, builds the recommendation
// engine, and serves the JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/musicrec/musicrec/internal/auth"
	"github.com/musicrec/musicrec/internal/catalog"
	"github.com/musicrec/musicrec/internal/config"
	"github.com/musicrec/musicrec/internal/db"
	"github.com/musicrec/musicrec/internal/enrich"
	"github.com/musicrec/musicrec/internal/mail"
	"github.com/musicrec/musicrec/internal/recommend"
	"github.com/musicrec/musicrec/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log := newLogger(cfg.Log)

	cat, err := catalog.LoadCSV(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	log.Info().Int("tracks", cat.Len()).Str("path", cfg.Catalog.Path).Msg("loaded catalog")

	snaps, err := recommend.NewSnapshotStore(cfg.Catalog.SnapshotDir)
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}

	k := cfg.Cluster.K
	if k > cat.Len() {
		log.Warn().Int("k", k).Int("tracks", cat.Len()).Msg("clamping cluster count to catalog size")
		k = cat.Len()
	}
	engine, err := recommend.Build(cat, recommend.BuildConfig{
		KMeans: recommend.KMeansConfig{
			K:         k,
			BatchSize: cfg.Cluster.BatchSize,
			MaxIter:   cfg.Cluster.MaxIter,
			Tol:       cfg.Cluster.Tol,
			Seed:      cfg.Cluster.Seed,
		},
		IndexBackend: cfg.Index.Backend,
		IVFLists:     cfg.Index.Lists,
		IVFProbes:    cfg.Index.Probes,
		Snapshots:    snaps,
	}, log)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	if cfg.Enrich.Enabled {
		enricher := enrich.NewClient(cfg.Enrich.CachePath, cfg.Enrich.Workers, log)
		go enricher.LookupBatch(context.Background(), cat.Tracks)
	}

	deps := web.Deps{Recommender: engine}
	if cfg.Database.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
		if err != nil {
			return fmt.Errorf("creating token issuer: %w", err)
		}
		if err := ensureAdmin(ctx, database.Users(), cfg.Auth, log); err != nil {
			return fmt.Errorf("ensuring admin account: %w", err)
		}

		deps.Users = database.Users()
		deps.Playlists = database.Playlists()
		deps.Liked = database.Liked()
		deps.Tokens = tokens
		deps.Mailer = mail.New(cfg.Mail, cfg.Server.FrontendURL, log)
		log.Info().Msg("accounts enabled")
	} else {
		log.Info().Msg("no database configured, serving recommendations only")
	}

	server := web.NewServer(cfg.Server, deps, log)
	return server.Run()
}

// ensureAdmin bootstraps the configured admin account on first start.
func ensureAdmin(ctx context.Context, users *db.UserRepository, cfg config.AuthConfig, log zerolog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	email := strings.ToLower(cfg.AdminEmail)
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	user := &db.User{
		Username:      "admin",
		Email:         email,
		PasswordHash:  hash,
		IsAdmin:       true,
		EmailVerified: true,
	}
	if err := users.Create(ctx, user); err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("created admin account")
	return nil
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if cfg.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}
