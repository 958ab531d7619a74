package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/movie_reviews/internal/config"
	"github.com/Skotchmaster/movie_reviews/internal/db"
	"github.com/Skotchmaster/movie_reviews/internal/events"
	"github.com/Skotchmaster/movie_reviews/internal/httpserver"
	"github.com/Skotchmaster/movie_reviews/internal/logging"
	"github.com/Skotchmaster/movie_reviews/internal/repo"
	"github.com/Skotchmaster/movie_reviews/internal/search"
	"github.com/Skotchmaster/movie_reviews/internal/service"
	"github.com/Skotchmaster/movie_reviews/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx := context.Background()

	users, gdb, err := openUserStore(ctx, cfg)
	if err != nil {
		logger.Error("user store init failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	issuer, err := tokens.NewIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		logger.Error("token issuer init failed", "error", err)
		os.Exit(1)
	}

	pub := events.New(cfg.KafkaBrokers)
	movies := repo.NewMovieRepo(cfg.MoviesDir)

	catalog := service.NewCatalogService(movies, users, nil, pub)

	esClient, err := search.NewClient(ctx, search.ClientConfig{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search uses local scan", "error", err)
	} else if esClient != nil {
		idx := search.NewIndex(esClient, cfg.ESIndex)
		go func() {
			if reindex(ctx, logger, movies, idx) {
				catalog.SetSearcher(idx)
			}
		}()
	}

	deps := &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:          service.NewAuthService(users, issuer, pub, service.RotationPolicy(cfg.RotationPolicy)),
			CookieSecure: cfg.CookieSecure,
		},
		MoviesHandler:    &httpserver.MoviesHTTP{Svc: catalog},
		DashboardHandler: &httpserver.DashboardHTTP{Svc: &service.DashboardService{Users: users}},
	}
	deps.Authenticator = deps.AuthHandler.Svc

	e := httpserver.New(logger, cfg.CORSOrigins)
	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	go func() {
		<-quit
		logger.Warn("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if gdb != nil {
		if sqlDB, err := gdb.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Error("db close error", "error", err)
			}
		}
	}

	if err := pub.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openUserStore returns the configured credential store. The gorm handle is
// nil for the file store.
func openUserStore(ctx context.Context, cfg *config.Config) (repo.UserStore, *gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, err
		}
		gdb, err = db.OpenSQLite(ctx, cfg.SQLitePath)
	case config.StorePostgres:
		gdb, err = db.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return repo.NewFileStore(cfg.UsersFile, cfg.StoreStrict), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	store, err := repo.NewGormStore(ctx, gdb)
	if err != nil {
		return nil, nil, err
	}
	return store, gdb, nil
}

// reindex mirrors the catalog into the search index. Until it reports true,
// searches keep using the local scan.
func reindex(ctx context.Context, logger *slog.Logger, movies *repo.MovieRepo, idx *search.Index) bool {
	list, err := movies.List(ctx)
	if err != nil {
		logger.Error("movie reindex failed", "error", err)
		return false
	}
	if err := idx.IndexMovies(ctx, list); err != nil {
		logger.Error("movie reindex failed", "error", err)
		return false
	}
	logger.Info("movies indexed", "count", len(list))
	return true
}
