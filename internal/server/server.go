// Package server wires the application together and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	  → sqlite.DB           (users, artifacts, likes stores)
//	  → services            (auth, artifacts, likes)
//	  → handlers            (auth, artifacts)
//	  → chi router          (middleware + routes)
//
// Everything is assembled in New, the composition root. Handlers never see
// the database and services never see HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/artifact-cms/internal/auth"
	"github.com/sakif/artifact-cms/internal/config"
	"github.com/sakif/artifact-cms/internal/handler"
	"github.com/sakif/artifact-cms/internal/middleware"
	"github.com/sakif/artifact-cms/internal/ratelimit"
	"github.com/sakif/artifact-cms/internal/render"
	sqliteRepo "github.com/sakif/artifact-cms/internal/repository/sqlite"
	"github.com/sakif/artifact-cms/internal/service"
)

// Server owns the router and the long-lived handles: the database pool and,
// when rate limiting is on, the Redis client. Both are closed on shutdown.
type Server struct {
	router chi.Router
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client // nil when REDIS_URL is unset or unreachable
}

// New opens the database, applies migrations and builds the router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// connectRedis returns a limiter backed by Redis, or nil when REDIS_URL is
// unset. An unreachable Redis at startup only disables rate limiting.
func (s *Server) connectRedis() middleware.Allower {
	if s.cfg.RedisURL == "" {
		s.logger.Info("REDIS_URL not set, login rate limiting disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := ratelimit.NewRedisClient(ctx, s.cfg.RedisURL)
	if err != nil {
		s.logger.Warn("redis unavailable, login rate limiting disabled", slog.String("error", err.Error()))
		return nil
	}
	s.redis = rdb
	return ratelimit.New(rdb, s.cfg.LoginRateLimit, s.cfg.LoginRateWindow)
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET    /healthz
//	GET    /metrics
//	POST   /api/auth/register              rate-limited
//	POST   /api/auth/login                 rate-limited
//	GET    /api/auth/me                    bearer
//	GET    /api/auth/github/login          only when GitHub is configured
//	GET    /api/auth/github/callback       only when GitHub is configured
//	GET    /api/artifact-types             bearer
//	GET    /api/artifacts                  bearer
//	POST   /api/artifacts                  bearer
//	GET    /api/artifacts/{id}             bearer
//	PUT    /api/artifacts/{id}             bearer, owner
//	DELETE /api/artifacts/{id}             bearer, owner
//	POST   /api/artifacts/{id}/like        bearer
//	GET    /api/artifacts/{id}/preview     bearer
//
// MIDDLEWARE ORDER:
// RequestID and RealIP run first so the logger and the rate limiter see
// their results. Recoverer sits inside Logger and Metrics so a panic is
// recorded as the 500 it turns into.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return err
	}
	passwords, err := auth.NewPasswordService(s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	renderer, err := render.New(render.DefaultOptions())
	if err != nil {
		return err
	}

	var github handler.GitHubAuthenticator
	if s.cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, s.cfg.GitHubCallbackURL)
		s.logger.Info("GitHub sign-in enabled", slog.String("callback", s.cfg.GitHubCallbackURL))
	}

	limiter := s.connectRedis()

	authService := service.NewAuthService(s.db.Users(), tokens, passwords, s.logger)
	artifactService := service.NewArtifactService(s.db.Artifacts(), s.logger)
	likeService := service.NewLikeService(s.db.Artifacts(), s.db.Likes(), s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	artifactHandler := handler.NewArtifactHandler(artifactService, likeService, renderer, s.logger)
	requireAuth := auth.RequireAuth(tokens, s.logger)

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Origins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	// === Operational routes ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// === API routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(limiter, "register", s.logger)).Post("/register", authHandler.HandleRegister)
			r.With(middleware.RateLimit(limiter, "login", s.logger)).Post("/login", authHandler.HandleLogin)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)

			if authHandler.GitHubEnabled() {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/artifact-types", artifactHandler.HandleTypes)
			r.Route("/artifacts", func(r chi.Router) {
				r.Get("/", artifactHandler.HandleList)
				r.Post("/", artifactHandler.HandleCreate)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", artifactHandler.HandleGet)
					r.Put("/", artifactHandler.HandleUpdate)
					r.Delete("/", artifactHandler.HandleDelete)
					r.Post("/like", artifactHandler.HandleToggleLike)
					r.Get("/preview", artifactHandler.HandlePreview)
				})
			})
		})
	})

	return nil
}

// handleHealth reports 200 while the database answers a ping and 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}` + "\n"))
		return
	}
	w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database pool and the Redis client.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully:
// stop accepting connections, give in-flight requests 30 seconds, close
// the database (flushes the WAL and releases the file lock).
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("env", s.cfg.Env),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
