// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: it opens the store, builds the
// services and handlers, and decides which middleware guards which route.
// main.go only loads config and calls New + Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/teyvat-companion/internal/auth"
	"github.com/sakif/teyvat-companion/internal/config"
	"github.com/sakif/teyvat-companion/internal/gemini"
	"github.com/sakif/teyvat-companion/internal/handler"
	"github.com/sakif/teyvat-companion/internal/middleware"
	"github.com/sakif/teyvat-companion/internal/repository"
	"github.com/sakif/teyvat-companion/internal/repository/postgres"
	sqliteRepo "github.com/sakif/teyvat-companion/internal/repository/sqlite"
	"github.com/sakif/teyvat-companion/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store and the Google key set. Both are released in
// Close, which Start calls after the HTTP server has drained.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    repository.Store
	verifier *auth.GoogleVerifier
}

// New opens the configured store and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewWithStore(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStore wires the routes on top of an already-open store. Tests use
// it with an in-memory SQLite database.
func NewWithStore(cfg *config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return postgres.New(context.Background(), cfg.Database.DSN)
	case config.DriverSQLite:
		return sqliteRepo.New(cfg.Database.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                      → redirect to /public/builds
// GET    /health                → liveness
// POST   /register              → create account
// POST   /login                 → email/password login
// POST   /google-login          → Google ID token login
// GET    /auth/google/login     → OAuth code flow start   (when configured)
// GET    /auth/google/callback  → OAuth code flow finish  (when configured)
// GET    /public/builds         → shared builds
//
// Behind RequireAuth:
// GET    /users/me
// POST   /favorites, GET /favorites, DELETE /favorites/{id} (owner only)
// POST   /builds, GET /builds, PUT|DELETE /builds/{id}   (owner only)
// POST   /ai/explain, POST /ai/recommend
//
// MIDDLEWARE ORDER MATTERS:
// RequestID → RealIP → Logger → Recoverer → Sentry → CORS. Recoverer sits
// inside Logger so a recovered panic is still logged as a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	// === Dependencies ===
	tokens, err := auth.NewTokenService(s.config.JWT.Secret, s.config.JWT.TTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// A nil interface, not a typed nil, when Google sign-in is off.
	var identities service.IdentityVerifier
	var provider *auth.GoogleProvider
	if g := s.config.Google; g.ClientID != "" {
		s.verifier = auth.NewGoogleVerifier(g.ClientID, g.JWKSURL)
		identities = s.verifier
		if g.CodeFlowEnabled() {
			provider = auth.NewGoogleProvider(g.ClientID, g.ClientSecret, g.CallbackURL, s.verifier)
		}
	} else {
		s.logger.Warn("GOOGLE_CLIENT_ID not set, Google sign-in is disabled")
	}

	generator := gemini.NewClient(gemini.Config{
		APIKey:  s.config.Gemini.APIKey,
		Model:   s.config.Gemini.Model,
		BaseURL: s.config.Gemini.BaseURL,
		Timeout: s.config.Gemini.Timeout,
	})
	if !generator.Configured() {
		s.logger.Warn("GEMINI_API_KEY not set, AI routes will answer 503")
	}

	authService := service.NewAuthService(s.store, tokens, auth.NewPasswordService(), identities, s.logger)
	favoriteService := service.NewFavoriteService(s.store, s.logger)
	buildService := service.NewBuildService(s.store, s.logger)
	aiService := service.NewAIService(generator, s.logger)

	authHandler := handler.NewAuthHandler(authService, provider, s.logger)
	favoriteHandler := handler.NewFavoriteHandler(favoriteService, s.logger)
	buildHandler := handler.NewBuildHandler(buildService, s.logger)
	aiHandler := handler.NewAIHandler(aiService, s.logger)

	// === Public Routes ===
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/public/builds", http.StatusFound)
	})
	s.router.Get("/health", handler.HandleHealth)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Post("/google-login", authHandler.HandleGoogleLogin)
	s.router.Get("/public/builds", buildHandler.HandleListPublic)

	if provider != nil {
		s.router.Get("/auth/google/login", authHandler.HandleGoogleRedirect)
		s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
	}

	// === Protected Routes ===
	ownsFavorite := middleware.RequireOwner(favoriteService.OwnerOf, s.logger)
	ownsBuild := middleware.RequireOwner(buildService.OwnerOf, s.logger)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens, s.store))

		r.Get("/users/me", authHandler.HandleMe)

		r.Route("/favorites", func(r chi.Router) {
			r.Post("/", favoriteHandler.HandleCreate)
			r.Get("/", favoriteHandler.HandleList)
			r.With(ownsFavorite).Delete("/{id}", favoriteHandler.HandleDelete)
		})

		r.Route("/builds", func(r chi.Router) {
			r.Post("/", buildHandler.HandleCreate)
			r.Get("/", buildHandler.HandleList)
			r.With(ownsBuild).Put("/{id}", buildHandler.HandleUpdate)
			r.With(ownsBuild).Delete("/{id}", buildHandler.HandleDelete)
		})

		r.Route("/ai", func(r chi.Router) {
			r.Post("/explain", aiHandler.HandleExplain)
			r.Post("/recommend", aiHandler.HandleRecommend)
		})
	})

	return nil
}

// Close releases the store and stops the JWKS refresh goroutine.
func (s *Server) Close() error {
	if s.verifier != nil {
		s.verifier.Close()
	}
	return s.store.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the store
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	// WriteTimeout must outlast the AI upstream timeout.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.Gemini.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.Database.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
