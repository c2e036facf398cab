// Package server builds the HTTP router and runs the server.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It decides:
//   - which URL patterns map to which handler
//   - which middleware runs on which routes
//   - how the server starts and stops
//
// WHY SEPARATE FROM main.go?
// Tests build the exact production router with New and drive it through
// httptest, without opening a port. main.go stays small: load config, open
// storage, call New, call Start.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go:   config → storage (sqlite or postgres)
//	New():     storage → services → handlers → routes
//
// Everything is assembled here, in one place, rather than scattered
// across packages (the "composition root" pattern).
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/accounts-api/internal/auth"
	"github.com/sakif/accounts-api/internal/config"
	"github.com/sakif/accounts-api/internal/handler"
	"github.com/sakif/accounts-api/internal/middleware"
	"github.com/sakif/accounts-api/internal/repository"
	"github.com/sakif/accounts-api/internal/service"
)

// Store is a repository.Store the server owns and closes on shutdown.
type Store interface {
	repository.Store
	io.Closer
}

// Server holds the router and everything it closes on shutdown.
type Server struct {
	router  *chi.Mux
	cfg     config.HTTP
	logger  *slog.Logger
	store   Store
	metrics *middleware.Metrics
}

// New wires the whole application on top of an open store:
//  1. auth primitives (bcrypt, token keys) from cfg.Auth
//  2. services, sharing the store
//  3. handlers, one per resource
//  4. routes
//
// Each layer only receives what it needs. Services get the repository
// interface, handlers get service interfaces.
func New(cfg *config.Config, store Store, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.TokenSecret)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	passwords := auth.NewPasswordServiceWithCost(cfg.Auth.BcryptCost)

	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg.HTTP,
		logger:  logger,
		store:   store,
		metrics: middleware.NewMetrics(),
	}

	authService := service.NewAuthService(store, passwords, tokens, s.metrics, logger)
	s.routes(
		authService,
		handler.NewAccountHandler(authService, logger),
		handler.NewUserHandler(service.NewUserService(store, logger), logger),
		handler.NewProfileHandler(service.NewProfileService(store, logger), logger),
	)
	return s, nil
}

// routes configures middleware and handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /api/accounts/register       → create account, returns token
//	POST   /api/accounts/login          → returns the account's token
//	GET    /api/accounts/users          → own record (superuser: all)    [token]
//	POST   /api/accounts/users          → 405                            [token]
//	GET    /api/accounts/users/{id}     → owner or superuser             [token]
//	PUT    /api/accounts/users/{id}     → owner or superuser             [token]
//	PATCH  /api/accounts/users/{id}     → owner or superuser             [token]
//	DELETE /api/accounts/users/{id}     → owner or superuser, 204        [token]
//	GET    /api/profiles                → own profile (superuser: all)   [token]
//	POST   /api/profiles                → 405                            [token]
//	GET    /api/profiles/{ref}          → any profile, {ref} may be "me" [token]
//	PUT    /api/profiles/{ref}          → owner or superuser             [token]
//	PATCH  /api/profiles/{ref}          → owner or superuser             [token]
//	DELETE /api/profiles/{ref}          → 405                            [token]
//	GET    /healthz                     → storage ping
//	GET    /metrics                     → Prometheus
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: every log line and error can be correlated
//  2. RealIP: remote_addr reflects X-Forwarded-For
//  3. Recoverer: a panic becomes a 500, not a dead process
//  4. Logger and Instrument: see the final status, including the 500 above
//  5. StripSlashes: "/api/profiles/me/" and "/api/profiles/me" are one route
func (s *Server) routes(
	authn auth.Authenticator,
	accounts *handler.AccountHandler,
	users *handler.UserHandler,
	profiles *handler.ProfileHandler,
) {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(s.metrics.Instrument)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/healthz", handler.HandleHealth(s.store, s.logger))
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/accounts/register", accounts.HandleRegister)
		r.Post("/accounts/login", accounts.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(authn, s.logger))

			r.Route("/accounts/users", func(r chi.Router) {
				r.Get("/", users.HandleList)
				r.Post("/", users.HandleCreate)
				r.Get("/{id}", users.HandleGet)
				r.Put("/{id}", users.HandleUpdate)
				r.Patch("/{id}", users.HandlePartialUpdate)
				r.Delete("/{id}", users.HandleDelete)
			})

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", profiles.HandleList)
				r.Post("/", profiles.HandleCreate)
				r.Get("/{ref}", profiles.HandleGet)
				r.Put("/{ref}", profiles.HandleUpdate)
				r.Patch("/{ref}", profiles.HandlePartialUpdate)
				r.Delete("/{ref}", profiles.HandleDelete)
			})
		})
	})
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully:
//  1. stop accepting connections
//  2. wait up to ShutdownTimeout for in-flight requests
//  3. close the store
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("address", s.cfg.Address))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
