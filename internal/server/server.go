// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, stores, services and routes into the HTTP API.
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

	"codeberg.org/oliverandrich/remind/internal/config"
	"codeberg.org/oliverandrich/remind/internal/handlers"
	"codeberg.org/oliverandrich/remind/internal/services/auth"
	"codeberg.org/oliverandrich/remind/internal/services/cleanup"
	"codeberg.org/oliverandrich/remind/internal/services/email"
	"codeberg.org/oliverandrich/remind/internal/services/ratelimit"
	"codeberg.org/oliverandrich/remind/internal/services/reminders"
	"codeberg.org/oliverandrich/remind/internal/services/settings"
	"codeberg.org/oliverandrich/remind/internal/services/token"
	"codeberg.org/oliverandrich/remind/internal/services/verification"
	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Server is the assembled API.
type Server struct {
	cfg     *config.Config
	echo    *echo.Echo
	store   store.Store
	release func() error
	cleanup *cleanup.Service
}

type options struct {
	store   store.Store
	mailer  auth.Mailer
	version string
	logger  *slog.Logger
}

// Option configures New.
type Option func(*options)

// WithStore uses s instead of opening the configured database.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithMailer replaces the configured mail transport.
func WithMailer(m auth.Mailer) Option {
	return func(o *options) {
		o.mailer = m
	}
}

// WithVersion sets the version reported by the index endpoint.
func WithVersion(v string) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"database", cfg.Database.Driver,
		"mail_transport", cfg.Mail.Transport,
	)

	srv, err := New(cfg, WithVersion(cmd.Root().Version), WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			slog.Error("failed to close store", "error", closeErr)
		}
	}()

	return srv.Start(ctx)
}

// New builds the server from cfg. It opens the store unless WithStore is given.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	o := options{version: "dev", logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	st, release := o.store, func() error { return nil }
	if st == nil {
		var err error
		st, release, err = OpenStore(&cfg.Database)
		if err != nil {
			return nil, err
		}
	}

	s, err := build(cfg, st, &o)
	if err != nil {
		_ = release()
		return nil, err
	}
	s.release = release
	return s, nil
}

func build(cfg *config.Config, st store.Store, o *options) (*Server, error) {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		generated, err := token.GenerateSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		slog.Warn("jwt_secret_generated", "detail", "tokens will not survive a restart; set JWT_SECRET")
	}
	issuer, err := token.NewIssuer([]byte(secret), cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	mailer := o.mailer
	if mailer == nil {
		sender, err := email.NewSender(&cfg.Mail, o.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to set up mail transport: %w", err)
		}
		mailer, err = email.NewService(sender, cfg.Mail.Locale, cfg.Auth.CodeTTL)
		if err != nil {
			return nil, err
		}
	}

	codes := verification.NewService(st, cfg.Auth.CodeTTL)
	authSvc := auth.NewService(st, codes, auth.NewHasher(cfg.Auth.BcryptCost), issuer, mailer)

	authLimiter := ratelimit.New(cfg.RateLimit.AuthLimit, cfg.RateLimit.AuthWindow)
	verifyLimiter := ratelimit.New(cfg.RateLimit.VerifyLimit, cfg.RateLimit.VerifyWindow)

	extractIP, err := ipExtractor(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.IPExtractor = extractIP
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler
	e.Validator = handlers.NewValidator()

	setupMiddleware(e, cfg, o.logger)

	reminderSvc := reminders.NewService(st)
	setupRoutes(e, routeDeps{
		store:         st,
		version:       o.version,
		verifier:      issuer,
		auth:          authSvc,
		reminders:     reminderSvc,
		settings:      settings.NewService(st),
		authLimiter:   authLimiter,
		verifyLimiter: verifyLimiter,
	})

	return &Server{
		cfg:     cfg,
		echo:    e,
		store:   st,
		cleanup: cleanup.NewService(st, cleanup.WithSweepers(authLimiter, verifyLimiter)),
	}, nil
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Close releases the store.
func (s *Server) Close() error {
	if s.release == nil {
		return nil
	}
	return s.release()
}

// Start serves until SIGINT, SIGTERM or ctx ends, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	if err := s.cleanup.Start(s.cfg.Cleanup.Schedule); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("server running", "addr", s.cfg.Addr())
		if err := s.echo.Start(s.cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		s.cleanup.Stop(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	s.cleanup.Stop(shutdownCtx)

	slog.Info("server stopped")
	return nil
}
