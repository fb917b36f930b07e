// Package mockapi serves an in-memory implementation of the TeamLink REST API
// for local development and integration tests.
package mockapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// Options configures a Server.
type Options struct {
	// Secret signs the issued JWTs. Required.
	Secret     []byte
	KeyID      string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Deduper, when set, rejects replayed create requests carrying the same
	// Idempotency-Key.
	Deduper Deduper
	Logger  *log.Logger
}

// Server is the mock API. Store and Faults may be used directly to seed data
// and inject failures.
type Server struct {
	Store  *Store
	Tokens *Tokens
	Faults *Faults

	echo *echo.Echo
}

// New builds a server with an empty store.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Server{
		Store:  NewStore(),
		Tokens: NewTokens(opts.Secret, opts.KeyID, opts.AccessTTL, opts.RefreshTTL),
		Faults: &Faults{},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			headerRequestID, headerIdempotencyKey,
		},
	}))
	e.Use(requestLogger(logger))
	e.Use(GzipRequestMiddleware())
	e.Use(injectFaults(s.Faults))
	Register(e, s.Store, s.Tokens, opts.Deduper, logger)

	s.echo = e
	return s
}

// Handler returns the HTTP handler, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
