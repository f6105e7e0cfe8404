// Package httpapi exposes the authentication and session operations over
// HTTP with JSON bodies.
package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/logging"
	"github.com/dmitrijs2005/seabattle/internal/server/auth"
	"github.com/dmitrijs2005/seabattle/internal/server/recaptcha"
)

const shutdownTimeout = 5 * time.Second

// UserService is the slice of the service layer the HTTP handlers consume.
// *services.UserService satisfies it.
type UserService interface {
	Register(ctx context.Context, username, password, clientIP string) (*auth.AuthBundle, error)
	Authenticate(ctx context.Context, username, password, clientIP string) (*auth.AuthBundle, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	Refresh(ctx context.Context, presentedToken, clientIP string) (*auth.AuthBundle, error)
	Revoke(ctx context.Context, presentedToken, clientIP, reason string) error
	IncrementWins(ctx context.Context, userID string) error
	IncrementLosses(ctx context.Context, userID string) error
}

type HTTPServer struct {
	address     string
	logger      logging.Logger
	users       UserService
	captcha     recaptcha.Verifier
	db          *sql.DB
	jwtSecret   []byte
	jwtIssuer   string
	jwtAudience string
}

func NewHTTPServer(address string, l logging.Logger, us UserService, captcha recaptcha.Verifier, db *sql.DB, secretKey, issuer, audience string) *HTTPServer {
	return &HTTPServer{
		address:     address,
		logger:      l.With("module", "http_server"),
		users:       us,
		captcha:     captcha,
		db:          db,
		jwtSecret:   []byte(secretKey),
		jwtIssuer:   issuer,
		jwtAudience: audience,
	}
}

// Handler builds the route table. Split out from Run so tests can drive the
// mux directly through httptest.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/authenticate", s.handleAuthenticate)
	mux.HandleFunc("POST /api/auth/refresh-token", s.handleRefreshToken)
	mux.HandleFunc("POST /api/auth/revoke-token", s.handleRevokeToken)

	mux.Handle("PUT /api/auth/change-password", s.requireAuth(http.HandlerFunc(s.handleChangePassword)))
	mux.Handle("POST /api/users/wins", s.requireAuth(http.HandlerFunc(s.handleIncrementWins)))
	mux.Handle("POST /api/users/losses", s.requireAuth(http.HandlerFunc(s.handleIncrementLosses)))

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "error shutting down HTTP server", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
