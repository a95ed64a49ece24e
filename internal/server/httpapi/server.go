// Package httpapi exposes the authentication service and the mailer over
// HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mailauth/internal/logging"
	"github.com/dmitrijs2005/mailauth/internal/server/auth"
	"github.com/dmitrijs2005/mailauth/internal/server/mailer"
	"github.com/dmitrijs2005/mailauth/internal/server/models"
	"github.com/dmitrijs2005/mailauth/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// AuthService is the subset of services.AuthService the handlers use.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.Profile, error)
	ValidateCredentials(ctx context.Context, email, password string) (*services.AuthenticatedUser, error)
	Login(ctx context.Context, au *services.AuthenticatedUser) (*services.LoginResult, error)
	Refresh(ctx context.Context, token string) (*services.RefreshResult, error)
	Logout(ctx context.Context, userID string) error
}

// MailSender is the subset of mailer.Sender the handlers use.
type MailSender interface {
	Send(ctx context.Context, sealedSecret string, acct mailer.Account, msg mailer.Message) error
	SealPassword(sealedSecret, password string) (mailer.StoredPassword, error)
}

// TokenVerifier checks bearer access tokens.
type TokenVerifier interface {
	Verify(token string, p auth.Policy) (*auth.Claims, error)
}

type Server struct {
	address      string
	auth         AuthService
	mail         MailSender
	tokens       TokenVerifier
	accessPolicy auth.Policy
	logger       logging.Logger
	engine       *gin.Engine
}

func NewServer(a string, l logging.Logger, as AuthService, ms MailSender, tv TokenVerifier, accessPolicy auth.Policy) *Server {
	s := &Server{
		address:      a,
		auth:         as,
		mail:         ms,
		tokens:       tv,
		accessPolicy: accessPolicy,
		logger:       l.With("module", "http_server"),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/ping", s.Ping)

	a := r.Group("/auth")
	a.POST("/register", s.Register)
	a.POST("/login", s.Login)
	a.POST("/refresh", s.Refresh)
	a.POST("/logout", s.requireAccessToken(), s.Logout)

	m := r.Group("/mail", s.requireAccessToken())
	m.POST("/password", s.SealPassword)
	m.POST("/send", s.SendMail)

	return r
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
