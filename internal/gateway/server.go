// Package gateway is the local HTTP control surface for the bot:
// pairing, status, mode toggling, and conversation inspection.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/soyeahso/wabot/internal/config"
	"github.com/soyeahso/wabot/internal/domain"
	"github.com/soyeahso/wabot/internal/history"
	"github.com/soyeahso/wabot/internal/logging"
	"github.com/soyeahso/wabot/internal/version"
)

// Session is the slice of the lifecycle manager the control surface
// needs.
type Session interface {
	RequestPairing(ctx context.Context, phoneNumber string) (string, error)
	Status() domain.SessionStatus
	SetActive(flag bool)
	Active() bool
}

// Server serves the control API over HTTP.
type Server struct {
	cfg     config.GatewayConfig
	session Session
	turns   *history.Store
	log     *logging.Logger
	version string

	startedAt  time.Time
	httpServer *http.Server
}

// New creates a gateway server.
func New(cfg config.GatewayConfig, sess Session, turns *history.Store, log *logging.Logger) *Server {
	return &Server{
		cfg:     cfg,
		session: sess,
		turns:   turns,
		log:     log.Sub("gateway"),
		version: version.Version,
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins serving and blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := withMiddleware(mux, s.log, s.cfg.AllowedOrigins, s.cfg.AuthToken)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.Bind != "loopback" && s.cfg.AuthToken == "" {
		s.log.Warn().Msg("control API exposed beyond loopback without an auth token")
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Msg("gateway server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
