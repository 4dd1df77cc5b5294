package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/bz888/deepchat/internal/api/server/client"
	"github.com/bz888/deepchat/internal/api/server/handlers"
	"github.com/bz888/deepchat/internal/config"
	"github.com/bz888/deepchat/internal/logger"
)

// Server is the relay: it owns the HTTP listener and the single upstream
// client shared by all requests.
type Server struct {
	cfg         config.Config
	httpServer  *http.Server
	localLogger *logger.Logger
}

func New(cfg config.Config) (*Server, error) {
	localLogger := logger.NewLogger("Server")

	upstreamClient, err := client.NewUpstreamClient(cfg.UpstreamURL, cfg.Credentials, nil)
	if err != nil {
		return nil, err
	}
	checkCredentials(cfg.Credentials, localLogger)

	handler := handlers.NewHandler(upstreamClient, handlers.Status{
		UpstreamURL:        upstreamClient.GetBaseURL(),
		CredentialsPresent: cfg.Credentials.Present(),
	})

	mux := http.NewServeMux()
	registerRoutes(mux, handler)

	return &Server{
		cfg:         cfg,
		localLogger: localLogger,
		httpServer: &http.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		},
	}, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured address and blocks until the server stops.
// A clean Shutdown is not reported as an error.
func (s *Server) Run() error {
	listener, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Listen binds the configured address without serving yet.
func (s *Server) Listen() (net.Listener, error) {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("relay failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return listener, nil
}

func (s *Server) Serve(listener net.Listener) error {
	s.localLogger.Info("Relay started on http://", listener.Addr().String(), ChatPath)
	s.localLogger.Info("Forwarding to upstream ", s.cfg.UpstreamURL)

	err := s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.localLogger.Info("Shutting down relay")
	return s.httpServer.Shutdown(ctx)
}

// checkCredentials only warns: a missing token surfaces as an upstream
// authentication failure at request time.
func checkCredentials(credentials config.Credentials, localLogger *logger.Logger) {
	if credentials.DeepSeekAPIKey == "" {
		localLogger.Warn("DEEPSEEK_API_KEY not provided.")
	}
	if credentials.AnthropicAPIKey == "" {
		localLogger.Warn("ANTHROPIC_API_KEY not provided.")
	}
}
