package gridserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"

	gridv1 "github.com/yndnr/gridsession-go/api/grid/v1"
	"github.com/yndnr/gridsession-go/internal/telemetry/metric"
	"github.com/yndnr/gridsession-go/pkg/grid"
)

// Config configures a Server.
type Config struct {
	// NodeID and AdvertiseAddr identify this node in Members when no
	// Discovery is configured.
	NodeID        string
	AdvertiseAddr string

	// Client is the engine being served.
	Client grid.Client

	// Discovery, when set, supplies Members.
	Discovery *Discovery

	// RPS and Burst configure rate limiting. Zero RPS disables it.
	RPS   float64
	Burst int

	// Metrics, when set, records request metrics and the member count.
	Metrics *metric.Registry

	Logger *slog.Logger
}

// Server serves the map service over HTTP.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	handler http.Handler

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// New creates a server. It does not listen until Serve or ListenAndServe.
func New(cfg Config) (*Server, error) {
	if cfg.Client == nil {
		return nil, errors.New("gridserver: client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "gridserver")

	members := func() []gridv1.Member {
		return []gridv1.Member{{ID: cfg.NodeID, Addr: cfg.AdvertiseAddr}}
	}
	if cfg.Discovery != nil {
		members = cfg.Discovery.Members
		if cfg.Metrics != nil {
			cfg.Discovery.OnChange(func(m []gridv1.Member) {
				cfg.Metrics.GridMembers.Set(float64(len(m)))
			})
			cfg.Metrics.GridMembers.Set(float64(len(cfg.Discovery.Members())))
		}
	} else if cfg.Metrics != nil {
		cfg.Metrics.GridMembers.Set(1)
	}

	svc := NewService(cfg.Client, members, logger)
	interceptors := DefaultInterceptors(logger, cfg.Metrics, cfg.RPS, cfg.Burst)

	return &Server{
		cfg:     cfg,
		logger:  logger,
		handler: svc.Handler(connect.WithInterceptors(interceptors...)),
	}, nil
}

// Handler returns the HTTP handler of the map service.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe listens on addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gridserver: listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.srv = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("grid server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listening address, or "" before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down grid server")
	return srv.Shutdown(ctx)
}
