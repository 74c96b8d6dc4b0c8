package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Mkharboutley/chess2/internal/msgcat"
	"github.com/Mkharboutley/chess2/internal/room"
)

// Options configures the HTTP listener.
type Options struct {
	Addr           string
	AllowedOrigins []string
}

// Server hosts the REST and websocket API for chess rooms.
type Server struct {
	manager  *room.Manager
	registry *Registry
	catalog  *msgcat.Catalog
	log      *zap.Logger
	origins  []string
	http     *http.Server
}

// NewServer wires the transport layer. Read and write timeouts stay unset
// on the underlying http.Server because room sockets are long-lived; the
// header and idle timeouts still bound slow or dead clients.
func NewServer(opts Options, manager *room.Manager, registry *Registry, catalog *msgcat.Catalog, logger *zap.Logger) (*Server, error) {
	if manager == nil {
		return nil, errors.New("gateway: manager is required")
	}
	if registry == nil {
		return nil, errors.New("gateway: registry is required")
	}
	if catalog == nil {
		return nil, errors.New("gateway: catalog is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := &Server{
		manager:  manager,
		registry: registry,
		catalog:  catalog,
		log:      logger,
		origins:  origins,
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Start serves until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.log.Info("http_listen", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
