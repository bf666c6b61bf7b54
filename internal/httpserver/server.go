package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-dispatch-cache/internal/auth"
	"go-dispatch-cache/internal/config"
	"go-dispatch-cache/internal/models"
)

const (
	maxBodyBytes = 1 << 20
	unixPrefix   = "unix:"
)

// Invalidator broadcasts clear-cache commands
type Invalidator interface {
	PublishClearCache(ctx context.Context, keys ...string) error
}

// Server is the HTTP transport: it turns requests into request contexts and
// encodes dispatch results
type Server struct {
	dispatcher  models.Dispatcher
	invalidator Invalidator
	cfg         config.HTTPConfig
	adminSecret string
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a new HTTP server. Without an invalidator, /cache/clear
// evicts from this node's cache only.
func NewServer(dispatcher models.Dispatcher, invalidator Invalidator, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		dispatcher:  dispatcher,
		invalidator: invalidator,
		cfg:         cfg.HTTP,
		adminSecret: cfg.Admin.JWTSecret,
		logger:      logger,
	}
}

// Start listens on the configured address and serves until Stop.
// An address of the form unix:/path listens on a Unix socket.
func (s *Server) Start() error {
	listener, err := s.listen(s.cfg.Addr)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", s.cfg.Addr))
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) listen(addr string) (net.Listener, error) {
	if !strings.HasPrefix(addr, unixPrefix) {
		return net.Listen("tcp", addr)
	}

	socketPath := strings.TrimPrefix(addr, unixPrefix)
	if err := os.RemoveAll(socketPath); err != nil {
		s.logger.Warn("Failed to remove existing socket file", zap.String("path", socketPath), zap.Error(err))
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}

	// Set socket permissions (readable/writable by owner and group)
	if err := os.Chmod(socketPath, 0660); err != nil {
		s.logger.Warn("Failed to set socket permissions", zap.String("path", socketPath), zap.Error(err))
	}
	return listener, nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	// Dispatch endpoints
	router.HandleFunc("/api/{path:.*}", s.handleRestful).Methods("GET", "POST")
	router.HandleFunc("/source", s.handleSource).Methods("POST")
	router.HandleFunc("/json", s.handleJSON).Methods("POST")

	// Administrative endpoints
	admin := router.PathPrefix("/cache").Subrouter()
	admin.Use(auth.RequireScope(s.adminSecret, auth.ScopeAdmin, s.logger))
	admin.HandleFunc("/clear", s.handleClearCache).Methods("POST")

	// Health check
	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// parseBody decodes a JSON body into v. An empty body leaves v untouched.
func (s *Server) parseBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

// writeResponse writes JSON response
func (s *Server) writeResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeErrorResponse writes error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := &DispatchResponse{
		Success: false,
		Error:   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to write error response", zap.Error(err))
	}
}
