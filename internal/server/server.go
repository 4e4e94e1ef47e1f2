// Package server provides the HTTP handlers and routing for the MCP gateway.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	gatewayName    = "azure-mcp-gateway"
	gatewayVersion = "1.0.0"

	maxRequestBodyBytes = 1 << 20
)

// Config contains the server settings consumed at startup.
type Config struct {
	AllowedOrigins  []string
	Catalog         string
	ProviderTimeout time.Duration
	RequestTimeout  time.Duration
}

// Server contains the configured router, tool registry and executor.
type Server struct {
	cfg      Config
	router   *chi.Mux
	registry *Registry
	executor *Executor
	policy   AccessPolicy
	log      *logrus.Entry
}

// New constructs a Server with middleware and routes configured. provider
// may be nil when no cloud credentials are available.
func New(cfg Config, provider Provider, log *logrus.Entry) (*Server, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = max(60*time.Second, cfg.ProviderTimeout+10*time.Second)
	}
	reg, err := NewRegistry(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		registry: reg,
		executor: NewExecutor(reg, provider, cfg.ProviderTimeout, log),
		policy:   NewAccessPolicy(cfg.AllowedOrigins),
		log:      log,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(requestLogger{log: log}))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))
	s.router.Use(s.cors)

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/", http.HandlerFunc(s.handleMCP))
	s.router.Handle("/*", http.HandlerFunc(s.handleMCP))
	// chi answers methods outside its method table with a bare 405; those
	// requests are classified like any other.
	s.router.MethodNotAllowed(s.handleMCP)

	return s, nil
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse struct {
	Tools []Tool `json:"tools"`
}

type statusResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Tools   int    `json:"tools,omitempty"`
	Message string `json:"message,omitempty"`
}

// errInvalidParams marks a tools/call whose params could not be read.
var errInvalidParams = errors.New("invalid params")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	var req Request
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err == nil && len(data) > 0 {
		// Undecodable bodies are routed as an empty request.
		if err := json.Unmarshal(data, &req); err != nil {
			req = Request{}
		}
	}
	status, payload := s.route(r.Context(), req, r.Method)
	writeJSON(w, status, payload)
}

// route classifies a parsed request and produces the response status and
// body. It always returns; faults become a 500 with the error message.
func (s *Server) route(ctx context.Context, req Request, httpMethod string) (status int, payload any) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("method", req.Method).Errorf("router panic: %v", r)
			status, payload = http.StatusInternalServerError, errorResponse{Error: fmt.Sprint(r)}
		}
	}()

	switch {
	case req.Method == "tools/list":
		return http.StatusOK, listResponse{Tools: s.registry.List()}
	case req.Method == "tools/call":
		call, err := parseCall(req.Params)
		if err != nil {
			s.log.WithError(err).Error("malformed tools/call")
			return http.StatusInternalServerError, errorResponse{Error: err.Error()}
		}
		return http.StatusOK, s.executor.Execute(ctx, call.Name, call.Args)
	case httpMethod == http.MethodGet:
		return http.StatusOK, s.status()
	default:
		return http.StatusBadRequest, errorResponse{Error: "Invalid request"}
	}
}

func (s *Server) status() statusResponse {
	st := statusResponse{Name: gatewayName, Version: gatewayVersion, Status: "healthy"}
	if s.registry.Variant() == CatalogMinimal {
		st.Message = "Azure MCP Gateway is running"
	} else {
		st.Tools = s.registry.Len()
	}
	return st
}

func parseCall(raw json.RawMessage) (CallRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return CallRequest{}, fmt.Errorf("%w: params must be an object", errInvalidParams)
	}
	nameRaw, ok := fields["name"]
	if !ok || string(nameRaw) == "null" {
		return CallRequest{}, fmt.Errorf("%w: params.name is required", errInvalidParams)
	}
	var call CallRequest
	if err := json.Unmarshal(nameRaw, &call.Name); err != nil {
		return CallRequest{}, fmt.Errorf("%w: params.name must be a string", errInvalidParams)
	}
	if argsRaw, ok := fields["arguments"]; ok {
		if err := json.Unmarshal(argsRaw, &call.Args); err != nil {
			return CallRequest{}, fmt.Errorf("%w: params.arguments must be an object", errInvalidParams)
		}
	}
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	return call, nil
}
