// ABOUTME: Method-dispatched JSON request handler and HTTP endpoint for the gatekeeper
// ABOUTME: Routes execute_action, get_audit_log, and list_sensitive_actions

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/gatekeeper"
	"github.com/gatewarden/gatewarden/internal/proof"
)

// Supported request methods.
const (
	MethodExecuteAction        = "execute_action"
	MethodGetAuditLog          = "get_audit_log"
	MethodListSensitiveActions = "list_sensitive_actions"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Request is one method-dispatched call.
type Request struct {
	Method string         `json:"method"`
	Action string         `json:"action,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	Proof  *proof.Proof   `json:"proof,omitempty"`
}

// AuditLogResponse is the result of get_audit_log.
type AuditLogResponse struct {
	Log []audit.Record `json:"log"`
}

// SensitiveActionsResponse is the result of list_sensitive_actions.
type SensitiveActionsResponse struct {
	Actions []string `json:"actions"`
}

// ErrorResponse reports a malformed or unserviceable request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Config holds configuration for the RPC server.
type Config struct {
	Gatekeeper *gatekeeper.Gatekeeper
	Audit      audit.Log
	Logger     *slog.Logger
}

// Server dispatches gatekeeper requests, in-process or over HTTP.
type Server struct {
	gatekeeper *gatekeeper.Gatekeeper
	auditLog   audit.Log
	logger     *slog.Logger
}

// NewServer creates a new RPC server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Gatekeeper == nil {
		return nil, errors.New("gatekeeper is required")
	}
	if cfg.Audit == nil {
		return nil, errors.New("audit log is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		gatekeeper: cfg.Gatekeeper,
		auditLog:   cfg.Audit,
		logger:     logger,
	}, nil
}

// HandleRequest dispatches a single request and returns its JSON-encodable
// response. This is the in-process contract; the HTTP endpoint wraps it.
func (s *Server) HandleRequest(ctx context.Context, req Request) any {
	switch req.Method {
	case MethodExecuteAction:
		return s.gatekeeper.Process(ctx, req.Action, req.Params, req.Proof)

	case MethodGetAuditLog:
		records, err := s.auditLog.Records(ctx)
		if err != nil {
			s.logger.Error("failed to read audit log", "error", err)
			return ErrorResponse{Error: "Audit log unavailable"}
		}
		return AuditLogResponse{Log: records}

	case MethodListSensitiveActions:
		return SensitiveActionsResponse{Actions: s.gatekeeper.SensitiveActions()}

	default:
		s.logger.Warn("unknown method", "method", req.Method)
		return ErrorResponse{Error: "Unknown method"}
	}
}

// RegisterRoutes registers the RPC endpoints on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/gate", s.handleGate)
	mux.HandleFunc("/healthz", s.handleHealth)
}

// handleGate processes one JSON request sent via HTTP POST.
func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
		return
	}

	s.logger.Debug("rpc request", "method", req.Method, "action", req.Action)

	resp := s.HandleRequest(r.Context(), req)
	status := http.StatusOK
	if e, ok := resp.(ErrorResponse); ok && e.Error == "Unknown method" {
		status = http.StatusBadRequest
	}
	s.sendJSON(w, status, resp)
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sendJSON writes a JSON response with the given status code.
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}
