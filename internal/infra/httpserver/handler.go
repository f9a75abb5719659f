// Package httpserver exposes the gateway over HTTP: a stateless JSON-RPC
// endpoint at /mcp, a health summary at /, and Prometheus metrics at
// /metrics. Every POST carries exactly one JSON-RPC message; no session
// state survives between requests.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"go.uber.org/zap"

	"dbxmcp/internal/domain"
)

// ToolDispatcher runs a named tool and always produces a result
// envelope, never an error.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) domain.Result
}

type HandlerOptions struct {
	Logger  *zap.Logger
	Metrics domain.Metrics

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler

	// BackendConfigured is reported on the health endpoint.
	BackendConfigured bool
}

type Handler struct {
	dispatcher        ToolDispatcher
	catalog           []domain.ToolDescriptor
	logger            *zap.Logger
	metrics           domain.Metrics
	metricsHandler    http.Handler
	backendConfigured bool
	mux               *http.ServeMux
}

func NewHandler(dispatcher ToolDispatcher, catalog []domain.ToolDescriptor, opts HandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Handler{
		dispatcher:        dispatcher,
		catalog:           catalog,
		logger:            logger.Named("http"),
		metrics:           opts.Metrics,
		metricsHandler:    opts.MetricsHandler,
		backendConfigured: opts.BackendConfigured,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", h.handleRPC)
	mux.HandleFunc("/", h.handleHealth)
	if h.metricsHandler != nil {
		mux.Handle("/metrics", h.metricsHandler)
	}
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":        domain.ServiceName,
		"status":         "healthy",
		"version":        domain.ServiceVersion,
		"tools":          len(h.catalog),
		"api_configured": h.backendConfigured,
	})
}

func (h *Handler) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	logger := h.logger.With(zap.String("request_id", requestID))
	start := time.Now()

	var method string
	var errCode int64
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("request panicked", zap.Any("panic", rec))
			errCode = domain.CodeInternalError
			h.writeError(w, http.StatusInternalServerError, jsonrpc.ID{},
				domain.CodeInternalError, fmt.Sprintf("Internal error: %v", rec))
		}
		if h.metrics != nil {
			h.metrics.ObserveRequest(method, time.Since(start), errCode)
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		errCode = domain.CodeParseError
		h.writeError(w, http.StatusBadRequest, jsonrpc.ID{}, domain.CodeParseError, "Parse error: unreadable body")
		return
	}

	msg, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		logger.Warn("undecodable message", zap.Error(err))
		errCode = domain.CodeParseError
		h.writeError(w, http.StatusBadRequest, jsonrpc.ID{}, domain.CodeParseError, "Parse error: "+err.Error())
		return
	}

	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		errCode = domain.CodeParseError
		h.writeError(w, http.StatusBadRequest, jsonrpc.ID{}, domain.CodeParseError, "Parse error: expected a request")
		return
	}

	method = req.Method
	logger.Debug("rpc request", zap.String("method", method))

	switch req.Method {
	case domain.MethodInitialize:
		h.writeResult(w, req.ID, map[string]any{
			"protocolVersion": domain.ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{"listChanged": true},
			},
			"serverInfo": map[string]any{
				"name":    domain.ServiceName,
				"version": domain.ServiceVersion,
			},
		})

	case domain.MethodInitialized:
		h.writeResult(w, req.ID, map[string]any{})

	case domain.MethodToolsList:
		h.writeResult(w, req.ID, map[string]any{"tools": h.catalog})

	case domain.MethodToolsCall:
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				errCode = domain.CodeParseError
				h.writeError(w, http.StatusOK, req.ID, domain.CodeParseError, "Parse error: invalid params")
				return
			}
		}

		result := h.dispatcher.Dispatch(r.Context(), params.Name, params.Arguments)
		text, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			errCode = domain.CodeInternalError
			h.writeError(w, http.StatusInternalServerError, req.ID, domain.CodeInternalError, "Internal error: encode result")
			return
		}
		h.writeResult(w, req.ID, map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": string(text)},
			},
		})

	default:
		logger.Warn("unknown method", zap.String("method", req.Method))
		errCode = domain.CodeMethodNotFound
		h.writeError(w, http.StatusOK, req.ID, domain.CodeMethodNotFound, "Method not found: "+req.Method)
	}
}

// writeResult sends a success response. Notifications carry no id, so
// their acknowledgements are built by hand with an explicit null id
// rather than through the codec, which rejects zero ids.
func (h *Handler) writeResult(w http.ResponseWriter, id jsonrpc.ID, result any) {
	if !id.IsValid() {
		writeJSON(w, http.StatusOK, map[string]any{
			"jsonrpc": "2.0",
			"id":      nil,
			"result":  result,
		})
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, id, domain.CodeInternalError, "Internal error: encode response")
		return
	}
	wire, err := jsonrpc.EncodeMessage(&jsonrpc.Response{ID: id, Result: raw})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, id, domain.CodeInternalError, "Internal error: encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wire)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, id jsonrpc.ID, code int64, message string) {
	if !id.IsValid() {
		writeJSON(w, status, map[string]any{
			"jsonrpc": "2.0",
			"id":      nil,
			"error":   map[string]any{"code": code, "message": message},
		})
		return
	}

	wire, err := jsonrpc.EncodeMessage(&jsonrpc.Response{
		ID:    id,
		Error: &jsonrpc.Error{Code: code, Message: message},
	})
	if err != nil {
		writeJSON(w, status, map[string]any{
			"jsonrpc": "2.0",
			"id":      nil,
			"error":   map[string]any{"code": code, "message": message},
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(wire)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
