// Core HTTP request handler for the sink engine.

package engine

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hooksink/hooksink/internal/id"
	"github.com/hooksink/hooksink/internal/matching"
	"github.com/hooksink/hooksink/pkg/httputil"
	"github.com/hooksink/hooksink/pkg/logging"
	"github.com/hooksink/hooksink/pkg/requestlog"
	"github.com/hooksink/hooksink/pkg/sequence"
	"github.com/hooksink/hooksink/pkg/template"
)

// MaxRequestBodySize is the maximum allowed inbound request body size.
// Oversized bodies are truncated at this limit before JSON parsing.
const MaxRequestBodySize = 10 << 20 // 10MB

// maxHistoryBody caps how much of a request body is kept in the history.
const maxHistoryBody = 64 << 10

// ControlPrefix is the path prefix reserved for introspection endpoints.
const ControlPrefix = "/__hooksink"

// defaultResponse is sent for any request no rule matches. Unmatched
// traffic is accepted, not rejected: the sink swallows everything.
var defaultResponse = map[string]any{
	"status":  "ok",
	"message": "Request received (no special rules applied)",
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// Handler matches inbound requests against the active rule set, writes
// the templated initial response, and schedules the rule's sequence.
type Handler struct {
	rules    atomic.Pointer[matching.RuleSet]
	engine   *template.Engine
	runner   *sequence.Runner
	history  requestlog.Store
	log      *slog.Logger
	ui       http.Handler // optional, mounted under its own prefix
	uiPrefix string
}

// NewHandler creates a Handler serving the given rule set.
func NewHandler(rules *matching.RuleSet, runner *sequence.Runner, history requestlog.Store) *Handler {
	h := &Handler{
		engine:  template.New(),
		runner:  runner,
		history: history,
		log:     logging.Nop(),
	}
	h.rules.Store(rules)
	return h
}

// SetLogger sets the operational logger.
func (h *Handler) SetLogger(log *slog.Logger) {
	if log != nil {
		h.log = log
	}
}

// SetRules atomically replaces the active rule set. In-flight requests
// keep the set they resolved against; new requests see the new one.
func (h *Handler) SetRules(rules *matching.RuleSet) {
	h.rules.Store(rules)
}

// RuleSet returns the active rule set.
func (h *Handler) RuleSet() *matching.RuleSet {
	return h.rules.Load()
}

// MountUI attaches a handler under the given path prefix, checked
// before rule matching.
func (h *Handler) MountUI(prefix string, ui http.Handler) {
	h.uiPrefix = prefix
	h.ui = ui
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, ControlPrefix+"/") {
		h.serveControl(w, r)
		return
	}
	if h.ui != nil && (r.URL.Path == h.uiPrefix || strings.HasPrefix(r.URL.Path, h.uiPrefix+"/")) {
		h.ui.ServeHTTP(w, r)
		return
	}

	if !allowedMethods[r.Method] {
		httputil.WriteMethodNotAllowed(w, "method_not_allowed", "method "+r.Method+" is not supported")
		return
	}

	requestID := id.Request()
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		h.log.Error("failed to read request body", "requestId", requestID, "error", err)
		httputil.WriteInternalError(w, "read_failed", "failed to read request body")
		return
	}

	historyBody := body
	if len(historyBody) > maxHistoryBody {
		historyBody = historyBody[:maxHistoryBody]
	}
	entry := &requestlog.Entry{
		ID:          requestID,
		Timestamp:   start,
		Method:      r.Method,
		Path:        r.URL.Path,
		QueryString: r.URL.RawQuery,
		Headers:     r.Header.Clone(),
		Body:        string(historyBody),
		RemoteAddr:  r.RemoteAddr,
	}

	rules := h.rules.Load()
	rule, ok := rules.Resolve(r.URL.Path, r.Method)
	if !ok {
		h.log.Info("request received", "requestId", requestID,
			"method", r.Method, "path", r.URL.Path, "matched", false)
		entry.ResponseStatus = http.StatusOK
		h.history.Log(entry)
		httputil.WriteOK(w, defaultResponse)
		return
	}
	entry.MatchedRule = rule.Path

	ctx, err := template.NewRequestContext(r, body, rules.Settings())
	if err != nil {
		if errors.Is(err, template.ErrInvalidJSONBody) {
			h.log.Warn("rejecting malformed request body", "requestId", requestID,
				"method", r.Method, "path", r.URL.Path, "error", err)
			entry.ResponseStatus = http.StatusBadRequest
			entry.Error = err.Error()
			h.history.Log(entry)
			httputil.WriteBadRequest(w, "invalid_json", "request body is not valid JSON")
			return
		}
		h.log.Error("failed to build request context", "requestId", requestID, "error", err)
		entry.ResponseStatus = http.StatusInternalServerError
		entry.Error = err.Error()
		h.history.Log(entry)
		httputil.WriteInternalError(w, "context_failed", "failed to process request")
		return
	}

	h.log.Info("request received", "requestId", requestID,
		"method", r.Method, "path", r.URL.Path, "matched", true, "rule", rule.Path)

	var bodyTree any = map[string]any{}
	if rule.InitialResponse != nil && rule.InitialResponse.Body != nil {
		bodyTree = rule.InitialResponse.Body
	}
	rendered := h.engine.RenderTree(bodyTree, ctx)
	status := rule.InitialResponse.EffectiveStatus()

	entry.ResponseStatus = status
	h.history.Log(entry)
	httputil.WriteJSON(w, status, rendered)

	if len(rule.Sequence) > 0 {
		// The context now carries the rendered initial response so later
		// webhook templates can reference what the caller was told.
		template.SetInitialResponse(ctx, rendered)
		h.runner.Schedule(rule.Sequence, ctx, requestID)
	}
}

// serveControl handles the introspection endpoints under ControlPrefix.
func (h *Handler) serveControl(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case ControlPrefix + "/health":
		if r.Method != http.MethodGet {
			httputil.WriteMethodNotAllowed(w, "method_not_allowed", "use GET")
			return
		}
		httputil.WriteOK(w, map[string]any{
			"status": "ok",
			"rules":  len(h.rules.Load().Rules()),
		})

	case ControlPrefix + "/requests":
		switch r.Method {
		case http.MethodGet:
			limit := 0
			if v := r.URL.Query().Get("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					httputil.WriteBadRequest(w, "invalid_limit", "limit must be a non-negative integer")
					return
				}
				limit = n
			}
			entries := h.history.List(limit)
			httputil.WriteOK(w, map[string]any{
				"count":    len(entries),
				"requests": entries,
			})
		case http.MethodDelete:
			h.history.Clear()
			httputil.WriteOK(w, map[string]any{"status": "cleared"})
		default:
			httputil.WriteMethodNotAllowed(w, "method_not_allowed", "use GET or DELETE")
		}

	default:
		httputil.WriteNotFound(w, "not_found", "unknown control endpoint")
	}
}
