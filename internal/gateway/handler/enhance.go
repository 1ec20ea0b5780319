package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"specforge/internal/diagnostics"
	"specforge/internal/enhancement"
	"specforge/internal/gateway/middleware"
	"specforge/internal/pipeline"
	"specforge/internal/util/jsonutil"
)

const maxBodyBytes = 1 << 20

// EnhanceHandler serves the REST enhancement endpoints and the diagnostics
// debug view.
type EnhanceHandler struct {
	enhancer *pipeline.Enhancer
	memory   *diagnostics.MemorySink
	logger   *log.Logger
}

// NewEnhanceHandler wires the handler. memory may be nil, in which case the
// debug endpoint reports 404.
func NewEnhanceHandler(enhancer *pipeline.Enhancer, memory *diagnostics.MemorySink, logger *log.Logger) *EnhanceHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &EnhanceHandler{enhancer: enhancer, memory: memory, logger: logger}
}

// HandleEnhanceSpec always answers 200 with a result. A body that cannot be
// decoded at all is enhanced as an empty specification, which resolves to
// the fallback.
func (h *EnhanceHandler) HandleEnhanceSpec(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req := DecodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes), h.logger)
	req.RequestID = middleware.RequestIDFrom(r.Context())

	res := h.enhancer.Enhance(r.Context(), req)
	writeJSON(w, http.StatusOK, res)
}

func (h *EnhanceHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"options": enhancement.Descriptors(),
	})
}

func (h *EnhanceHandler) HandleEnhanceLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.memory == nil {
		http.Error(w, "memory diagnostics sink is not enabled", http.StatusNotFound)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if id := strings.TrimSpace(r.URL.Query().Get("request_id")); id != "" {
		rec, ok := h.memory.Get(id)
		if !ok {
			http.Error(w, "request not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": []diagnostics.Record{rec}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": h.memory.Recent(limit),
	})
}

// DecodeRequest reads an enhance request body. Fields with the wrong JSON
// type are dropped and the rest is kept; a syntactically broken body yields
// an empty request.
func DecodeRequest(body io.Reader, logger *log.Logger) pipeline.Request {
	var req pipeline.Request
	data, err := io.ReadAll(body)
	if err != nil {
		logger.Printf("enhance: read request body: %v", err)
		return pipeline.Request{}
	}
	if err := json.Unmarshal(data, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			logger.Printf("enhance: ignoring mistyped request field %q: %v", typeErr.Field, err)
			return req
		}
		logger.Printf("enhance: malformed request body, using empty specification: %v", err)
		return pipeline.Request{}
	}
	return req
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonutil.WriteNoEscape(w, v)
}
