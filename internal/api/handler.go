package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/eugenenazirov/jsonapi-settings/internal/jsonapi"
	"github.com/eugenenazirov/jsonapi-settings/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Resolver reads resolved JSON API options.
type Resolver interface {
	Get(name string) (any, error)
	Snapshot() (map[string]any, error)
}

// HostSettings is the mutable host settings object.
type HostSettings interface {
	Lookup(key string) (any, bool)
	Set(key string, value any) error
	Delete(key string) bool
	Snapshot() map[string]any
}

// Handler wires the settings facade and host settings into HTTP handlers.
type Handler struct {
	resolver Resolver
	host     HostSettings

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(resolver Resolver, host HostSettings, opts ...HandlerOption) *Handler {
	h := &Handler{
		resolver: resolver,
		host:     host,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListSettings(w http.ResponseWriter, _ *http.Request) {
	values, err := h.resolver.Snapshot()
	if err != nil {
		writeResolveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Settings:   values,
		ResolvedAt: h.clock(),
	})
}

func (h *Handler) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	name := strings.ToUpper(r.PathValue("option"))
	value, err := h.resolver.Get(name)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	_, overridden := h.host.Lookup(jsonapi.Key(name))
	writeJSON(w, http.StatusOK, settingResponse{
		Option:     name,
		Key:        jsonapi.Key(name),
		Value:      value,
		Overridden: overridden,
	})
}

func (h *Handler) handleListOverrides(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, overridesResponse{Overrides: h.host.Snapshot()})
}

func (h *Handler) handlePutOverride(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "Invalid override", "value is required", "Use DELETE to remove an override")
		return
	}

	if err := h.host.Set(key, req.Value); err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			writeError(w, http.StatusBadRequest, "Invalid override", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, overrideResponse{
		Key:       key,
		Value:     req.Value,
		UpdatedAt: h.clock(),
		Message:   "Override applied",
	})
}

func (h *Handler) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !h.host.Delete(key) {
		writeError(w, http.StatusNotFound, "Override not found", "no override set for "+key)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type overrideRequest struct {
	Value any `json:"value"`
}

type overrideResponse struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type overridesResponse struct {
	Overrides map[string]any `json:"overrides"`
}

type settingsResponse struct {
	Settings   map[string]any `json:"settings"`
	ResolvedAt time.Time      `json:"resolvedAt"`
}

type settingResponse struct {
	Option     string `json:"option"`
	Key        string `json:"key"`
	Value      any    `json:"value"`
	Overridden bool   `json:"overridden"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jsonapi.ErrUnknownOption):
		writeError(w, http.StatusNotFound, "Unknown option", err.Error())
	case errors.Is(err, jsonapi.ErrConfiguration):
		writeError(w, http.StatusUnprocessableEntity, "Invalid configuration", err.Error(),
			"Fix or remove the offending JSON_API_ override")
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
