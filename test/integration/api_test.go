package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/jsonapi-settings/internal/api"
	"github.com/eugenenazirov/jsonapi-settings/internal/jsonapi"
	"github.com/eugenenazirov/jsonapi-settings/internal/signals"
	"github.com/eugenenazirov/jsonapi-settings/internal/storage"
	"github.com/eugenenazirov/jsonapi-settings/internal/usersettings"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := zaptest.NewLogger(t)
	host := usersettings.New(storage.NewMemoryStorage(map[string]any{
		"JSON_API_NESTED_SERIALIZERS_RENDERING_STRATEGY": "RELATIONS",
	}), signals.New(), logger)
	settings, err := jsonapi.New(host, nil, jsonapi.WithLogger(logger))
	if err != nil {
		t.Fatalf("jsonapi.New returned error: %v", err)
	}
	t.Cleanup(settings.Subscribe(host.Signal()))

	return api.NewRouter(api.NewHandler(settings, host), logger)
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func resolvedFormatTypes(t *testing.T, handler http.Handler) any {
	t.Helper()

	rec := performRequest(t, handler, http.MethodGet, "/api/settings/FORMAT_TYPES", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from settings, got %d", rec.Code)
	}
	var response struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return response.Value
}

func TestIntegrationFlow(t *testing.T) {
	handler := newRouter(t)
	jsonHeaders := map[string]string{"Content-Type": "application/json"}

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	if got := resolvedFormatTypes(t, handler); got != false {
		t.Fatalf("expected default false, got %v", got)
	}

	payload, _ := json.Marshal(map[string]any{"value": true})
	rec = performRequest(t, handler, http.MethodPut, "/api/overrides/JSON_API_FORMAT_TYPES", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from override, got %d", rec.Code)
	}
	if got := resolvedFormatTypes(t, handler); got != true {
		t.Fatalf("expected override true, got %v", got)
	}

	// unrelated host settings do not disturb the facade
	payload, _ = json.Marshal(map[string]any{"value": "x"})
	rec = performRequest(t, handler, http.MethodPut, "/api/overrides/OTHER_FRAMEWORK_OPTION", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from unrelated override, got %d", rec.Code)
	}
	if got := resolvedFormatTypes(t, handler); got != true {
		t.Fatalf("expected override true to survive unrelated change, got %v", got)
	}

	rec = performRequest(t, handler, http.MethodDelete, "/api/overrides/JSON_API_FORMAT_TYPES", nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from delete, got %d", rec.Code)
	}
	if got := resolvedFormatTypes(t, handler); got != false {
		t.Fatalf("expected default false after removal, got %v", got)
	}
}
