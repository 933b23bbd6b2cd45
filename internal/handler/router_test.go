package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/metricalog/internal/metrics"
	"github.com/hitoshi/metricalog/internal/middleware"
	"github.com/hitoshi/metricalog/internal/model"
)

// newTestRouter はテスト用の依存関係でルーターを組み立てるヘルパー。
func newTestRouter(t *testing.T, svc ExportServiceInterface) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     100,
		GeneralBurst:    100,
		ExportRate:      100,
		ExportBurst:     100,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	return NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		Logger:            logger,
		ExportService:     svc,
		Gatherer:          reg,
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, &mockExportService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, &mockExportService{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_ListResources(t *testing.T) {
	router := newTestRouter(t, &mockExportService{})

	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	req.RemoteAddr = "203.0.113.70:1000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Resources []struct {
			Name            string   `json:"name"`
			Fields          []string `json:"fields"`
			DateRangeExempt bool     `json:"date_range_exempt"`
		} `json:"resources"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Resources) == 0 {
		t.Fatal("resources should not be empty")
	}

	foundEvents := false
	foundProfiles := false
	for _, res := range body.Resources {
		switch res.Name {
		case "events":
			foundEvents = true
			if len(res.Fields) == 0 {
				t.Error("events should carry a registered field list")
			}
			if res.DateRangeExempt {
				t.Error("events should require a date range")
			}
		case "profiles":
			foundProfiles = true
			if !res.DateRangeExempt {
				t.Error("profiles should be date range exempt")
			}
		}
	}
	if !foundEvents || !foundProfiles {
		t.Errorf("expected events and profiles in resource list")
	}
}

func TestRouter_CreateExport(t *testing.T) {
	svc := &mockExportService{
		exportFn: func(ctx context.Context, req model.ExportRequest) (*model.ExportResult, error) {
			return &model.ExportResult{Format: model.FormatCSV, CSV: "a,b\n1,2"}, nil
		},
	}
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/exports", bytes.NewBufferString(`{
		"resource": "events",
		"application_id": "12345",
		"date_from": "2024-05-01",
		"date_to": "2024-05-02"
	}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.71:1000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if w.Body.String() != "a,b\n1,2" {
		t.Errorf("body = %q, want %q", w.Body.String(), "a,b\n1,2")
	}
}

func TestRouter_AssignsRequestID(t *testing.T) {
	router := newTestRouter(t, &mockExportService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(middleware.RequestIDHeader); got == "" {
		t.Error("X-Request-Id header should be set on responses")
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, &mockExportService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/exports", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
}

func TestRouter_ExportRateLimit(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     100,
		GeneralBurst:    100,
		ExportRate:      1,
		ExportBurst:     1,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	var buf bytes.Buffer
	router := NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		Logger:            slog.New(slog.NewJSONHandler(&buf, nil)),
		ExportService: &mockExportService{
			exportFn: func(ctx context.Context, req model.ExportRequest) (*model.ExportResult, error) {
				return &model.ExportResult{Format: model.FormatCSV, CSV: "ok"}, nil
			},
		},
	})

	body := `{"resource": "events", "application_id": "12345", "date_from": "2024-05-01", "date_to": "2024-05-02"}`

	req := httptest.NewRequest(http.MethodPost, "/api/exports", bytes.NewBufferString(body))
	req.RemoteAddr = "203.0.113.72:1000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", w.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/exports", bytes.NewBufferString(body))
	req.RemoteAddr = "203.0.113.72:1000"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
}
