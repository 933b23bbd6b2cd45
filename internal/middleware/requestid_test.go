package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	mw := NewRequestIDMiddleware()

	var captured string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := RequestIDFromContext(r.Context())
		if err != nil {
			t.Errorf("request ID should be in context: %v", err)
		}
		captured = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if captured == "" {
		t.Fatal("request ID should not be empty")
	}
	// 生成されたIDは有効なUUID
	if _, err := uuid.Parse(captured); err != nil {
		t.Errorf("request ID should be a valid UUID: %q", captured)
	}
	// レスポンスヘッダーにも同じIDが載る
	if got := w.Result().Header.Get(RequestIDHeader); got != captured {
		t.Errorf("response header %s = %q, want %q", RequestIDHeader, got, captured)
	}
}

func TestRequestIDMiddleware_PropagatesClientID(t *testing.T) {
	mw := NewRequestIDMiddleware()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := RequestIDFromContext(r.Context())
		if id != "client-supplied-id" {
			t.Errorf("request ID = %q, want %q", id, "client-supplied-id")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Result().Header.Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("response header %s = %q, want %q", RequestIDHeader, got, "client-supplied-id")
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := RequestIDFromContext(req.Context()); err == nil {
		t.Error("expected error for context without request ID")
	}
}
