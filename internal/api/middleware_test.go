package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_LogsStatusAndPath(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	RequestLogger(handler, zap.New(core)).ServeHTTP(rec, req)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "GET" || fields["path"] != "/api/orders" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if fields["status"] != int64(http.StatusCreated) {
		t.Fatalf("expected status 201, got %v", fields["status"])
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestRequestLogger_DefaultsTo200AndKeepsRequestID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	RequestLogger(handler, zap.New(core)).ServeHTTP(rec, req)

	fields := logs.All()[0].ContextMap()
	if fields["status"] != int64(http.StatusOK) {
		t.Fatalf("expected default status 200, got %v", fields["status"])
	}
	if fields["request_id"] != "req-1" || rec.Header().Get(requestIDHeader) != "req-1" {
		t.Fatalf("expected inbound request id to be kept, got %v", fields["request_id"])
	}
}

func TestRequireAdmin_ExposesClaims(t *testing.T) {
	t.Parallel()

	var gotAdmin int64
	next := func(w http.ResponseWriter, r *http.Request) {
		gotAdmin = adminFromContext(r.Context()).AdminID
		w.WriteHeader(http.StatusNoContent)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	RequireAdmin(&fakeAuth{}, next)(rec, req)

	if rec.Code != http.StatusNoContent || gotAdmin != 7 {
		t.Fatalf("expected claims for admin 7, got status %d admin %d", rec.Code, gotAdmin)
	}
}
