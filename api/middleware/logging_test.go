package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
)

func TestLoggingRecordsHandlerStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/favorites", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("status must pass through the recorder, got %d", resp.Code)
	}
	logs := buf.String()
	if !strings.Contains(logs, "request.complete") {
		t.Fatalf("completion line missing from logs: %s", logs)
	}
	if !strings.Contains(logs, `"status":201`) {
		t.Fatalf("handler status missing from logs: %s", logs)
	}
}

func TestLoggingDefaultsImplicitStatusToOK(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(buf.String(), `"status":200`) {
		t.Fatalf("implicit status must log as 200: %s", buf.String())
	}
}
