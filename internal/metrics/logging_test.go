package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// routedHandler mirrors the API mux: method patterns with a path value
func routedHandler(logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/validations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/validations", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /api/reports", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	return LoggingMiddleware(logger)(HTTPMiddleware(NewRegistry())(mux))
}

func captureLogs() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.InfoLevel)), &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("failed to parse log: %v, log: %s", err, buf.String())
	}
	return entry
}

func TestLoggingMiddleware_Routes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		route  string
		status int
		level  string
	}{
		{"GET", "/api/validations/3f2a", "GET /api/validations/{id}", 200, "info"},
		{"GET", "/api/validations/missing", "GET /api/validations/{id}", 404, "info"},
		{"POST", "/api/validations", "POST /api/validations", 202, "info"},
		{"GET", "/api/reports", "GET /api/reports", 502, "warn"},
		{"GET", "/api/nowhere", "unmatched", 404, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			logger, buf := captureLogs()
			w := httptest.NewRecorder()
			routedHandler(logger).ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			entry := lastEntry(t, buf)
			if entry["route"] != tt.route {
				t.Errorf("expected route %q, got %v", tt.route, entry["route"])
			}
			if entry["path"] != tt.path {
				t.Errorf("expected path %q, got %v", tt.path, entry["path"])
			}
			if entry["status"].(float64) != float64(tt.status) {
				t.Errorf("expected status %d, got %v", tt.status, entry["status"])
			}
			if entry["level"] != tt.level {
				t.Errorf("expected level %s, got %v", tt.level, entry["level"])
			}
			if _, ok := entry["duration_ms"]; !ok {
				t.Error("expected duration_ms in log entry")
			}
		})
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{"generated", "", false},
		{"reused", "job-poll-7", true},
		{"oversized", strings.Repeat("x", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := captureLogs()
			req := httptest.NewRequest("POST", "/api/validations", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			w := httptest.NewRecorder()
			routedHandler(logger).ServeHTTP(w, req)

			id := w.Header().Get("X-Request-ID")
			if tt.reused && id != tt.incoming {
				t.Errorf("expected incoming id %q, got %q", tt.incoming, id)
			}
			if !tt.reused {
				if _, err := uuid.Parse(id); err != nil {
					t.Errorf("expected generated uuid, got %q", id)
				}
			}
			if entry := lastEntry(t, buf); entry["request_id"] != id {
				t.Errorf("log request_id %v does not match header %q", entry["request_id"], id)
			}
		})
	}
}

func TestLoggingMiddleware_ClientIP(t *testing.T) {
	logger, buf := captureLogs()
	h := routedHandler(logger)

	req := httptest.NewRequest("GET", "/api/validations/3f2a", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got := lastEntry(t, buf)["client_ip"]; got != "10.0.0.1:54321" {
		t.Errorf("expected remote addr, got %v", got)
	}

	req = httptest.NewRequest("GET", "/api/validations/3f2a", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got := lastEntry(t, buf)["client_ip"]; got != "203.0.113.50" {
		t.Errorf("expected first forwarded address, got %v", got)
	}
}
