package mediagw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gos3 "giftwrap/pkg/s3"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	t.Setenv("S3_ENDPOINT", "http://127.0.0.1:8333")
	t.Setenv("S3_ACCESS_KEY", "test-access")
	t.Setenv("S3_SECRET_KEY", "test-secret")
	t.Setenv("S3_DISABLE_TLS", "true")

	client, err := gos3.NewClientFromEnv()
	if err != nil {
		t.Fatalf("NewClientFromEnv() error: %v", err)
	}

	server, err := NewServer("memories", client)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	return server
}

func TestPresignValidation(t *testing.T) {
	server := newTestServer(t)
	mux := http.NewServeMux()
	if err := server.RegisterHandlers(mux); err != nil {
		t.Fatalf("RegisterHandlers() error: %v", err)
	}

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{
			name:       "missing key",
			method:     http.MethodGet,
			target:     "/v1/media/presign/get",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid ttl",
			method:     http.MethodGet,
			target:     "/v1/media/presign/get?key=a.jpg&ttl=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative ttl",
			method:     http.MethodGet,
			target:     "/v1/media/presign/get?key=a.jpg&ttl=-5",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong method",
			method:     http.MethodPost,
			target:     "/v1/media/presign/get?key=a.jpg",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

// Presigning is pure URL computation, so success paths work without a
// reachable endpoint.
func TestPresignGetAndPut(t *testing.T) {
	server := newTestServer(t)
	mux := http.NewServeMux()
	if err := server.RegisterHandlers(mux); err != nil {
		t.Fatalf("RegisterHandlers() error: %v", err)
	}

	for _, target := range []string{
		"/v1/media/presign/get?key=memories/a.jpg&ttl=60",
		"/v1/media/presign/put?key=memories/a.jpg",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d (body %s)", target, rec.Code, rec.Body.String())
		}

		var payload map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("%s: decode body: %v", target, err)
		}
		if !strings.Contains(payload["url"], "memories") {
			t.Fatalf("%s: unexpected url %q", target, payload["url"])
		}
	}
}
