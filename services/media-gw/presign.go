package mediagw

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gos3 "giftwrap/pkg/s3"
)

const (
	defaultTTLSeconds = 300
	maxTTLSeconds     = 3600
)

// Server issues presigned URLs for the memories media bucket so the front end
// can display, and authoring tools can upload, photos and videos without
// bucket credentials.
type Server struct {
	bucket string
	s3     *gos3.Client
}

// NewServer configures a Server using the provided S3 client and bucket.
func NewServer(bucket string, client *gos3.Client) (*Server, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	return &Server{bucket: bucket, s3: client}, nil
}

// RegisterHandlers attaches the presign routes.
func (s *Server) RegisterHandlers(mux *http.ServeMux) error {
	if s == nil {
		return errors.New("nil server")
	}
	if mux == nil {
		return errors.New("nil mux")
	}

	mux.HandleFunc("/v1/media/presign/get", s.handleGetPresign)
	mux.HandleFunc("/v1/media/presign/put", s.handlePutPresign)
	return nil
}

func (s *Server) handleGetPresign(w http.ResponseWriter, r *http.Request) {
	key, ttl, ok := s.presignParams(w, r)
	if !ok {
		return
	}

	url, err := s.s3.PresignGet(r.Context(), s.bucket, key, ttl)
	if err != nil {
		http.Error(w, fmt.Sprintf("presign: %v", err), http.StatusInternalServerError)
		return
	}

	writeURL(w, url)
}

func (s *Server) handlePutPresign(w http.ResponseWriter, r *http.Request) {
	key, ttl, ok := s.presignParams(w, r)
	if !ok {
		return
	}

	url, err := s.s3.PresignPut(r.Context(), s.bucket, key, ttl)
	if err != nil {
		http.Error(w, fmt.Sprintf("presign: %v", err), http.StatusInternalServerError)
		return
	}

	writeURL(w, url)
}

func (s *Server) presignParams(w http.ResponseWriter, r *http.Request) (string, time.Duration, bool) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", 0, false
	}

	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		http.Error(w, "missing key query parameter", http.StatusBadRequest)
		return "", 0, false
	}

	ttlSeconds := defaultTTLSeconds
	if raw := strings.TrimSpace(r.URL.Query().Get("ttl")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid ttl", http.StatusBadRequest)
			return "", 0, false
		}
		if parsed > maxTTLSeconds {
			parsed = maxTTLSeconds
		}
		ttlSeconds = parsed
	}

	return key, time.Duration(ttlSeconds) * time.Second, true
}

func writeURL(w http.ResponseWriter, url string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"url": url})
}
