// Package devserver is an in-memory stand-in for the orchestrator's test
// data endpoints, for local development and end-to-end tests.
package devserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/talentinsight/ai-quality-kit-sub003/internal/testdata"
)

// DefaultTTL is how long a bundle lives after ingestion.
const DefaultTTL = 24 * time.Hour

// maxArtifactBytes caps a single artifact payload.
const maxArtifactBytes = 10 << 20

// Options configures a Server.
type Options struct {
	// Token, when set, is required as a bearer credential on every request.
	Token  string
	TTL    time.Duration
	Now    func() time.Time
	Logger *slog.Logger
	// Fetch is used for by-url ingestion.
	Fetch *http.Client
}

type artifact struct {
	count  int
	sha256 string
}

type bundle struct {
	id        string
	createdAt time.Time
	expiresAt time.Time
	artifacts map[testdata.Artifact]artifact
}

// Server holds bundles in memory. It is safe for concurrent use.
type Server struct {
	router *mux.Router
	token  string
	ttl    time.Duration
	now    func() time.Time
	log    *slog.Logger
	fetch  *http.Client

	mu      sync.Mutex
	bundles map[string]*bundle
}

// New returns a Server with its routes registered.
func New(opts Options) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		token:   strings.TrimSpace(opts.Token),
		ttl:     opts.TTL,
		now:     opts.Now,
		log:     opts.Logger,
		fetch:   opts.Fetch,
		bundles: map[string]*bundle{},
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.fetch == nil {
		s.fetch = &http.Client{Timeout: 30 * time.Second}
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests, s.requireToken)
	s.router.HandleFunc("/testdata/upload", s.handleUpload).Methods(http.MethodPost)
	s.router.HandleFunc("/testdata/by-url", s.handleByURL).Methods(http.MethodPost)
	s.router.HandleFunc("/testdata/paste", s.handlePaste).Methods(http.MethodPost)
	s.router.HandleFunc("/testdata/{id}", s.handleMeta).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("dev server listening", "addr", addr, "token_required", s.token != "", "ttl", s.ttl)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// Len returns the number of stored bundles, expired ones included.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bundles)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start))
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		switch {
		case !ok || strings.TrimSpace(got) == "":
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		case strings.TrimSpace(got) != s.token:
			writeDetail(w, http.StatusForbidden, "Invalid token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxArtifactBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()
	payloads := map[testdata.Artifact][]byte{}
	for name, files := range r.MultipartForm.File {
		a, err := testdata.ParseArtifact(name)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(files) == 0 {
			continue
		}
		f, err := files[0].Open()
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxArtifactBytes))
		f.Close()
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		payloads[a] = data
	}
	s.store(w, payloads)
}

func (s *Server) handleByURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs map[string]string `json:"urls"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxArtifactBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	payloads := map[testdata.Artifact][]byte{}
	for name, u := range req.URLs {
		a, err := testdata.ParseArtifact(name)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		data, err := s.download(r.Context(), u)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("failed to fetch %s: %v", a, err))
			return
		}
		payloads[a] = data
	}
	s.store(w, payloads)
}

func (s *Server) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.fetch.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes))
}

func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(io.LimitReader(r.Body, maxArtifactBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	payloads := map[testdata.Artifact][]byte{}
	for name, text := range req {
		a, err := testdata.ParseArtifact(name)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		payloads[a] = []byte(text)
	}
	s.store(w, payloads)
}

// store lints every payload, then saves them as one new bundle.
func (s *Server) store(w http.ResponseWriter, payloads map[testdata.Artifact][]byte) {
	if len(payloads) == 0 {
		writeDetail(w, http.StatusBadRequest, "At least one artifact is required")
		return
	}
	b := &bundle{
		id:        uuid.NewString(),
		artifacts: map[testdata.Artifact]artifact{},
	}
	resp := ingestResponse{TestdataID: b.id, Counts: map[testdata.Artifact]int{}}
	for _, a := range testdata.AllArtifacts {
		data, ok := payloads[a]
		if !ok {
			continue
		}
		res := testdata.Lint(a, data)
		if !res.OK() {
			writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("%s: %s", a, strings.Join(res.Problems, "; ")))
			return
		}
		sum := sha256.Sum256(data)
		b.artifacts[a] = artifact{count: res.Count, sha256: hex.EncodeToString(sum[:])}
		resp.Artifacts = append(resp.Artifacts, a)
		resp.Counts[a] = res.Count
	}

	s.mu.Lock()
	b.createdAt = s.now().UTC()
	b.expiresAt = b.createdAt.Add(s.ttl)
	s.bundles[b.id] = b
	s.mu.Unlock()

	s.log.Info("bundle stored", "testdata_id", b.id, "artifacts", len(b.artifacts))
	writeJSON(w, http.StatusOK, resp)
}

type ingestResponse struct {
	TestdataID string                    `json:"testdata_id"`
	Artifacts  []testdata.Artifact       `json:"artifacts"`
	Counts     map[testdata.Artifact]int `json:"counts"`
}

type metaResponse struct {
	TestdataID string                                      `json:"testdata_id"`
	CreatedAt  string                                      `json:"created_at"`
	ExpiresAt  string                                      `json:"expires_at"`
	Artifacts  map[testdata.Artifact]testdata.ArtifactInfo `json:"artifacts"`
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	b, ok := s.bundles[id]
	expired := ok && !s.now().Before(b.expiresAt)
	s.mu.Unlock()

	switch {
	case !ok:
		writeDetail(w, http.StatusNotFound, "Test data bundle not found")
		return
	case expired:
		s.log.Info("bundle expired", "testdata_id", id)
		writeDetail(w, http.StatusGone, "Test data bundle has expired")
		return
	}

	resp := metaResponse{
		TestdataID: b.id,
		CreatedAt:  b.createdAt.Format(time.RFC3339),
		ExpiresAt:  b.expiresAt.Format(time.RFC3339),
		Artifacts:  make(map[testdata.Artifact]testdata.ArtifactInfo, len(testdata.AllArtifacts)),
	}
	for _, a := range testdata.AllArtifacts {
		art, present := b.artifacts[a]
		if !present {
			resp.Artifacts[a] = testdata.ArtifactInfo{Present: false}
			continue
		}
		count := art.count
		resp.Artifacts[a] = testdata.ArtifactInfo{Present: true, Count: &count, SHA256: art.sha256}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
