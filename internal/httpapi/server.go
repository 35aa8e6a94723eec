// Package httpapi serves the category search as a JSON REST API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Aman-CERP/catmatch/internal/app"
	"github.com/Aman-CERP/catmatch/internal/catalog"
	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
	"github.com/Aman-CERP/catmatch/internal/search"
	"github.com/Aman-CERP/catmatch/pkg/version"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Service is the search surface the REST API exposes. *app.Runtime
// satisfies it.
type Service interface {
	NewRequest(query string) search.Request
	Search(ctx context.Context, req search.Request) (*search.Response, error)
	Categories() catalog.TreeView
	Health(ctx context.Context) search.HealthReport
	Stats(ctx context.Context) (*app.Stats, error)
}

// Info is the body of GET /.
type Info struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// SearchBody is the JSON body accepted by POST /search.
type SearchBody struct {
	Query     string   `json:"query"`
	Limit     *int     `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

var endpoints = []string{
	"GET /",
	"GET /search?q=&limit=&threshold=",
	"POST /search",
	"GET /categories",
	"GET /health",
	"GET /stats",
}

// Server is the HTTP front end.
type Server struct {
	svc    Service
	addr   string
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer creates a server that will listen on addr.
func NewServer(svc Service, addr string, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("search service is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{svc: svc, addr: addr, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleInfo)
	s.mux.HandleFunc("GET /search", s.handleSearchQuery)
	s.mux.HandleFunc("POST /search", s.handleSearchBody)
	s.mux.HandleFunc("GET /categories", s.handleCategories)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stats", s.handleStats)
}

// Handler returns the routed handler wrapped in logging and recovery.
func (s *Server) Handler() http.Handler {
	return s.recoverer(s.logRequests(s.mux))
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("http_server_listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http_shutdown_failed", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("http_server_stopped")
	return nil
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Info{
		Service:   version.ServiceName,
		Version:   version.Version,
		Endpoints: endpoints,
	})
}

func (s *Server) handleSearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := s.svc.NewRequest(q.Get("q"))

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, caterrors.RequestError("limit must be an integer"))
			return
		}
		req.Limit = limit
	}
	if raw := q.Get("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, caterrors.RequestError("threshold must be a number"))
			return
		}
		req.Threshold = threshold
	}
	s.search(w, r, req)
}

func (s *Server) handleSearchBody(w http.ResponseWriter, r *http.Request) {
	var body SearchBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, caterrors.RequestError("request body must be a JSON object"))
		return
	}

	req := s.svc.NewRequest(body.Query)
	if body.Limit != nil {
		req.Limit = *body.Limit
	}
	if body.Threshold != nil {
		req.Threshold = *body.Threshold
	}
	s.search(w, r, req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req search.Request) {
	resp, err := s.svc.Search(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Categories())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health(r.Context()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// writeError maps request errors to 400 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if caterrors.IsRequestError(err) {
		status = http.StatusBadRequest
	} else {
		s.logger.Error("http_request_failed", caterrors.FormatForLog(err)...)
	}

	body, ferr := caterrors.FormatJSON(err)
	if ferr != nil {
		body = []byte(`{"code":"ERR_501_INTERNAL","message":"internal error"}`)
	}
	writeJSON(w, status, map[string]json.RawMessage{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
