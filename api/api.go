// Package api is the HTTP surface of designscore.
//
//	POST /api/analyze          {url} → {ok, id, totalScore, resultPath}
//	GET  /api/analyses         ?limit= → catalog entries, newest first
//	GET  /api/analyses/{id}    catalog entry with recommendations
//	GET  /results/{id}/{file}  run artifacts
//	GET  /health
//
// Error bodies are {"error": "..."} with generic messages; details go to
// the request log.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/designscore/analyzer"
	"github.com/hazyhaar/designscore/guard"
	"github.com/hazyhaar/designscore/kit"
	"github.com/hazyhaar/designscore/observability"
	"github.com/hazyhaar/designscore/report"
	"github.com/hazyhaar/designscore/shield"
	"github.com/hazyhaar/designscore/store"
)

// Runner executes one analysis.
type Runner interface {
	Analyze(ctx context.Context, rawURL string) (*analyzer.AnalysisResult, *analyzer.RunOutcome, error)
}

// Catalog is the read side of the run catalog.
type Catalog interface {
	Get(ctx context.Context, id string) (*store.Entry, error)
	Result(ctx context.Context, id string) (*analyzer.AnalysisResult, error)
	List(ctx context.Context, limit int) ([]*store.Entry, error)
}

// Server holds the handler dependencies.
type Server struct {
	runner     Runner
	catalog    Catalog
	resultsDir string
	thresholds analyzer.Thresholds
	audit      *observability.AuditLogger
	db         *sql.DB
	worker     string
	staleAfter time.Duration
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAudit records every analyze call in the audit log.
func WithAudit(a *observability.AuditLogger) Option { return func(s *Server) { s.audit = a } }

// WithHealth makes /health ping db and report the heartbeat of worker.
func WithHealth(db *sql.DB, worker string, staleAfter time.Duration) Option {
	return func(s *Server) {
		s.db = db
		s.worker = worker
		s.staleAfter = staleAfter
	}
}

func WithThresholds(th analyzer.Thresholds) Option { return func(s *Server) { s.thresholds = th } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// New creates a Server serving artifacts from resultsDir.
func New(runner Runner, catalog Catalog, resultsDir string, opts ...Option) *Server {
	s := &Server{
		runner:     runner,
		catalog:    catalog,
		resultsDir: resultsDir,
		thresholds: analyzer.DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes builds the router. middleware is applied in order before routing.
func (s *Server) Routes(middleware ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	for _, mw := range middleware {
		r.Use(mw)
	}
	r.Get("/health", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/api/analyses", s.handleList)
	r.Get("/api/analyses/{id}", s.handleGet)
	r.Get("/results/{id}/{file}", s.handleResultFile)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	OK         bool   `json:"ok"`
	ID         string `json:"id"`
	TotalScore int    `json:"totalScore"`
	ResultPath string `json:"resultPath"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	logger := shield.GetLogger(r.Context())

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: decode analyze request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	start := time.Now()
	res, out, err := s.runner.Analyze(r.Context(), req.URL)
	var resp *analyzeResponse
	if err == nil {
		resp = &analyzeResponse{OK: true, ID: res.ID, TotalScore: res.Breakdown.Total, ResultPath: out.ResultPath}
	}
	s.auditCall(r.Context(), "analyze", req, resp, err, time.Since(start))

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, analyzer.ErrInvalidURL):
		logger.Info("api: rejected url", "url", req.URL, "error", err)
		writeError(w, http.StatusBadRequest, "invalid url")
	default:
		logger.Error("api: analysis failed", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 500)
	}
	entries, err := s.catalog.List(r.Context(), limit)
	if err != nil {
		shield.GetLogger(r.Context()).Error("api: list analyses", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []*store.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": entries})
}

type analysisResponse struct {
	*store.Entry
	Recommendations []analyzer.Recommendation `json:"recommendations"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if guard.ValidateIdentifier(id) != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	e, err := s.catalog.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		shield.GetLogger(r.Context()).Error("api: get analysis", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{
		Entry:           e,
		Recommendations: analyzer.Recommend(e.Scores, s.thresholds),
	})
}

// resultFiles are the artifacts a run directory may expose.
var resultFiles = map[string]string{
	analyzer.ResultFile:     "application/json",
	analyzer.ScreenshotFile: "image/png",
	report.HTMLFile:         "text/html; charset=utf-8",
	report.PDFFile:          "application/pdf",
	report.MarkdownFile:     "text/markdown; charset=utf-8",
}

func (s *Server) handleResultFile(w http.ResponseWriter, r *http.Request) {
	id, file := chi.URLParam(r, "id"), chi.URLParam(r, "file")
	ctype, ok := resultFiles[file]
	if !ok || guard.ValidateIdentifier(id) != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	path, err := guard.SafePath(s.resultsDir, id+"/"+file)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", ctype)
	http.ServeFile(w, r, path)
}

type healthResponse struct {
	Status    string                         `json:"status"`
	Heartbeat *observability.HeartbeatStatus `json:"heartbeat,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	if err := s.db.PingContext(r.Context()); err != nil {
		shield.GetLogger(r.Context()).Error("api: health ping", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	resp := healthResponse{Status: "ok"}
	if s.worker != "" {
		hs, err := observability.LatestHeartbeat(r.Context(), s.db, s.worker, s.staleAfter)
		if err != nil {
			shield.GetLogger(r.Context()).Warn("api: health heartbeat", "error", err)
		}
		resp.Heartbeat = hs
		if hs == nil || !hs.Alive {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) auditCall(ctx context.Context, op string, params, result any, err error, d time.Duration) {
	if s.audit == nil {
		return
	}
	e := s.audit.NewEntry("api", op, params, result, err, d)
	e.RequestID = kit.GetTraceID(ctx)
	s.audit.LogAsync(e)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
