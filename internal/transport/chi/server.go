package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eduroad/coursemap/internal/db"
	"github.com/eduroad/coursemap/internal/domain"
	healthuc "github.com/eduroad/coursemap/internal/usecase/health"
	ingestuc "github.com/eduroad/coursemap/internal/usecase/ingest"
	recommenduc "github.com/eduroad/coursemap/internal/usecase/recommend"
)

// Server exposes the recommendation API over HTTP.
type Server struct {
	recommend *recommenduc.Service
	ingest    *ingestuc.Service
	health    *healthuc.Service
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	recommend *recommenduc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		recommend: recommend,
		ingest:    ingest,
		health:    health,
		logger:    logger,
	}
}

// Routes registers all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/courses/search", s.SearchCourses)
	r.Post("/catalog/reload", s.ReloadCatalog)
	r.Get("/catalog/status", s.CatalogStatus)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchCourses handles POST /courses/search.
func (s *Server) SearchCourses(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if req.Area == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "area is required")
		return
	}

	courses, err := s.recommend.Recommend(r.Context(), req)
	if err != nil {
		s.logger.Error("Recommendation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, courses)
}

// ReloadCatalog handles POST /catalog/reload. Ingestion runs in the
// background; a run already in progress is rejected with 409.
func (s *Server) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if s.ingest.Running() {
		writeError(w, http.StatusConflict, "ingest_running", domain.ErrIngestRunning.Error())
		return
	}

	opts := ingestuc.Options{
		Recreate: r.URL.Query().Get("recreate") == "true",
	}

	// Detach from the request context so the run survives the response.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		report, err := s.ingest.Run(ctx, opts)
		if err != nil {
			if errors.Is(err, domain.ErrIngestRunning) {
				return
			}
			s.logger.Error("Background ingestion failed", zap.Error(err))
			return
		}
		s.logger.Info("Background ingestion finished",
			zap.Int("indexed", report.Indexed),
			zap.String("duration", report.Duration))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// CatalogStatus handles GET /catalog/status.
func (s *Server) CatalogStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingest.LastReport(r.Context())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no ingestion run recorded yet")
			return
		}
		s.logger.Error("Failed to load ingest report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"running":     s.ingest.Running(),
		"last_report": report,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Checks["database"] == healthuc.CheckError {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
