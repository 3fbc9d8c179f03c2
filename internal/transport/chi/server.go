package chi

import (
	"errors"
	"io"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dendrex/internal/domain"
	"github.com/kailas-cloud/dendrex/internal/logger"
	"github.com/kailas-cloud/dendrex/internal/transport/dto"
	analysisuc "github.com/kailas-cloud/dendrex/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/dendrex/internal/usecase/health"
)

// AnalysisIDHeader carries the run id of an analysis request.
const AnalysisIDHeader = "X-Analysis-ID"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the analysis API.
type Server struct {
	analysis      *analysisuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxBodyBytes <= 0 disables the body cap.
func NewServer(
	analysis *analysisuc.Service,
	health *healthuc.Service,
	maxBodyBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		analysis:     analysis,
		health:       health,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSchema, http.StatusBadRequest, dto.ErrorCodeMissingColumns),
		sentinelHandler(domain.ErrVectorization, http.StatusUnprocessableEntity, dto.ErrorCodeVectorization),
		sentinelHandler(domain.ErrEmptyCorpus, http.StatusUnprocessableEntity, dto.ErrorCodeEmptyCorpus),
		sentinelHandler(domain.ErrClustering, http.StatusUnprocessableEntity, dto.ErrorCodeClustering),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api", func(r gochi.Router) {
		r.Post("/analyze", s.Analyze)
		r.Post("/analyze/corpus", s.AnalyzeCorpus)
		r.Post("/preprocess", s.Preprocess)
		r.Post("/cardsort", s.CardSort)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, dto.ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, dto.ErrorCodeMethodNotAllowed, "method not allowed")
	})
}

// Analyze handles POST /api/analyze.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var req dto.RowsRequest
	if !s.decode(w, r, &req) {
		return
	}

	r = withRunID(w, r)
	env, err := s.analysis.Analyze(r.Context(), req.Rows)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewSuccess(dto.EnvelopeFrom(env), "Analysis completed"))
}

// Preprocess handles POST /api/preprocess.
func (s *Server) Preprocess(w http.ResponseWriter, r *http.Request) {
	var req dto.RowsRequest
	if !s.decode(w, r, &req) {
		return
	}

	r = withRunID(w, r)
	c, err := s.analysis.Preprocess(r.Context(), req.Rows)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewSuccess(dto.CorpusFrom(c), "Preprocessing completed"))
}

// AnalyzeCorpus handles POST /api/analyze/corpus.
func (s *Server) AnalyzeCorpus(w http.ResponseWriter, r *http.Request) {
	var req dto.Corpus
	if !s.decode(w, r, &req) {
		return
	}

	c, err := req.ToDomain(s.analysis.Options().MaxEntities)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	r = withRunID(w, r)
	env, err := s.analysis.AnalyzeCorpus(r.Context(), c)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewSuccess(dto.EnvelopeFrom(env), "Analysis completed"))
}

// CardSort handles POST /api/cardsort.
func (s *Server) CardSort(w http.ResponseWriter, r *http.Request) {
	var req dto.RowsRequest
	if !s.decode(w, r, &req) {
		return
	}

	r = withRunID(w, r)
	env, err := s.analysis.AnalyzeCardSort(r.Context(), req.Rows)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewSuccess(dto.EnvelopeFrom(env), "Card sort analysis completed"))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, dto.Health{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads the capped request body into v. Writes the failure response and returns false on error.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := r.Body
	if s.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, dto.ErrorCodeFileSizeExceeded,
				"request body exceeds the size limit")
			return false
		}
		writeError(w, http.StatusBadRequest, dto.ErrorCodeBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		writeError(w, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// withRunID assigns the analysis run id and reports it before the run starts.
func withRunID(w http.ResponseWriter, r *http.Request) *http.Request {
	id := uuid.NewString()
	w.Header().Set(AnalysisIDHeader, id)
	return r.WithContext(analysisuc.ContextWithRunID(r.Context(), id))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code dto.ErrorCode, message string) {
	writeJSON(w, status, dto.NewFailure(code, message))
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Schema errors keep their detail: the column names come from the client.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrSchema) {
		var se *domain.StageError
		if errors.As(err, &se) {
			return se.Err.Error()
		}
		return err.Error()
	}

	sentinels := []error{
		domain.ErrVectorization,
		domain.ErrEmptyCorpus,
		domain.ErrClustering,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code dto.ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, dto.ErrorCodeInternalError, "internal error")
}
