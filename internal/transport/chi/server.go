// Package chi exposes the HTTP API: question answering, direct
// commentary search and health.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/courtside-ai/courtside/internal/domain"
	domagent "github.com/courtside-ai/courtside/internal/domain/agent"
	"github.com/courtside-ai/courtside/internal/domain/chunk"
	"github.com/courtside-ai/courtside/internal/repository/history"
	agentuc "github.com/courtside-ai/courtside/internal/usecase/agent"
	healthuc "github.com/courtside-ai/courtside/internal/usecase/health"
	retrievaluc "github.com/courtside-ai/courtside/internal/usecase/retrieval"
)

const maxQuestionLen = 2000

// History is the session-context contract used by the ask endpoint.
type History interface {
	Context(ctx context.Context, sessionID string) (string, error)
	Append(ctx context.Context, sessionID string, turn history.Turn) error
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the use case services.
type Server struct {
	agent           *agentuc.Service
	retrieval       *retrievaluc.Service
	history         History
	health          *healthuc.Service
	logger          *zap.Logger
	questionTimeout time.Duration
	errorHandlers   []errorHandler
}

// NewServer creates an HTTP API server. history can be nil, in which case
// session context is disabled.
func NewServer(
	agent *agentuc.Service,
	retrieval *retrievaluc.Service,
	hist History,
	health *healthuc.Service,
	questionTimeout time.Duration,
	logger *zap.Logger,
) *Server {
	s := &Server{
		agent:           agent,
		retrieval:       retrieval,
		history:         hist,
		health:          health,
		logger:          logger,
		questionTimeout: questionTimeout,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidTopK, http.StatusBadRequest, "invalid_top_k"),
		sentinelHandler(domain.ErrQueryRejected, http.StatusBadRequest, "query_rejected"),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"),
		sentinelHandler(domain.ErrRetriesExhausted, http.StatusServiceUnavailable, "generation_unavailable"),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, "generation_provider_error"),
	}
	return s
}

// Routes registers the API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/ask", s.Ask)
	r.Post("/v1/search", s.SearchCommentary)
	r.Get("/healthz", s.Healthz)
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse is the body of a successful POST /v1/ask.
type AskResponse struct {
	TraceID   string          `json:"trace_id"`
	Answer    string          `json:"answer"`
	Intent    string          `json:"intent"`
	Steps     []domagent.Step `json:"steps"`
	ToolsUsed []string        `json:"tools_used"`
	Hybrid    bool            `json:"hybrid"`
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Question is required")
		return
	}
	if len(question) > maxQuestionLen {
		writeError(w, http.StatusBadRequest, "validation_failed", "Question is too long")
		return
	}

	ctx := r.Context()
	if s.questionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.questionTimeout)
		defer cancel()
	}

	var conversation string
	if s.history != nil && req.SessionID != "" {
		var err error
		conversation, err = s.history.Context(ctx, req.SessionID)
		if err != nil {
			s.logger.Warn("session context unavailable",
				zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	result, err := s.agent.Ask(ctx, question, conversation)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if s.history != nil && req.SessionID != "" {
		turn := history.Turn{Question: question, Answer: result.Answer, AskedAt: time.Now().UTC()}
		if err := s.history.Append(r.Context(), req.SessionID, turn); err != nil {
			s.logger.Warn("session append failed",
				zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, AskResponse{
		TraceID:   result.TraceID,
		Answer:    result.Answer,
		Intent:    string(result.Intent),
		Steps:     result.Steps,
		ToolsUsed: result.ToolsUsed,
		Hybrid:    result.Hybrid,
	})
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// SearchHit is one ranked commentary passage.
type SearchHit struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
	Lexical    float64 `json:"lexical"`
	Authority  float64 `json:"authority"`
	Composite  float64 `json:"composite"`
}

// SearchResponse is the body of a successful POST /v1/search.
type SearchResponse struct {
	Hits []SearchHit `json:"hits"`
}

// SearchCommentary handles POST /v1/search, exposing the hybrid ranker
// directly without the reasoning loop.
func (s *Server) SearchCommentary(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Query is required")
		return
	}

	k := req.K
	if k == 0 {
		k = s.retrieval.DefaultK()
	}

	hits, err := s.retrieval.Search(r.Context(), query, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Hits: hitsFromScored(hits)})
}

func hitsFromScored(scored []chunk.Scored) []SearchHit {
	hits := make([]SearchHit, len(scored))
	for i, sc := range scored {
		hits[i] = SearchHit{
			ID:         sc.Chunk.ID(),
			Text:       sc.Chunk.Text(),
			Source:     sc.Chunk.Source(),
			Similarity: sc.Similarity,
			Lexical:    sc.Lexical,
			Authority:  sc.Authority,
			Composite:  sc.Composite,
		}
	}
	return hits
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidTopK,
		domain.ErrQueryRejected,
		domain.ErrSessionNotFound,
		domain.ErrRetriesExhausted,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}
