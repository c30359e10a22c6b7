// Package api exposes learner progress, quizzes and reviews over HTTP.
//
// The upstream auth layer authenticates the learner and passes the id in the
// X-Learner-ID header. Requests without it are rejected with 401.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/platform/metrics"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
	"github.com/p-n-ai/pai-learn/internal/realtime"
	"github.com/p-n-ai/pai-learn/internal/review"
)

// LearnerHeader carries the authenticated learner id.
const LearnerHeader = "X-Learner-ID"

const maxRequestBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Config holds the services the handlers call.
type Config struct {
	Progress *progress.Tracker
	Quizzes  *quiz.Service
	Reviews  *review.Service
	Realtime *realtime.Hub
	Metrics  *metrics.Metrics
}

// Handler serves the /v1 routes.
type Handler struct {
	progress *progress.Tracker
	quizzes  *quiz.Service
	reviews  *review.Service
	hub      *realtime.Hub
	metrics  *metrics.Metrics
}

func New(cfg Config) *Handler {
	return &Handler{
		progress: cfg.Progress,
		quizzes:  cfg.Quizzes,
		reviews:  cfg.Reviews,
		hub:      cfg.Realtime,
		metrics:  cfg.Metrics,
	}
}

// Register adds every route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/courses/{courseId}/snapshot", h.learner(h.handleSnapshot))
	mux.HandleFunc("GET /v1/courses/{courseId}/entry", h.learner(h.handleEntry))
	mux.HandleFunc("GET /v1/courses/{courseId}/lessons/{lessonId}/next", h.learner(h.handleNext))
	mux.HandleFunc("GET /v1/courses/{courseId}/lessons/{lessonId}/previous", h.learner(h.handlePrevious))
	mux.HandleFunc("POST /v1/courses/{courseId}/lessons/{lessonId}/view", h.learner(h.handleView))
	mux.HandleFunc("PUT /v1/courses/{courseId}/lessons/{lessonId}/progress", h.learner(h.handleProgress))
	mux.HandleFunc("POST /v1/courses/{courseId}/lessons/{lessonId}/complete", h.learner(h.handleComplete))
	mux.HandleFunc("GET /v1/courses/{courseId}/export.xlsx", h.learner(h.handleExport))

	mux.HandleFunc("POST /v1/quizzes/{quizId}/submissions", h.learner(h.handleSubmitQuiz))
	mux.HandleFunc("GET /v1/quizzes/{quizId}/submissions", h.learner(h.handleQuizHistory))

	mux.HandleFunc("POST /v1/courses/{courseId}/reviews", h.learner(h.handleSubmitReview))
	mux.HandleFunc("GET /v1/courses/{courseId}/reviews/summary", h.learner(h.handleReviewSummary))
	mux.HandleFunc("GET /v1/courses/{courseId}/reviews/mine", h.learner(h.handleMyReview))
	mux.HandleFunc("DELETE /v1/reviews/{reviewId}", h.learner(h.handleDeleteReview))

	if h.hub != nil {
		mux.HandleFunc("GET /v1/ws/progress", h.learner(h.handleProgressStream))
	}
}

type learnerHandler func(w http.ResponseWriter, r *http.Request, learnerID string)

// learner rejects requests that carry no learner identity.
func (h *Handler) learner(next learnerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID := r.Header.Get(LearnerHeader)
		if learnerID == "" {
			h.metrics.Error(apperr.KindUnauthorized.String())
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing learner identity", Kind: apperr.KindUnauthorized.String()})
			return
		}
		next(w, r, learnerID)
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError maps err to a status by kind. Validation failures answer 422
// with one message per field.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	h.metrics.Error(kind.String())

	body := errorBody{Error: err.Error(), Kind: kind.String()}
	status := apperr.HTTPStatus(kind)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		status = http.StatusUnprocessableEntity
		body.Error = "validation failed"
		body.Fields = validationMessages(verrs)
	}

	switch kind {
	case apperr.KindInternal, apperr.KindTransient:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "kind", body.Kind, "error", err)
		if kind == apperr.KindInternal {
			body.Error = "internal error"
		}
	default:
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "kind", body.Kind, "error", err)
	}
	writeJSON(w, status, body)
}

func validationMessages(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "gte":
			msg = "must be at least " + fe.Param()
		case "lte":
			msg = "must be at most " + fe.Param()
		case "max":
			msg = "must be at most " + fe.Param() + " characters"
		case "oneof":
			msg = "must be one of: " + fe.Param()
		case "bcp47_language_tag":
			msg = "must be a language tag such as en or pt-BR"
		default:
			msg = "is invalid"
		}
		out[fe.Field()] = msg
	}
	return out
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Input(op, "invalid JSON body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.Wrap(apperr.KindInput, op, err)
	}
	return nil
}
