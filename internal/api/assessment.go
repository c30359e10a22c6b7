package api

import (
	"net/http"

	"github.com/p-n-ai/pai-learn/internal/review"
)

type quizSubmissionRequest struct {
	Answer string `json:"answer" validate:"required"`
}

func (h *Handler) handleSubmitQuiz(w http.ResponseWriter, r *http.Request, learnerID string) {
	var req quizSubmissionRequest
	if err := decode(w, r, "api.submit_quiz", &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.quizzes.Submit(r.Context(), learnerID, r.PathValue("quizId"), req.Answer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleQuizHistory(w http.ResponseWriter, r *http.Request, learnerID string) {
	attempts, err := h.quizzes.History(r.Context(), learnerID, r.PathValue("quizId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

// reviewRequest is decoded without validation; review.Apply validates the
// submission it becomes.
type reviewRequest struct {
	Rating         float64 `json:"rating"`
	Comment        string  `json:"comment"`
	WouldRecommend bool    `json:"wouldRecommend"`
	Difficulty     string  `json:"difficulty"`
	IsAnonymous    bool    `json:"isAnonymous"`
	Language       string  `json:"language"`
}

func (h *Handler) handleSubmitReview(w http.ResponseWriter, r *http.Request, learnerID string) {
	var req reviewRequest
	if err := decode(w, r, "api.submit_review", &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := h.reviews.Submit(r.Context(), review.Submission{
		LearnerID:      learnerID,
		CourseID:       r.PathValue("courseId"),
		Rating:         req.Rating,
		Comment:        req.Comment,
		WouldRecommend: req.WouldRecommend,
		Difficulty:     req.Difficulty,
		IsAnonymous:    req.IsAnonymous,
		Language:       req.Language,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleReviewSummary(w http.ResponseWriter, r *http.Request, _ string) {
	sum, err := h.reviews.Summary(r.Context(), r.PathValue("courseId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleMyReview(w http.ResponseWriter, r *http.Request, learnerID string) {
	mine, err := h.reviews.Mine(r.Context(), learnerID, r.PathValue("courseId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if mine == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, mine)
}

func (h *Handler) handleDeleteReview(w http.ResponseWriter, r *http.Request, learnerID string) {
	if err := h.reviews.Delete(r.Context(), learnerID, r.PathValue("reviewId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
