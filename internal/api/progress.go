package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/quiz"
	"github.com/p-n-ai/pai-learn/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request, learnerID string) {
	snap, err := h.progress.Snapshot(r.Context(), learnerID, r.PathValue("courseId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", snap.ETag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleEntry(w http.ResponseWriter, r *http.Request, learnerID string) {
	courseID := r.PathValue("courseId")
	snap, err := h.progress.Snapshot(r.Context(), learnerID, courseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if snap.EntryLesson == nil {
		h.writeError(w, r, apperr.NotFound("api.entry", "course %s has no lessons", courseID))
		return
	}
	writeJSON(w, http.StatusOK, snap.EntryLesson)
}

type adjacentResponse struct {
	Lesson *course.Lesson `json:"lesson"`
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request, _ string) {
	l, ok, err := h.progress.Next(r.Context(), r.PathValue("courseId"), r.PathValue("lessonId"))
	h.writeAdjacent(w, r, l, ok, err)
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request, _ string) {
	l, ok, err := h.progress.Previous(r.Context(), r.PathValue("courseId"), r.PathValue("lessonId"))
	h.writeAdjacent(w, r, l, ok, err)
}

// writeAdjacent answers {"lesson": null} at either end of the course.
func (h *Handler) writeAdjacent(w http.ResponseWriter, r *http.Request, l course.Lesson, ok bool, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := adjacentResponse{}
	if ok {
		resp.Lesson = &l
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request, learnerID string) {
	rec, err := h.progress.ViewLesson(r.Context(), learnerID, r.PathValue("courseId"), r.PathValue("lessonId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type progressRequest struct {
	CompletionPercentage *int   `json:"completionPercentage" validate:"required,gte=0,lte=100"`
	Notes                string `json:"notes" validate:"max=2000"`
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request, learnerID string) {
	var req progressRequest
	if err := decode(w, r, "api.progress", &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.progress.ReportProgress(r.Context(), learnerID, r.PathValue("courseId"), r.PathValue("lessonId"),
		*req.CompletionPercentage, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request, learnerID string) {
	rec, err := h.progress.MarkComplete(r.Context(), learnerID, r.PathValue("courseId"), r.PathValue("lessonId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleExport streams the learner's course progress and the attempts on
// every quiz the course links to as an xlsx workbook.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, learnerID string) {
	courseID := r.PathValue("courseId")
	snap, err := h.progress.Snapshot(r.Context(), learnerID, courseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var attempts []quiz.Attempt
	if h.quizzes != nil {
		seen := make(map[string]bool)
		for _, m := range snap.Modules {
			for _, l := range m.Lessons {
				if l.QuizID == "" || seen[l.QuizID] {
					continue
				}
				seen[l.QuizID] = true
				history, err := h.quizzes.History(r.Context(), learnerID, l.QuizID)
				if err != nil {
					h.writeError(w, r, err)
					return
				}
				attempts = append(attempts, history...)
			}
		}
	}

	var buf bytes.Buffer
	if err := report.WriteCourseProgress(&buf, snap, attempts); err != nil {
		h.writeError(w, r, fmt.Errorf("export course %s: %w", courseID, err))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-progress.xlsx"`, courseID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) handleProgressStream(w http.ResponseWriter, r *http.Request, learnerID string) {
	h.hub.Serve(w, r, learnerID)
}
