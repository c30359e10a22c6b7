package quiz

import (
	"context"
	"log/slog"

	"github.com/p-n-ai/pai-learn/internal/activity"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/platform/metrics"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

// ProgressApplier records the effect of a graded attempt on its lesson.
// progress.Tracker implements it.
type ProgressApplier interface {
	RequireLesson(ctx context.Context, courseID, lessonID string) error
	ApplyQuizResult(ctx context.Context, learnerID, courseID, lessonID string, percentage float64, passed bool) (progress.Record, error)
}

// ServiceConfig holds dependencies for the quiz service.
type ServiceConfig struct {
	Quizzes     Source
	Attempts    AttemptStore
	Enrollments progress.Enrollments
	Progress    ProgressApplier
	Grader      Grader
	Events      activity.Logger
	Metrics     *metrics.Metrics
}

// Service submits answers and reads attempt history.
type Service struct {
	quizzes     Source
	attempts    AttemptStore
	enrollments progress.Enrollments
	progress    ProgressApplier
	grader      Grader
	events      activity.Logger
	metrics     *metrics.Metrics
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		quizzes:     cfg.Quizzes,
		attempts:    cfg.Attempts,
		enrollments: cfg.Enrollments,
		progress:    cfg.Progress,
		grader:      cfg.Grader,
		events:      cfg.Events,
		metrics:     cfg.Metrics,
	}
}

// Result is a recorded attempt and the lesson record it produced.
type Result struct {
	Attempt  Attempt          `json:"attempt"`
	Progress *progress.Record `json:"progress,omitempty"`
}

// Submit grades answer, appends the attempt and applies it to the lesson.
// Nothing is written when grading fails or the quiz's lesson is missing
// from the course. A failed store call is returned
// as is; resubmitting is left to the learner so no duplicate attempt is
// recorded behind their back.
func (s *Service) Submit(ctx context.Context, learnerID, quizID, answer string) (Result, error) {
	const op = "quiz.service.submit"

	if learnerID == "" {
		return Result{}, apperr.Unauthorized(op, "learner is required")
	}
	q, err := s.quizzes.Quiz(ctx, quizID)
	if err != nil {
		return Result{}, err
	}
	if s.enrollments != nil {
		if _, err := s.enrollments.ActiveEnrollment(ctx, learnerID, q.CourseID); err != nil {
			return Result{}, err
		}
	}

	applies := q.LessonID != "" && s.progress != nil
	if applies {
		if err := s.progress.RequireLesson(ctx, q.CourseID, q.LessonID); err != nil {
			return Result{}, err
		}
	}

	prior, err := s.attempts.List(ctx, learnerID, quizID)
	if err != nil {
		return Result{}, err
	}
	attempt, err := s.grader.Submit(q, learnerID, answer, prior)
	if err != nil {
		return Result{}, err
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		return Result{}, err
	}

	s.metrics.QuizAttempt(attempt.IsPassed)
	activity.Log(s.events, activity.Event{
		LearnerID: learnerID,
		CourseID:  q.CourseID,
		EventType: activity.QuizAttempted,
		Data: map[string]any{
			"quiz_id":        quizID,
			"lesson_id":      q.LessonID,
			"attempt_number": attempt.AttemptNumber,
			"score":          attempt.Score,
			"is_passed":      attempt.IsPassed,
		},
		CreatedAt: attempt.SubmittedAt,
	})
	slog.Info("quiz attempt recorded",
		"learner_id", learnerID,
		"quiz_id", quizID,
		"attempt_number", attempt.AttemptNumber,
		"is_passed", attempt.IsPassed,
	)

	res := Result{Attempt: attempt}
	if !applies {
		return res, nil
	}
	rec, err := s.progress.ApplyQuizResult(ctx, learnerID, q.CourseID, q.LessonID, attempt.Percentage, attempt.IsPassed)
	if err != nil {
		return res, err
	}
	res.Progress = &rec
	return res, nil
}

// History returns the learner's attempts on a quiz, oldest first.
func (s *Service) History(ctx context.Context, learnerID, quizID string) ([]Attempt, error) {
	if learnerID == "" {
		return nil, apperr.Unauthorized("quiz.service.history", "learner is required")
	}
	return s.attempts.List(ctx, learnerID, quizID)
}

// Latest returns the learner's most recent attempt, or false when there is none.
func (s *Service) Latest(ctx context.Context, learnerID, quizID string) (Attempt, bool, error) {
	attempts, err := s.History(ctx, learnerID, quizID)
	if err != nil {
		return Attempt{}, false, err
	}
	a, ok := Latest(attempts)
	return a, ok, nil
}

// Quiz returns the quiz definition.
func (s *Service) Quiz(ctx context.Context, quizID string) (Quiz, error) {
	return s.quizzes.Quiz(ctx, quizID)
}
