package storeapi

import (
	"cmp"
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/p-n-ai/pai-learn/internal/quiz"
)

// Quiz fetches a quiz definition.
func (c *Client) Quiz(ctx context.Context, quizID string) (quiz.Quiz, error) {
	var q quiz.Quiz
	_, err := c.do(ctx, request{
		op:     "storeapi.quiz",
		method: http.MethodGet,
		path:   "/quizzes/" + url.PathEscape(quizID),
		schema: quizSchema,
		out:    &q,
	})
	return q, err
}

// submission is the wire form of an attempt.
type submission struct {
	ID             string    `json:"id,omitempty"`
	QuizID         string    `json:"quizId"`
	LessonID       string    `json:"lessonId"`
	CourseID       string    `json:"courseId"`
	ModuleID       string    `json:"moduleId"`
	Score          int       `json:"score"`
	MaxScore       int       `json:"maxScore"`
	Percentage     float64   `json:"percentage"`
	Answers        string    `json:"answers"`
	CorrectAnswers string    `json:"correctAnswers"`
	AttemptNumber  int       `json:"attemptNumber"`
	IsPassed       bool      `json:"isPassed"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

func toSubmission(a quiz.Attempt) submission {
	return submission{
		ID:             a.ID,
		QuizID:         a.QuizID,
		LessonID:       a.LessonID,
		CourseID:       a.CourseID,
		ModuleID:       a.ModuleID,
		Score:          a.Score,
		MaxScore:       a.MaxScore,
		Percentage:     a.Percentage,
		Answers:        a.AnswerGiven,
		CorrectAnswers: a.CorrectAnswer,
		AttemptNumber:  a.AttemptNumber,
		IsPassed:       a.IsPassed,
		SubmittedAt:    a.SubmittedAt,
	}
}

func (s submission) attempt(learnerID string) quiz.Attempt {
	return quiz.Attempt{
		ID:            s.ID,
		LearnerID:     learnerID,
		QuizID:        s.QuizID,
		LessonID:      s.LessonID,
		CourseID:      s.CourseID,
		ModuleID:      s.ModuleID,
		AttemptNumber: s.AttemptNumber,
		Score:         s.Score,
		MaxScore:      s.MaxScore,
		Percentage:    s.Percentage,
		IsPassed:      s.IsPassed,
		SubmittedAt:   s.SubmittedAt,
		AnswerGiven:   s.Answers,
		CorrectAnswer: s.CorrectAnswers,
	}
}

// ListAttempts returns the learner's attempts on a quiz ordered by number.
func (c *Client) ListAttempts(ctx context.Context, learnerID, quizID string) ([]quiz.Attempt, error) {
	var subs []submission
	if _, err := c.do(ctx, request{
		op:        "storeapi.list_attempts",
		method:    http.MethodGet,
		path:      "/quiz-submissions?quizId=" + url.QueryEscape(quizID),
		learnerID: learnerID,
		schema:    attemptsSchema,
		out:       &subs,
	}); err != nil {
		return nil, err
	}
	attempts := make([]quiz.Attempt, 0, len(subs))
	for _, s := range subs {
		attempts = append(attempts, s.attempt(learnerID))
	}
	slices.SortFunc(attempts, func(a, b quiz.Attempt) int { return cmp.Compare(a.AttemptNumber, b.AttemptNumber) })
	return attempts, nil
}

// AppendAttempt submits an attempt. The external API answers 409 when the
// attempt number is already taken. The response body is ignored so that an
// attempt the API accepted is never reported as failed.
func (c *Client) AppendAttempt(ctx context.Context, a quiz.Attempt) error {
	_, err := c.do(ctx, request{
		op:        "storeapi.submit_quiz",
		method:    http.MethodPost,
		path:      "/quiz-submissions",
		learnerID: a.LearnerID,
		body:      toSubmission(a),
	})
	return err
}

// Attempts adapts the client to quiz.AttemptStore.
func (c *Client) Attempts() quiz.AttemptStore {
	return attemptStore{c}
}

type attemptStore struct{ c *Client }

func (s attemptStore) List(ctx context.Context, learnerID, quizID string) ([]quiz.Attempt, error) {
	return s.c.ListAttempts(ctx, learnerID, quizID)
}

func (s attemptStore) Append(ctx context.Context, a quiz.Attempt) error {
	return s.c.AppendAttempt(ctx, a)
}
