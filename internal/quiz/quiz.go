// Package quiz grades single-question quizzes and keeps the attempt history.
//
// Attempts are append-only. Each attempt is numbered count(prior)+1 for its
// learner and quiz, and the latest attempt determines the displayed status.
package quiz

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

// Quiz is a single question tied to a lesson. Answers holds the serialized
// option list as delivered by the content API.
type Quiz struct {
	ID                 string `json:"id"`
	CourseID           string `json:"courseId"`
	ModuleID           string `json:"moduleId"`
	LessonID           string `json:"lessonId"`
	Question           string `json:"question"`
	Answers            string `json:"answers"`
	CorrectAnswerIndex int    `json:"correctAnswerIndex"`
	Points             int    `json:"points"`
}

// Attempt is one graded submission.
type Attempt struct {
	ID            string    `json:"id"`
	LearnerID     string    `json:"learnerId"`
	QuizID        string    `json:"quizId"`
	LessonID      string    `json:"lessonId"`
	CourseID      string    `json:"courseId"`
	ModuleID      string    `json:"moduleId"`
	AttemptNumber int       `json:"attemptNumber"`
	Score         int       `json:"score"`
	MaxScore      int       `json:"maxScore"`
	Percentage    float64   `json:"percentage"`
	IsPassed      bool      `json:"isPassed"`
	SubmittedAt   time.Time `json:"submittedAt"`
	AnswerGiven   string    `json:"answerGiven"`
	CorrectAnswer string    `json:"correctAnswer"`
}

// ParseAnswers decodes the serialized option list. A malformed list is an
// input error.
func ParseAnswers(raw string) ([]string, error) {
	var answers []string
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, apperr.Input("quiz.parse_answers", "answer list is not a list of strings: %v", err)
	}
	return answers, nil
}

// Options returns the quiz's parsed answer list.
func (q Quiz) Options() ([]string, error) {
	return ParseAnswers(q.Answers)
}

// Matcher decides whether a learner's answer equals the correct option.
type Matcher interface {
	Match(given, correct string) bool
}

// StrictMatcher compares answers byte for byte.
type StrictMatcher struct{}

func (StrictMatcher) Match(given, correct string) bool {
	return given == correct
}

// NormalizedMatcher ignores surrounding whitespace, case and Unicode
// composition differences.
type NormalizedMatcher struct{}

func (NormalizedMatcher) Match(given, correct string) bool {
	return normalize(given) == normalize(correct)
}

func normalize(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// MatcherFor returns the matcher named by mode. Unknown modes are strict.
func MatcherFor(mode string) Matcher {
	if mode == "normalized" {
		return NormalizedMatcher{}
	}
	return StrictMatcher{}
}

// Grader scores submissions.
type Grader struct {
	Matcher Matcher
	Now     func() time.Time
}

// Submit grades answer against q and returns the attempt that follows prior.
// Only prior attempts by the same learner on the same quiz are counted.
func (g Grader) Submit(q Quiz, learnerID, answer string, prior []Attempt) (Attempt, error) {
	const op = "quiz.submit"

	if answer == "" {
		return Attempt{}, apperr.Input(op, "answer is required")
	}
	options, err := q.Options()
	if err != nil {
		return Attempt{}, err
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(options) {
		return Attempt{}, apperr.DataIntegrity(op, "quiz %s: correct answer index %d out of range for %d answers",
			q.ID, q.CorrectAnswerIndex, len(options))
	}
	if q.Points <= 0 {
		return Attempt{}, apperr.DataIntegrity(op, "quiz %s: points must be positive, got %d", q.ID, q.Points)
	}

	matcher := g.Matcher
	if matcher == nil {
		matcher = StrictMatcher{}
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	correct := options[q.CorrectAnswerIndex]
	isCorrect := matcher.Match(answer, correct)

	score := 0
	if isCorrect {
		score = q.Points
	}

	return Attempt{
		ID:            uuid.NewString(),
		LearnerID:     learnerID,
		QuizID:        q.ID,
		LessonID:      q.LessonID,
		CourseID:      q.CourseID,
		ModuleID:      q.ModuleID,
		AttemptNumber: countFor(prior, learnerID, q.ID) + 1,
		Score:         score,
		MaxScore:      q.Points,
		Percentage:    100 * float64(score) / float64(q.Points),
		IsPassed:      isCorrect,
		SubmittedAt:   now(),
		AnswerGiven:   answer,
		CorrectAnswer: correct,
	}, nil
}

func countFor(attempts []Attempt, learnerID, quizID string) int {
	n := 0
	for _, a := range attempts {
		if a.LearnerID == learnerID && a.QuizID == quizID {
			n++
		}
	}
	return n
}

// Latest returns the attempt with the highest number.
func Latest(attempts []Attempt) (Attempt, bool) {
	var out Attempt
	found := false
	for _, a := range attempts {
		if !found || a.AttemptNumber > out.AttemptNumber {
			out = a
			found = true
		}
	}
	return out, found
}
