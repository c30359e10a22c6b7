package quiz

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

// Source fetches quiz definitions.
type Source interface {
	Quiz(ctx context.Context, quizID string) (Quiz, error)
}

// AttemptStore persists attempts. List returns attempts ordered by number.
// Append rejects an attempt whose number is not len(List)+1 with a conflict
// error, so two attempts never share a number.
type AttemptStore interface {
	List(ctx context.Context, learnerID, quizID string) ([]Attempt, error)
	Append(ctx context.Context, a Attempt) error
}

// MemorySource is an in-memory Source.
type MemorySource struct {
	mu      sync.RWMutex
	quizzes map[string]Quiz
}

func NewMemorySource() *MemorySource {
	return &MemorySource{quizzes: make(map[string]Quiz)}
}

// Put adds or replaces a quiz.
func (s *MemorySource) Put(q Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[q.ID] = q
}

func (s *MemorySource) Quiz(_ context.Context, quizID string) (Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[quizID]
	if !ok {
		return Quiz{}, apperr.NotFound("quiz.get", "quiz %s not found", quizID)
	}
	return q, nil
}

// MemoryAttempts is an in-memory AttemptStore.
type MemoryAttempts struct {
	mu       sync.RWMutex
	attempts map[[2]string][]Attempt
}

func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{attempts: make(map[[2]string][]Attempt)}
}

func (s *MemoryAttempts) List(_ context.Context, learnerID, quizID string) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.attempts[[2]string{learnerID, quizID}])
	slices.SortFunc(out, func(a, b Attempt) int { return cmp.Compare(a.AttemptNumber, b.AttemptNumber) })
	if out == nil {
		out = []Attempt{}
	}
	return out, nil
}

func (s *MemoryAttempts) Append(_ context.Context, a Attempt) error {
	if a.LearnerID == "" || a.QuizID == "" {
		return apperr.Input("quiz.append", "learner and quiz are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := [2]string{a.LearnerID, a.QuizID}
	if want := len(s.attempts[k]) + 1; a.AttemptNumber != want {
		return apperr.Conflict("quiz.append", "attempt %d out of sequence for quiz %s, next is %d", a.AttemptNumber, a.QuizID, want)
	}
	s.attempts[k] = append(s.attempts[k], a)
	return nil
}
