package review

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

// Store persists reviews. Save inserts or updates by ID; ByLearner returns
// nil when the learner has not reviewed the course.
type Store interface {
	ByLearner(ctx context.Context, learnerID, courseID string) (*Review, error)
	Get(ctx context.Context, id string) (Review, error)
	ListByCourse(ctx context.Context, courseID string) ([]Review, error)
	Save(ctx context.Context, r Review) (Review, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews map[string]Review
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reviews: make(map[string]Review)}
}

func (s *MemoryStore) ByLearner(_ context.Context, learnerID, courseID string) (*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reviews {
		if r.LearnerID == learnerID && r.CourseID == courseID {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reviews[id]
	if !ok {
		return Review{}, apperr.NotFound("review.get", "review %s not found", id)
	}
	return r, nil
}

func (s *MemoryStore) ListByCourse(_ context.Context, courseID string) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Review{}
	for _, r := range s.reviews {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Review) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, r Review) (Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, other := range s.reviews {
		if id != r.ID && other.LearnerID == r.LearnerID && other.CourseID == r.CourseID {
			return Review{}, apperr.Conflict("review.save", "learner already reviewed course %s", r.CourseID)
		}
	}
	s.reviews[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return apperr.NotFound("review.delete", "review %s not found", id)
	}
	delete(s.reviews, id)
	return nil
}
