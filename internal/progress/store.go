package progress

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

// Store persists progress records. Put merges the incoming record into the
// stored one with Merge. A non-zero expectedVersion makes Put fail with a
// conflict error when the stored version differs.
type Store interface {
	Get(ctx context.Context, key Key) (*Record, error)
	List(ctx context.Context, learnerID, courseID string) ([]Record, error)
	LastAccessed(ctx context.Context, learnerID, courseID string) (*course.LastAccessed, error)
	Put(ctx context.Context, rec Record, expectedVersion int64) (Record, error)
}

// Enrollments resolves the enrollment that authorizes progress writes. It
// returns an unauthorized error when the learner has no active enrollment.
type Enrollments interface {
	ActiveEnrollment(ctx context.Context, learnerID, courseID string) (string, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[Key]Record
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[Key]Record),
	}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// List fails like a database read would once ctx is done.
func (s *MemoryStore) List(ctx context.Context, learnerID, courseID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Transient("progress.list", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for k, r := range s.records {
		if k.LearnerID == learnerID && k.CourseID == courseID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Record) int { return b.LastAccessedAt.Compare(a.LastAccessedAt) })
	return out, nil
}

func (s *MemoryStore) LastAccessed(ctx context.Context, learnerID, courseID string) (*course.LastAccessed, error) {
	records, err := s.List(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &course.LastAccessed{
		LessonID:             records[0].LessonID,
		CompletionPercentage: records[0].CompletionPercentage,
	}, nil
}

func (s *MemoryStore) Put(_ context.Context, rec Record, expectedVersion int64) (Record, error) {
	if rec.LearnerID == "" || rec.CourseID == "" || rec.LessonID == "" {
		return Record{}, apperr.Input("progress.put", "learner, course and lesson are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Key()
	var stored *Record
	if r, ok := s.records[key]; ok {
		stored = &r
	}
	if expectedVersion != 0 && stored != nil && stored.Version != expectedVersion {
		return Record{}, apperr.Conflict("progress.put", "lesson %s was modified concurrently", rec.LessonID)
	}

	merged := Merge(stored, rec)
	s.records[key] = merged
	return merged, nil
}

// MemoryEnrollments is an in-memory implementation of Enrollments.
type MemoryEnrollments struct {
	enrollments map[[2]string]string
	mu          sync.RWMutex
}

func NewMemoryEnrollments() *MemoryEnrollments {
	return &MemoryEnrollments{enrollments: make(map[[2]string]string)}
}

// Enroll registers an active enrollment and returns its id.
func (e *MemoryEnrollments) Enroll(learnerID, courseID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := [2]string{learnerID, courseID}
	if id, ok := e.enrollments[key]; ok {
		return id
	}
	id := uuid.NewString()
	e.enrollments[key] = id
	return id
}

func (e *MemoryEnrollments) ActiveEnrollment(_ context.Context, learnerID, courseID string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	id, ok := e.enrollments[[2]string{learnerID, courseID}]
	if !ok {
		return "", apperr.Unauthorized("progress.enrollment", "learner %s is not enrolled in course %s", learnerID, courseID)
	}
	return id, nil
}
