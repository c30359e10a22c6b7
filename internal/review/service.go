package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-learn/internal/activity"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/platform/metrics"
)

// Service submits, deletes and summarizes reviews.
type Service struct {
	store   Store
	events  activity.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store Store, events activity.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, events: events, metrics: m, now: time.Now}
}

// WithClock replaces the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit inserts the learner's review or updates the one they already have.
func (s *Service) Submit(ctx context.Context, sub Submission) (Review, error) {
	if sub.LearnerID == "" {
		return Review{}, apperr.Unauthorized("review.submit", "learner is required")
	}
	existing, err := s.store.ByLearner(ctx, sub.LearnerID, sub.CourseID)
	if err != nil {
		return Review{}, err
	}
	r, err := Apply(existing, sub, s.now())
	if err != nil {
		return Review{}, err
	}
	saved, err := s.store.Save(ctx, r)
	if err != nil {
		return Review{}, err
	}

	op := "insert"
	if existing != nil {
		op = "update"
	}
	s.metrics.Review(op)
	activity.Log(s.events, activity.Event{
		LearnerID: saved.LearnerID,
		CourseID:  saved.CourseID,
		EventType: activity.ReviewSubmitted,
		Data:      map[string]any{"review_id": saved.ID, "operation": op, "rating": saved.Rating},
		CreatedAt: saved.UpdatedAt,
	})
	slog.Info("review saved", "learner_id", saved.LearnerID, "course_id", saved.CourseID, "operation", op)
	return saved, nil
}

// Delete removes the caller's own review.
func (s *Service) Delete(ctx context.Context, learnerID, reviewID string) error {
	const op = "review.delete"
	if learnerID == "" {
		return apperr.Unauthorized(op, "learner is required")
	}
	r, err := s.store.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.LearnerID != learnerID {
		return apperr.Unauthorized(op, "review %s belongs to another learner", reviewID)
	}
	if err := s.store.Delete(ctx, reviewID); err != nil {
		return err
	}

	s.metrics.Review("delete")
	activity.Log(s.events, activity.Event{
		LearnerID: learnerID,
		CourseID:  r.CourseID,
		EventType: activity.ReviewDeleted,
		Data:      map[string]any{"review_id": reviewID},
	})
	return nil
}

// Summary aggregates every review of the course.
func (s *Service) Summary(ctx context.Context, courseID string) (Summary, error) {
	reviews, err := s.store.ListByCourse(ctx, courseID)
	if err != nil {
		return Summary{}, err
	}
	sum := Stats(reviews)
	sum.CourseID = courseID
	return sum, nil
}

// Mine returns the learner's review of the course, or nil.
func (s *Service) Mine(ctx context.Context, learnerID, courseID string) (*Review, error) {
	if learnerID == "" {
		return nil, apperr.Unauthorized("review.mine", "learner is required")
	}
	return s.store.ByLearner(ctx, learnerID, courseID)
}
