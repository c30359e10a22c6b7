package review_test

import (
	"context"
	"testing"
	"time"

	"github.com/p-n-ai/pai-learn/internal/activity"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/review"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func submission(learnerID string, rating float64) review.Submission {
	return review.Submission{
		LearnerID:      learnerID,
		CourseID:       "course-1",
		Rating:         rating,
		Comment:        "solid course",
		WouldRecommend: true,
		Difficulty:     review.DifficultyIntermediate,
		Language:       "en",
	}
}

func TestSubmission_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*review.Submission)
		wantErr bool
	}{
		{"valid", func(*review.Submission) {}, false},
		{"zero rating", func(s *review.Submission) { s.Rating = 0 }, false},
		{"half step", func(s *review.Submission) { s.Rating = 3.5 }, false},
		{"not half step", func(s *review.Submission) { s.Rating = 3.3 }, true},
		{"above five", func(s *review.Submission) { s.Rating = 5.5 }, true},
		{"negative", func(s *review.Submission) { s.Rating = -0.5 }, true},
		{"unknown difficulty", func(s *review.Submission) { s.Difficulty = "expert" }, true},
		{"missing course", func(s *review.Submission) { s.CourseID = "" }, true},
		{"empty language allowed", func(s *review.Submission) { s.Language = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := submission("learner-1", 4)
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperr.Is(err, apperr.KindInput) {
				t.Errorf("Validate() error kind = %v, want input", apperr.KindOf(err))
			}
		})
	}
}

func TestApply_InsertThenUpdate(t *testing.T) {
	first, err := review.Apply(nil, submission("learner-1", 4), t0)
	if err != nil {
		t.Fatalf("Apply(insert) error = %v", err)
	}
	if first.ID == "" || first.Status != review.StatusPending {
		t.Errorf("inserted review = %+v", first)
	}

	first.Status = review.StatusApproved
	updated, err := review.Apply(&first, submission("learner-1", 2.5), t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Apply(update) error = %v", err)
	}
	if updated.ID != first.ID || !updated.CreatedAt.Equal(t0) {
		t.Errorf("update changed identity: %+v", updated)
	}
	if updated.Rating != 2.5 || updated.Status != review.StatusPending {
		t.Errorf("updated review = rating %v status %q, want 2.5 pending", updated.Rating, updated.Status)
	}
	if !updated.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v", updated.UpdatedAt)
	}
}

func TestApply_RejectsForeignReview(t *testing.T) {
	other, _ := review.Apply(nil, submission("learner-2", 4), t0)
	if _, err := review.Apply(&other, submission("learner-1", 4), t0); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("Apply(foreign) error = %v, want unauthorized", err)
	}
}

func TestStats(t *testing.T) {
	tests := []struct {
		name    string
		ratings []float64
		want    review.Summary
	}{
		{"empty", nil, review.Summary{}},
		{"single", []float64{4.5}, review.Summary{AverageRating: 4.5, TotalReviews: 1}},
		{"rounds to one decimal", []float64{5, 4, 4}, review.Summary{AverageRating: 4.3, TotalReviews: 3}},
		{"rounds up", []float64{4.5, 4.5, 5}, review.Summary{AverageRating: 4.7, TotalReviews: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := make([]review.Review, len(tt.ratings))
			for i, r := range tt.ratings {
				reviews[i] = review.Review{Rating: r, Status: review.StatusRejected}
			}
			if got := review.Stats(reviews); got != tt.want {
				t.Errorf("Stats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestService_ResubmitUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	events := activity.NewMemoryLogger()
	svc := review.NewService(review.NewMemoryStore(), events, nil).WithClock(func() time.Time { return t0 })

	first, err := svc.Submit(ctx, submission("learner-1", 4))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := svc.Submit(ctx, submission("learner-2", 3)); err != nil {
		t.Fatalf("Submit(learner-2) error = %v", err)
	}
	before, _ := svc.Summary(ctx, "course-1")

	again, err := svc.Submit(ctx, submission("learner-1", 5))
	if err != nil {
		t.Fatalf("Submit(resubmit) error = %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("resubmission created review %s, want %s", again.ID, first.ID)
	}

	after, err := svc.Summary(ctx, "course-1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if after.TotalReviews != before.TotalReviews || after.TotalReviews != 2 {
		t.Errorf("TotalReviews = %d after resubmit, want 2", after.TotalReviews)
	}
	if after.AverageRating != 4 || after.CourseID != "course-1" {
		t.Errorf("Summary() = %+v, want average 4", after)
	}

	mine, err := svc.Mine(ctx, "learner-1", "course-1")
	if err != nil || mine == nil || mine.Rating != 5 {
		t.Errorf("Mine() = %+v, %v", mine, err)
	}
	if got := len(events.Events()); got != 3 {
		t.Errorf("logged %d events, want 3", got)
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := review.NewService(review.NewMemoryStore(), nil, nil)

	mine, _ := svc.Submit(ctx, submission("learner-1", 4))
	theirs, _ := svc.Submit(ctx, submission("learner-2", 2))

	if err := svc.Delete(ctx, "learner-1", theirs.ID); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("Delete(other's review) error = %v, want unauthorized", err)
	}
	if err := svc.Delete(ctx, "learner-1", "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Delete(missing) error = %v, want not found", err)
	}
	if err := svc.Delete(ctx, "learner-1", mine.ID); err != nil {
		t.Fatalf("Delete(own) error = %v", err)
	}

	sum, _ := svc.Summary(ctx, "course-1")
	if sum.TotalReviews != 1 || sum.AverageRating != 2 {
		t.Errorf("Summary() after delete = %+v, want learner-2's review only", sum)
	}
}

func TestService_SubmitRequiresLearner(t *testing.T) {
	svc := review.NewService(review.NewMemoryStore(), nil, nil)
	if _, err := svc.Submit(context.Background(), submission("", 4)); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("Submit() error = %v, want unauthorized", err)
	}
}
