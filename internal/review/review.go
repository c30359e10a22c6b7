// Package review aggregates learner ratings of a course. A learner holds at
// most one review per course; resubmitting updates it in place.
package review

import (
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

// Moderation statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Difficulty tiers.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Review is a learner's rating of a course.
type Review struct {
	ID             string    `json:"id"`
	LearnerID      string    `json:"learnerId"`
	CourseID       string    `json:"courseId"`
	Rating         float64   `json:"rating"`
	Comment        string    `json:"comment"`
	WouldRecommend bool      `json:"wouldRecommend"`
	Difficulty     string    `json:"difficulty"`
	IsAnonymous    bool      `json:"isAnonymous"`
	Language       string    `json:"language,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Submission is the learner-authored content of a review.
type Submission struct {
	LearnerID      string  `json:"-" validate:"required"`
	CourseID       string  `json:"courseId" validate:"required"`
	Rating         float64 `json:"rating" validate:"gte=0,lte=5"`
	Comment        string  `json:"comment" validate:"max=2000"`
	WouldRecommend bool    `json:"wouldRecommend"`
	Difficulty     string  `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	IsAnonymous    bool    `json:"isAnonymous"`
	Language       string  `json:"language" validate:"omitempty,bcp47_language_tag"`
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Validate checks field constraints and that the rating is a half step.
func (s Submission) Validate() error {
	const op = "review.validate"
	if err := validate.Struct(s); err != nil {
		return apperr.Wrap(apperr.KindInput, op, err)
	}
	if doubled := s.Rating * 2; doubled != math.Trunc(doubled) {
		return apperr.Input(op, "rating must be a multiple of 0.5, got %v", s.Rating)
	}
	return nil
}

// Apply turns a submission into the review to store. With an existing review
// the identity and creation time are kept and moderation restarts.
func Apply(existing *Review, sub Submission, now time.Time) (Review, error) {
	if err := sub.Validate(); err != nil {
		return Review{}, err
	}

	r := Review{
		ID:        uuid.NewString(),
		LearnerID: sub.LearnerID,
		CourseID:  sub.CourseID,
		CreatedAt: now,
	}
	if existing != nil {
		if existing.LearnerID != sub.LearnerID || existing.CourseID != sub.CourseID {
			return Review{}, apperr.Unauthorized("review.apply", "review %s belongs to another learner or course", existing.ID)
		}
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	}

	r.Rating = sub.Rating
	r.Comment = sub.Comment
	r.WouldRecommend = sub.WouldRecommend
	r.Difficulty = sub.Difficulty
	r.IsAnonymous = sub.IsAnonymous
	r.Language = sub.Language
	r.Status = StatusPending
	r.UpdatedAt = now
	return r, nil
}

// Summary is the display aggregate of a course's reviews.
type Summary struct {
	CourseID      string  `json:"courseId"`
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

// Stats averages every review regardless of moderation status, rounded to
// one decimal. An empty set averages to 0.
func Stats(reviews []Review) Summary {
	s := Summary{TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return s
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	s.AverageRating = math.Round(sum/float64(len(reviews))*10) / 10
	return s
}
