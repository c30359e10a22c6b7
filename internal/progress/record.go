// Package progress tracks per-lesson learner progress and derives completion.
//
// A lesson moves not_started -> in_progress -> completed. Completed is terminal:
// no transition in this package lowers a record's status or percentage.
package progress

import (
	"math"
	"time"

	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

// Status is the lifecycle state of a lesson for one learner.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

const (
	// FirstViewPercentage is recorded when a learner first opens a lesson.
	FirstViewPercentage = 5
	// CompletionThreshold auto-completes a media lesson.
	CompletionThreshold = 90
)

func (s Status) rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusNotStarted || s == StatusInProgress || s == StatusCompleted
}

// Key identifies a record.
type Key struct {
	LearnerID string
	CourseID  string
	LessonID  string
}

// Record is the persisted progress of one learner on one lesson.
type Record struct {
	LearnerID            string    `json:"learnerId"`
	CourseID             string    `json:"courseId"`
	LessonID             string    `json:"lessonId"`
	EnrollmentID         string    `json:"enrollmentId"`
	CompletionPercentage int       `json:"completionPercentage"`
	Status               Status    `json:"status"`
	IsCompleted          bool      `json:"isCompleted"`
	LastAccessedAt       time.Time `json:"lastAccessedAt"`
	Notes                string    `json:"notes,omitempty"`
	Version              int64     `json:"version"`
}

// Key returns the record's identity.
func (r Record) Key() Key {
	return Key{LearnerID: r.LearnerID, CourseID: r.CourseID, LessonID: r.LessonID}
}

func (r Record) normalized() Record {
	r.CompletionPercentage = min(max(r.CompletionPercentage, 0), 100)
	if !r.Status.Valid() {
		r.Status = StatusNotStarted
	}
	r.IsCompleted = r.Status == StatusCompleted
	return r
}

func start(existing *Record, key Key, now time.Time) Record {
	if existing == nil {
		return Record{
			LearnerID:            key.LearnerID,
			CourseID:             key.CourseID,
			LessonID:             key.LessonID,
			CompletionPercentage: FirstViewPercentage,
			Status:               StatusInProgress,
			LastAccessedAt:       now,
		}
	}
	r := *existing
	if r.Status.rank() < StatusInProgress.rank() {
		r.Status = StatusInProgress
		r.CompletionPercentage = max(r.CompletionPercentage, FirstViewPercentage)
	}
	r.LastAccessedAt = now
	return r
}

// View records that the learner opened the lesson. The first view creates the
// record at FirstViewPercentage.
func View(existing *Record, key Key, now time.Time) Record {
	return start(existing, key, now).normalized()
}

// Report applies a progress report. The stored percentage never decreases; media
// lessons complete once it reaches CompletionThreshold.
func Report(existing *Record, key Key, lessonType course.LessonType, percentage int, now time.Time) (Record, error) {
	if err := ValidatePercentage(percentage); err != nil {
		return Record{}, err
	}

	r := start(existing, key, now)
	r.CompletionPercentage = max(r.CompletionPercentage, percentage)
	if lessonType.IsMedia() && r.CompletionPercentage >= CompletionThreshold {
		r.Status = StatusCompleted
	}
	return r.normalized(), nil
}

// MarkComplete applies an explicit completion action.
func MarkComplete(existing *Record, key Key, now time.Time) Record {
	r := start(existing, key, now)
	r.Status = StatusCompleted
	r.CompletionPercentage = 100
	return r.normalized()
}

// ApplyQuiz applies the outcome of a graded quiz attempt tied to the lesson. Only
// a passing attempt completes the lesson; a failing one never undoes completion.
func ApplyQuiz(existing *Record, key Key, percentage float64, passed bool, now time.Time) Record {
	r := start(existing, key, now)
	r.CompletionPercentage = max(r.CompletionPercentage, int(math.Round(percentage)))
	if passed {
		r.Status = StatusCompleted
	}
	return r.normalized()
}

// Merge combines a stored record with an incoming write: the higher status and
// percentage win and LastAccessedAt only moves forward. Stores apply it so that
// stale or concurrent writes cannot regress a record.
func Merge(stored *Record, incoming Record) Record {
	if stored == nil {
		incoming.Version = 1
		return incoming.normalized()
	}

	out := incoming
	out.CompletionPercentage = max(stored.CompletionPercentage, incoming.CompletionPercentage)
	if stored.Status.rank() > incoming.Status.rank() {
		out.Status = stored.Status
	}
	if stored.LastAccessedAt.After(incoming.LastAccessedAt) {
		out.LastAccessedAt = stored.LastAccessedAt
	}
	if out.Notes == "" {
		out.Notes = stored.Notes
	}
	if out.EnrollmentID == "" {
		out.EnrollmentID = stored.EnrollmentID
	}
	out.Version = stored.Version + 1
	return out.normalized()
}

// ValidatePercentage rejects values outside [0,100].
func ValidatePercentage(p int) error {
	if p < 0 || p > 100 {
		return apperr.Input("progress.report", "completion percentage must be between 0 and 100, got %d", p)
	}
	return nil
}
