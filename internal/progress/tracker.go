package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-learn/internal/activity"
	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/platform/metrics"
)

// WritePolicy decides how concurrent writes to the same record are resolved.
type WritePolicy string

const (
	// LastWriteWins sends unconditional writes; the store's monotonic merge
	// keeps the result from regressing.
	LastWriteWins WritePolicy = "last_write_wins"
	// VersionCheck sends the version read before the write and fails with a
	// conflict when another writer got there first.
	VersionCheck WritePolicy = "version"
)

// Publisher receives every record written by the tracker.
type Publisher interface {
	Publish(rec Record)
}

// TrackerConfig holds dependencies for the tracker.
type TrackerConfig struct {
	Store       Store
	Enrollments Enrollments
	Content     course.Source
	Events      activity.Logger
	Publisher   Publisher
	Metrics     *metrics.Metrics
	WritePolicy WritePolicy
	Now         func() time.Time
}

// Tracker runs learner actions against a freshly fetched snapshot and writes
// results back through the store. It holds no progress state of its own.
type Tracker struct {
	store       Store
	enrollments Enrollments
	content     course.Source
	events      activity.Logger
	publisher   Publisher
	metrics     *metrics.Metrics
	policy      WritePolicy
	now         func() time.Time
}

// NewTracker creates a tracker. Store, Enrollments and Content are required.
func NewTracker(cfg TrackerConfig) *Tracker {
	events := cfg.Events
	if events == nil {
		events = activity.NopLogger{}
	}
	policy := cfg.WritePolicy
	if policy == "" {
		policy = LastWriteWins
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		store:       cfg.Store,
		enrollments: cfg.Enrollments,
		content:     cfg.Content,
		events:      events,
		publisher:   cfg.Publisher,
		metrics:     cfg.Metrics,
		policy:      policy,
		now:         now,
	}
}

// Snapshot is the derived view of one learner's progress in a course.
type Snapshot struct {
	CourseID     string               `json:"courseId"`
	Modules      []ModuleView         `json:"modules"`
	Records      []Record             `json:"records"`
	Completion   CourseProgress       `json:"completion"`
	EntryLesson  *course.Lesson       `json:"entryLesson,omitempty"`
	LastAccessed *course.LastAccessed `json:"lastAccessed,omitempty"`
	ETag         string               `json:"-"`
}

// ModuleView is a module with its derived completion.
type ModuleView struct {
	course.Module
	ModuleProgress
}

// Snapshot fetches the module graph and the learner's records and derives
// completion and the entry lesson from them.
func (t *Tracker) Snapshot(ctx context.Context, learnerID, courseID string) (*Snapshot, error) {
	if learnerID == "" {
		return nil, apperr.Unauthorized("progress.snapshot", "learner is required")
	}

	modules, err := t.content.Modules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	records, err := t.store.List(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	last, err := t.store.LastAccessed(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		CourseID:     courseID,
		Modules:      make([]ModuleView, 0, len(modules)),
		Records:      records,
		Completion:   CourseCompletion(modules, records),
		LastAccessed: last,
		ETag:         ETag(modules, records),
	}
	for _, m := range modules {
		snap.Modules = append(snap.Modules, ModuleView{Module: m, ModuleProgress: ModuleCompletion(m, records)})
	}
	if l, ok := course.ResolveEntryLesson(modules, last); ok {
		snap.EntryLesson = &l
	}
	return snap, nil
}

// Next returns the lesson after lessonID in the course.
func (t *Tracker) Next(ctx context.Context, courseID, lessonID string) (course.Lesson, bool, error) {
	modules, err := t.content.Modules(ctx, courseID)
	if err != nil {
		return course.Lesson{}, false, err
	}
	l, ok := course.Next(modules, lessonID)
	return l, ok, nil
}

// Previous returns the lesson before lessonID in the course.
func (t *Tracker) Previous(ctx context.Context, courseID, lessonID string) (course.Lesson, bool, error) {
	modules, err := t.content.Modules(ctx, courseID)
	if err != nil {
		return course.Lesson{}, false, err
	}
	l, ok := course.Previous(modules, lessonID)
	return l, ok, nil
}

// ViewLesson records a lesson view.
func (t *Tracker) ViewLesson(ctx context.Context, learnerID, courseID, lessonID string) (Record, error) {
	return t.write(ctx, "view", Key{learnerID, courseID, lessonID}, func(existing *Record, _ course.Lesson, now time.Time) (Record, error) {
		return View(existing, Key{learnerID, courseID, lessonID}, now), nil
	})
}

// ReportProgress records playback or reading progress.
func (t *Tracker) ReportProgress(ctx context.Context, learnerID, courseID, lessonID string, percentage int, notes string) (Record, error) {
	if err := ValidatePercentage(percentage); err != nil {
		return Record{}, err
	}
	key := Key{learnerID, courseID, lessonID}
	return t.write(ctx, "report", key, func(existing *Record, lesson course.Lesson, now time.Time) (Record, error) {
		rec, err := Report(existing, key, lesson.LessonType, percentage, now)
		rec.Notes = notes
		return rec, err
	})
}

// MarkComplete records an explicit completion action.
func (t *Tracker) MarkComplete(ctx context.Context, learnerID, courseID, lessonID string) (Record, error) {
	key := Key{learnerID, courseID, lessonID}
	return t.write(ctx, "complete", key, func(existing *Record, _ course.Lesson, now time.Time) (Record, error) {
		return MarkComplete(existing, key, now), nil
	})
}

// ApplyQuizResult records the effect of a graded quiz attempt on its lesson.
func (t *Tracker) ApplyQuizResult(ctx context.Context, learnerID, courseID, lessonID string, percentage float64, passed bool) (Record, error) {
	key := Key{learnerID, courseID, lessonID}
	return t.write(ctx, "quiz", key, func(existing *Record, _ course.Lesson, now time.Time) (Record, error) {
		return ApplyQuiz(existing, key, percentage, passed, now), nil
	})
}

// RequireLesson returns a data-integrity error when lessonID is not in the
// course graph.
func (t *Tracker) RequireLesson(ctx context.Context, courseID, lessonID string) error {
	_, err := t.lesson(ctx, courseID, lessonID)
	return err
}

func (t *Tracker) lesson(ctx context.Context, courseID, lessonID string) (course.Lesson, error) {
	modules, err := t.content.Modules(ctx, courseID)
	if err != nil {
		return course.Lesson{}, err
	}
	lesson, _, ok := course.FindLesson(modules, lessonID)
	if !ok {
		return course.Lesson{}, apperr.DataIntegrity("progress.lesson", "lesson %s not found in course %s", lessonID, courseID)
	}
	return lesson, nil
}

type transition func(existing *Record, lesson course.Lesson, now time.Time) (Record, error)

func (t *Tracker) write(ctx context.Context, action string, key Key, apply transition) (Record, error) {
	const op = "progress.write"

	if key.LearnerID == "" {
		return Record{}, apperr.Unauthorized(op, "learner is required")
	}

	lesson, err := t.lesson(ctx, key.CourseID, key.LessonID)
	if err != nil {
		return Record{}, err
	}

	enrollmentID, err := t.enrollments.ActiveEnrollment(ctx, key.LearnerID, key.CourseID)
	if err != nil {
		return Record{}, err
	}

	existing, err := t.store.Get(ctx, key)
	if err != nil {
		return Record{}, err
	}

	next, err := apply(existing, lesson, t.now())
	if err != nil {
		return Record{}, err
	}
	next.EnrollmentID = enrollmentID

	var expected int64
	if t.policy == VersionCheck && existing != nil {
		expected = existing.Version
	}

	// A learner navigating away cancels the request context; the write still
	// lands. Merge makes a late write harmless.
	saved, err := t.store.Put(context.WithoutCancel(ctx), next, expected)
	if err != nil {
		return Record{}, err
	}

	becameComplete := saved.IsCompleted && (existing == nil || !existing.IsCompleted)
	t.record(action, saved, becameComplete)
	return saved, nil
}

func (t *Tracker) record(action string, rec Record, becameComplete bool) {
	eventType := activity.LessonProgress
	switch {
	case becameComplete:
		eventType = activity.LessonCompleted
	case action == "view":
		eventType = activity.LessonViewed
	}
	activity.Log(t.events, activity.Event{
		LearnerID: rec.LearnerID,
		CourseID:  rec.CourseID,
		EventType: eventType,
		Data: map[string]any{
			"lesson_id":             rec.LessonID,
			"action":                action,
			"completion_percentage": rec.CompletionPercentage,
			"status":                string(rec.Status),
		},
		CreatedAt: rec.LastAccessedAt,
	})

	t.metrics.ProgressWrite(action, becameComplete)
	if t.publisher != nil {
		t.publisher.Publish(rec)
	}

	slog.Info("lesson progress saved",
		"action", action,
		"learner_id", rec.LearnerID,
		"course_id", rec.CourseID,
		"lesson_id", rec.LessonID,
		"status", rec.Status,
		"completion_percentage", rec.CompletionPercentage,
	)
}
