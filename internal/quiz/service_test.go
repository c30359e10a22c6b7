package quiz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/activity"
	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

type serviceFixture struct {
	svc         *quiz.Service
	attempts    *quiz.MemoryAttempts
	progress    *progress.MemoryStore
	enrollments *progress.MemoryEnrollments
	events      *activity.MemoryLogger
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()

	content := course.NewMemorySource()
	content.Put("course-1", []course.Module{{ID: "m1", CourseID: "course-1", Lessons: []course.Lesson{
		{ID: "lesson-1", ModuleID: "m1", LessonOrder: 1, LessonType: course.LessonText, QuizID: "quiz-1"},
	}}})
	quizzes := quiz.NewMemorySource()
	quizzes.Put(capitals())

	f := serviceFixture{
		attempts:    quiz.NewMemoryAttempts(),
		progress:    progress.NewMemoryStore(),
		enrollments: progress.NewMemoryEnrollments(),
		events:      activity.NewMemoryLogger(),
	}
	tracker := progress.NewTracker(progress.TrackerConfig{
		Store:       f.progress,
		Enrollments: f.enrollments,
		Content:     content,
	})
	f.svc = quiz.NewService(quiz.ServiceConfig{
		Quizzes:     quizzes,
		Attempts:    f.attempts,
		Enrollments: f.enrollments,
		Progress:    tracker,
		Grader:      grader(),
		Events:      f.events,
	})
	return f
}

func TestService_SubmitAppliesProgress(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.enrollments.Enroll("learner-1", "course-1")

	failed, err := f.svc.Submit(ctx, "learner-1", "quiz-1", "Berlin")
	if err != nil {
		t.Fatalf("Submit(Berlin) error = %v", err)
	}
	if failed.Attempt.AttemptNumber != 1 || failed.Attempt.IsPassed {
		t.Errorf("first attempt = %+v", failed.Attempt)
	}
	if failed.Progress == nil || failed.Progress.Status != progress.StatusInProgress {
		t.Errorf("progress after failed attempt = %+v, want in_progress", failed.Progress)
	}

	passed, err := f.svc.Submit(ctx, "learner-1", "quiz-1", "Paris")
	if err != nil {
		t.Fatalf("Submit(Paris) error = %v", err)
	}
	if passed.Attempt.AttemptNumber != 2 || !passed.Attempt.IsPassed {
		t.Errorf("second attempt = %+v", passed.Attempt)
	}
	if passed.Progress == nil || !passed.Progress.IsCompleted {
		t.Errorf("progress after passing attempt = %+v, want completed", passed.Progress)
	}

	third, err := f.svc.Submit(ctx, "learner-1", "quiz-1", "London")
	if err != nil {
		t.Fatalf("Submit(London) error = %v", err)
	}
	if third.Progress.Status != progress.StatusCompleted {
		t.Errorf("failed retry regressed lesson to %q", third.Progress.Status)
	}

	history, err := f.svc.History(ctx, "learner-1", "quiz-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	for i, a := range history {
		if a.AttemptNumber != i+1 {
			t.Errorf("history[%d].AttemptNumber = %d", i, a.AttemptNumber)
		}
	}
	latest, ok, err := f.svc.Latest(ctx, "learner-1", "quiz-1")
	if err != nil || !ok || latest.AttemptNumber != 3 || latest.IsPassed {
		t.Errorf("Latest() = %+v, %v, %v; want failed attempt 3", latest, ok, err)
	}

	types := f.events.Types()
	if len(types) != 3 || types[0] != activity.QuizAttempted {
		t.Errorf("event types = %v", types)
	}
}

func TestService_RejectsWithoutWriting(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, "learner-1", "quiz-1", "Paris"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("Submit() without enrollment error = %v, want unauthorized", err)
	}

	f.enrollments.Enroll("learner-1", "course-1")
	if _, err := f.svc.Submit(ctx, "learner-1", "quiz-1", ""); !apperr.Is(err, apperr.KindInput) {
		t.Errorf("Submit(empty) error = %v, want input error", err)
	}
	if _, err := f.svc.Submit(ctx, "learner-1", "missing", "Paris"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Submit(missing quiz) error = %v, want not found", err)
	}
	if _, err := f.svc.Submit(ctx, "", "quiz-1", "Paris"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("Submit(no learner) error = %v, want unauthorized", err)
	}

	history, _ := f.svc.History(ctx, "learner-1", "quiz-1")
	if len(history) != 0 {
		t.Errorf("rejected submissions recorded %d attempts", len(history))
	}
	if records, _ := f.progress.List(ctx, "learner-1", "course-1"); len(records) != 0 {
		t.Errorf("rejected submissions wrote progress: %+v", records)
	}
}

func TestService_OrphanLessonWritesNothing(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.enrollments.Enroll("learner-1", "course-1")

	orphan := capitals()
	orphan.ID = "quiz-orphan"
	orphan.LessonID = "gone"
	quizzes := quiz.NewMemorySource()
	quizzes.Put(orphan)

	content := course.NewMemorySource()
	content.Put("course-1", []course.Module{{ID: "m1", CourseID: "course-1", Lessons: []course.Lesson{
		{ID: "lesson-1", ModuleID: "m1", LessonOrder: 1, LessonType: course.LessonText},
	}}})
	svc := quiz.NewService(quiz.ServiceConfig{
		Quizzes:     quizzes,
		Attempts:    f.attempts,
		Enrollments: f.enrollments,
		Progress: progress.NewTracker(progress.TrackerConfig{
			Store:       f.progress,
			Enrollments: f.enrollments,
			Content:     content,
		}),
		Grader: grader(),
		Events: f.events,
	})

	for i := range 2 {
		if _, err := svc.Submit(ctx, "learner-1", "quiz-orphan", "Paris"); !apperr.Is(err, apperr.KindDataIntegrity) {
			t.Errorf("Submit() #%d error = %v, want data integrity", i+1, err)
		}
	}

	if attempts, _ := f.attempts.List(ctx, "learner-1", "quiz-orphan"); len(attempts) != 0 {
		t.Errorf("orphan lesson recorded %d attempts", len(attempts))
	}
	if records, _ := f.progress.List(ctx, "learner-1", "course-1"); len(records) != 0 {
		t.Errorf("orphan lesson wrote progress: %+v", records)
	}
	if types := f.events.Types(); len(types) != 0 {
		t.Errorf("orphan lesson logged events %v", types)
	}
}

type failingAttempts struct {
	quiz.AttemptStore
}

func (failingAttempts) Append(context.Context, quiz.Attempt) error {
	return apperr.Transient("quiz.append", errors.New("connection reset"))
}

func TestService_TransientErrorIsNotRetried(t *testing.T) {
	quizzes := quiz.NewMemorySource()
	quizzes.Put(capitals())
	store := failingAttempts{AttemptStore: quiz.NewMemoryAttempts()}

	svc := quiz.NewService(quiz.ServiceConfig{Quizzes: quizzes, Attempts: store, Grader: grader()})
	_, err := svc.Submit(context.Background(), "learner-1", "quiz-1", "Paris")
	if !apperr.Is(err, apperr.KindTransient) {
		t.Errorf("Submit() error = %v, want transient", err)
	}
}

func TestMemoryAttempts_Append(t *testing.T) {
	ctx := context.Background()
	store := quiz.NewMemoryAttempts()

	if err := store.Append(ctx, quiz.Attempt{LearnerID: "l", QuizID: "q", AttemptNumber: 1}); err != nil {
		t.Fatalf("Append(1) error = %v", err)
	}
	for _, n := range []int{1, 3} {
		err := store.Append(ctx, quiz.Attempt{LearnerID: "l", QuizID: "q", AttemptNumber: n})
		if !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("Append(%d) error = %v, want conflict", n, err)
		}
	}
	if err := store.Append(ctx, quiz.Attempt{QuizID: "q", AttemptNumber: 1}); !apperr.Is(err, apperr.KindInput) {
		t.Errorf("Append(no learner) error = %v, want input error", err)
	}

	list, _ := store.List(ctx, "l", "q")
	if len(list) != 1 {
		t.Errorf("List() = %d attempts, want 1", len(list))
	}
	empty, _ := store.List(ctx, "other", "q")
	if empty == nil || len(empty) != 0 {
		t.Errorf("List(unknown) = %v, want empty slice", empty)
	}
}
