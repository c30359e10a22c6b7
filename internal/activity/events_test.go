package activity_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/activity"
)

func TestMemoryLogger_LogEvent(t *testing.T) {
	logger := activity.NewMemoryLogger()

	err := logger.LogEvent(activity.Event{
		LearnerID: "learner-1",
		CourseID:  "course-1",
		EventType: activity.LessonViewed,
		Data: map[string]any{
			"lesson_id": "l1",
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != activity.LessonViewed {
		t.Errorf("EventType = %q, want %s", events[0].EventType, activity.LessonViewed)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryLogger_RequiresType(t *testing.T) {
	logger := activity.NewMemoryLogger()
	if err := logger.LogEvent(activity.Event{LearnerID: "l"}); err == nil {
		t.Fatal("expected error for missing event type")
	}
}

func TestPostgresLogger_LogEvent_NilPool(t *testing.T) {
	logger := activity.NewPostgresLogger(nil)

	err := logger.LogEvent(activity.Event{
		LearnerID: "learner-1",
		EventType: activity.QuizAttempted,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

type failingLogger struct{ calls int }

func (f *failingLogger) LogEvent(activity.Event) error {
	f.calls++
	return errors.New("down")
}

func TestLog_SwallowsFailures(t *testing.T) {
	f := &failingLogger{}
	activity.Log(f, activity.Event{EventType: activity.ReviewSubmitted})
	if f.calls != 1 {
		t.Errorf("calls = %d, want 1", f.calls)
	}
	activity.Log(nil, activity.Event{EventType: activity.ReviewSubmitted})
}
