package quiz_test

import (
	"testing"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/platform/database/dbtest"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

func TestPostgresAttempts(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := t.Context()

	store, err := quiz.NewPostgresAttempts(pool)
	if err != nil {
		t.Fatalf("NewPostgresAttempts() error = %v", err)
	}

	g := grader()
	first, _ := g.Submit(capitals(), "learner-1", "Berlin", nil)
	if err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append(first) error = %v", err)
	}
	if err := store.Append(ctx, first); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("Append(duplicate) error = %v, want conflict", err)
	}

	second, _ := g.Submit(capitals(), "learner-1", "Paris", []quiz.Attempt{first})
	if err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append(second) error = %v", err)
	}

	got, err := store.List(ctx, "learner-1", "quiz-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].AttemptNumber != 1 || got[1].AttemptNumber != 2 {
		t.Fatalf("List() = %+v", got)
	}
	if !got[1].IsPassed || got[1].CorrectAnswer != "Paris" || got[1].ModuleID != "m1" {
		t.Errorf("second attempt = %+v", got[1])
	}
}

func TestNewPostgresAttempts_NilPool(t *testing.T) {
	if _, err := quiz.NewPostgresAttempts(nil); err == nil {
		t.Error("NewPostgresAttempts(nil) should fail")
	}
}
