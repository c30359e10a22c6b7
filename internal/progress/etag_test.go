package progress_test

import (
	"strings"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

func TestETag(t *testing.T) {
	a := progress.Record{LessonID: "a", Status: progress.StatusInProgress, CompletionPercentage: 10, Version: 1, LastAccessedAt: t0}
	b := progress.Record{LessonID: "b", Status: progress.StatusCompleted, CompletionPercentage: 100, Version: 2, LastAccessedAt: t0}

	tag := progress.ETag(nil, []progress.Record{a, b})
	if !strings.HasPrefix(tag, `"`) || !strings.HasSuffix(tag, `"`) || len(tag) != 34 {
		t.Errorf("ETag() = %s, want quoted 32 hex chars", tag)
	}
	if got := progress.ETag(nil, []progress.Record{b, a}); got != tag {
		t.Errorf("ETag depends on order: %s != %s", got, tag)
	}

	a.Version++
	if got := progress.ETag(nil, []progress.Record{a, b}); got == tag {
		t.Error("ETag unchanged after version bump")
	}
}

func TestETag_ContentChange(t *testing.T) {
	modules := []course.Module{module("m1", "a", "b")}
	tag := progress.ETag(modules, nil)

	moved := []course.Module{module("m1", "a", "b")}
	moved[0].Lessons[1].LessonOrder = -1
	if progress.ETag(moved, nil) == tag {
		t.Error("ETag unchanged after lesson reorder")
	}
	if progress.ETag([]course.Module{module("m1", "a", "b", "c")}, nil) == tag {
		t.Error("ETag unchanged after lesson added")
	}
}

func TestETag_Empty(t *testing.T) {
	if progress.ETag(nil, nil) != progress.ETag([]course.Module{}, []progress.Record{}) {
		t.Error("nil and empty sets should share an ETag")
	}
}
