package progress_test

import (
	"fmt"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

func module(id string, lessonIDs ...string) course.Module {
	m := course.Module{ID: id, CourseID: "course-1"}
	for i, l := range lessonIDs {
		m.Lessons = append(m.Lessons, course.Lesson{ID: l, ModuleID: id, LessonOrder: i + 1, LessonType: course.LessonVideo})
	}
	return m
}

func records(status progress.Status, lessonIDs ...string) []progress.Record {
	out := make([]progress.Record, 0, len(lessonIDs))
	for _, id := range lessonIDs {
		out = append(out, progress.Record{LearnerID: "learner-1", CourseID: "course-1", LessonID: id, Status: status})
	}
	return out
}

func TestModuleCompletion(t *testing.T) {
	tests := []struct {
		name    string
		module  course.Module
		records []progress.Record
		want    progress.ModuleProgress
	}{
		{
			name:   "empty module is never completed",
			module: module("m1"),
			want:   progress.ModuleProgress{},
		},
		{
			name:    "partial",
			module:  module("m1", "a", "b", "c"),
			records: records(progress.StatusCompleted, "a"),
			want:    progress.ModuleProgress{Completed: 1, Total: 3},
		},
		{
			name:    "in progress does not count",
			module:  module("m1", "a", "b"),
			records: append(records(progress.StatusCompleted, "a"), records(progress.StatusInProgress, "b")...),
			want:    progress.ModuleProgress{Completed: 1, Total: 2},
		},
		{
			name:    "all completed",
			module:  module("m1", "a", "b"),
			records: records(progress.StatusCompleted, "a", "b"),
			want:    progress.ModuleProgress{Completed: 2, Total: 2, IsCompleted: true},
		},
		{
			name:    "records for other lessons are ignored",
			module:  module("m1", "a"),
			records: records(progress.StatusCompleted, "x", "y"),
			want:    progress.ModuleProgress{Completed: 0, Total: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progress.ModuleCompletion(tt.module, tt.records)
			if got != tt.want {
				t.Errorf("ModuleCompletion() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCourseCompletion_TwoModulesFourOfSix(t *testing.T) {
	modules := []course.Module{
		module("m1", "l1", "l2", "l3"),
		module("m2", "l4", "l5", "l6"),
	}
	got := progress.CourseCompletion(modules, records(progress.StatusCompleted, "l1", "l2", "l4", "l6"))

	want := progress.CourseProgress{Percentage: 67, CompletedLessons: 4, TotalLessons: 6}
	if got != want {
		t.Errorf("CourseCompletion() = %+v, want %+v", got, want)
	}
}

func TestCourseCompletion_NoLessons(t *testing.T) {
	for _, modules := range [][]course.Module{nil, {module("m1")}, {module("m1"), module("m2")}} {
		got := progress.CourseCompletion(modules, records(progress.StatusCompleted, "l1"))
		if got.Percentage != 0 || got.IsCompleted {
			t.Errorf("CourseCompletion(%d empty modules) = %+v, want 0%%", len(modules), got)
		}
	}
}

func TestCourseCompletion_PercentageInRange(t *testing.T) {
	for total := 1; total <= 12; total++ {
		lessonIDs := make([]string, total)
		for i := range lessonIDs {
			lessonIDs[i] = fmt.Sprintf("l%d", i)
		}
		modules := []course.Module{module("m1", lessonIDs...)}

		for done := 0; done <= total; done++ {
			got := progress.CourseCompletion(modules, records(progress.StatusCompleted, lessonIDs[:done]...))
			if got.Percentage < 0 || got.Percentage > 100 {
				t.Fatalf("%d/%d: Percentage = %d out of range", done, total, got.Percentage)
			}
			if got.IsCompleted != (done == total) {
				t.Fatalf("%d/%d: IsCompleted = %v", done, total, got.IsCompleted)
			}
		}
	}
}
