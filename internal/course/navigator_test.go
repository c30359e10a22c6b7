package course_test

import (
	"testing"

	"github.com/p-n-ai/pai-learn/internal/course"
)

func lesson(id string, order int) course.Lesson {
	return course.Lesson{ID: id, LessonOrder: order, LessonType: course.LessonText}
}

func ids(lessons []course.Lesson) []string {
	out := make([]string, len(lessons))
	for i, l := range lessons {
		out[i] = l.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func twoModules() []course.Module {
	return []course.Module{
		{ID: "m2", ModuleOrder: 2, Lessons: []course.Lesson{lesson("c", 3), lesson("d", 4)}},
		{ID: "m1", ModuleOrder: 1, Lessons: []course.Lesson{lesson("b", 2), lesson("a", 1)}},
	}
}

func TestSequence(t *testing.T) {
	tests := []struct {
		name    string
		modules []course.Module
		want    []string
	}{
		{"empty", nil, []string{}},
		{"sorted by lesson order", twoModules(), []string{"a", "b", "c", "d"}},
		{
			"ties keep input order",
			[]course.Module{{ID: "m", Lessons: []course.Lesson{lesson("x", 1), lesson("y", 1), lesson("z", 0)}}},
			[]string{"z", "x", "y"},
		},
		{
			"missing order sorts first",
			[]course.Module{{ID: "m", Lessons: []course.Lesson{lesson("late", 5), {ID: "unordered", LessonType: course.LessonText}}}},
			[]string{"unordered", "late"},
		},
		{
			"equal lesson orders across modules follow module order",
			[]course.Module{
				{ID: "m2", ModuleOrder: 2, Lessons: []course.Lesson{lesson("second", 1)}},
				{ID: "m1", ModuleOrder: 1, Lessons: []course.Lesson{lesson("first", 1)}},
			},
			[]string{"first", "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(course.Sequence(tt.modules))
			if !equal(got, tt.want) {
				t.Errorf("Sequence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSequence_FillsModuleID(t *testing.T) {
	seq := course.Sequence(twoModules())
	if seq[0].ModuleID != "m1" || seq[3].ModuleID != "m2" {
		t.Errorf("ModuleID not inherited: %+v", seq)
	}
}

func TestSequence_DoesNotMutateInput(t *testing.T) {
	modules := twoModules()
	_ = course.Sequence(modules)
	if modules[0].ID != "m2" || modules[1].Lessons[0].ID != "b" {
		t.Error("Sequence() reordered the caller's slices")
	}
}

func TestResolveEntryLesson(t *testing.T) {
	modules := twoModules()

	tests := []struct {
		name   string
		last   *course.LastAccessed
		want   string
		wantOK bool
	}{
		{"no history starts at smallest order", nil, "a", true},
		{"last accessed present", &course.LastAccessed{LessonID: "c", CompletionPercentage: 40}, "c", true},
		{"last accessed removed from course", &course.LastAccessed{LessonID: "gone"}, "a", true},
		{"empty last accessed id", &course.LastAccessed{}, "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := course.ResolveEntryLesson(modules, tt.last)
			if ok != tt.wantOK || got.ID != tt.want {
				t.Errorf("ResolveEntryLesson() = (%s, %v), want (%s, %v)", got.ID, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveEntryLesson_NoLessons(t *testing.T) {
	_, ok := course.ResolveEntryLesson([]course.Module{{ID: "m"}}, nil)
	if ok {
		t.Error("ResolveEntryLesson() should report no lesson for an empty course")
	}
}

// A module with lessons {id 1, order 2} and {id 2, order 1} and no progress
// resumes into lesson 2.
func TestResolveEntryLesson_SmallestOrderWins(t *testing.T) {
	modules := []course.Module{{ID: "m", Lessons: []course.Lesson{lesson("1", 2), lesson("2", 1)}}}

	got, ok := course.ResolveEntryLesson(modules, nil)
	if !ok || got.ID != "2" {
		t.Errorf("ResolveEntryLesson() = %s, want 2", got.ID)
	}
}

func TestNextPrevious(t *testing.T) {
	modules := twoModules()

	tests := []struct {
		name     string
		current  string
		next     string
		nextOK   bool
		previous string
		prevOK   bool
	}{
		{"first", "a", "b", true, "", false},
		{"middle crosses module", "b", "c", true, "a", true},
		{"last", "d", "", false, "c", true},
		{"unknown fails closed", "zzz", "", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := course.Next(modules, tt.current)
			if ok != tt.nextOK || n.ID != tt.next {
				t.Errorf("Next(%s) = (%s, %v), want (%s, %v)", tt.current, n.ID, ok, tt.next, tt.nextOK)
			}
			p, ok := course.Previous(modules, tt.current)
			if ok != tt.prevOK || p.ID != tt.previous {
				t.Errorf("Previous(%s) = (%s, %v), want (%s, %v)", tt.current, p.ID, ok, tt.previous, tt.prevOK)
			}
		})
	}
}

func TestNextOfPreviousIsIdentity(t *testing.T) {
	modules := []course.Module{
		{ID: "m1", ModuleOrder: 1, Lessons: []course.Lesson{lesson("a", 1), lesson("b", 1), lesson("c", 7)}},
		{ID: "m2", ModuleOrder: 2, Lessons: []course.Lesson{lesson("d", 3), lesson("e", 0)}},
	}
	seq := course.Sequence(modules)

	for i, l := range seq {
		prev, ok := course.Previous(modules, l.ID)
		if i == 0 {
			if ok {
				t.Errorf("Previous(first) = %s, want none", prev.ID)
			}
			continue
		}
		back, ok := course.Next(modules, prev.ID)
		if !ok || back.ID != l.ID {
			t.Errorf("Next(Previous(%s)) = %s, want %s", l.ID, back.ID, l.ID)
		}
	}
}

func TestPosition(t *testing.T) {
	modules := twoModules()

	if i, n := course.Position(modules, "c"); i != 3 || n != 4 {
		t.Errorf("Position(c) = (%d, %d), want (3, 4)", i, n)
	}
	if i, _ := course.Position(modules, "nope"); i != 0 {
		t.Errorf("Position(nope) index = %d, want 0", i)
	}
}

func TestFindLesson(t *testing.T) {
	l, m, ok := course.FindLesson(twoModules(), "d")
	if !ok {
		t.Fatal("FindLesson(d) not found")
	}
	if m.ID != "m2" || l.ModuleID != "m2" {
		t.Errorf("FindLesson(d) module = %s/%s, want m2", m.ID, l.ModuleID)
	}
	if _, _, ok := course.FindLesson(twoModules(), "x"); ok {
		t.Error("FindLesson(x) should not be found")
	}
}

func TestLessonCount(t *testing.T) {
	if n := course.LessonCount(twoModules()); n != 4 {
		t.Errorf("LessonCount() = %d, want 4", n)
	}
}
