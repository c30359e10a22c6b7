package course

import (
	"cmp"
	"slices"
)

// Sequence returns every lesson of the course in presentation order.
//
// Modules are stably ordered by ModuleOrder and their lessons flattened, then
// the flattened list is stably sorted by LessonOrder. Equal orders keep input
// order. Lessons without a ModuleID inherit their module's id.
func Sequence(modules []Module) []Lesson {
	ordered := slices.Clone(modules)
	slices.SortStableFunc(ordered, func(a, b Module) int {
		return cmp.Compare(a.ModuleOrder, b.ModuleOrder)
	})

	var lessons []Lesson
	for _, m := range ordered {
		for _, l := range m.Lessons {
			if l.ModuleID == "" {
				l.ModuleID = m.ID
			}
			lessons = append(lessons, l)
		}
	}

	slices.SortStableFunc(lessons, func(a, b Lesson) int {
		return cmp.Compare(a.LessonOrder, b.LessonOrder)
	})
	return lessons
}

// ResolveEntryLesson picks the lesson a learner lands on when opening a course:
// the last-accessed lesson if it still exists in the graph, otherwise the first
// lesson of the sequence. It returns false for a course with no lessons.
func ResolveEntryLesson(modules []Module, last *LastAccessed) (Lesson, bool) {
	if last != nil && last.LessonID != "" {
		if l, _, ok := FindLesson(modules, last.LessonID); ok {
			return l, true
		}
	}

	seq := Sequence(modules)
	if len(seq) == 0 {
		return Lesson{}, false
	}
	return seq[0], true
}

// Next returns the lesson after currentID. It returns false at the end of the
// course and when currentID is not in the graph.
func Next(modules []Module, currentID string) (Lesson, bool) {
	return adjacent(modules, currentID, 1)
}

// Previous returns the lesson before currentID. It returns false at the start of
// the course and when currentID is not in the graph.
func Previous(modules []Module, currentID string) (Lesson, bool) {
	return adjacent(modules, currentID, -1)
}

func adjacent(modules []Module, currentID string, step int) (Lesson, bool) {
	seq := Sequence(modules)
	i := slices.IndexFunc(seq, func(l Lesson) bool { return l.ID == currentID })
	if i < 0 {
		return Lesson{}, false
	}
	j := i + step
	if j < 0 || j >= len(seq) {
		return Lesson{}, false
	}
	return seq[j], true
}

// Position returns the 1-based index of lessonID in the sequence and the number
// of lessons. Index is 0 when the lesson is not found.
func Position(modules []Module, lessonID string) (index, total int) {
	seq := Sequence(modules)
	return slices.IndexFunc(seq, func(l Lesson) bool { return l.ID == lessonID }) + 1, len(seq)
}

// FindLesson looks a lesson up by id and returns it with its module.
func FindLesson(modules []Module, lessonID string) (Lesson, Module, bool) {
	for _, m := range modules {
		for _, l := range m.Lessons {
			if l.ID == lessonID {
				if l.ModuleID == "" {
					l.ModuleID = m.ID
				}
				return l, m, true
			}
		}
	}
	return Lesson{}, Module{}, false
}

// LessonCount returns the number of lessons across modules.
func LessonCount(modules []Module) int {
	n := 0
	for _, m := range modules {
		n += len(m.Lessons)
	}
	return n
}
