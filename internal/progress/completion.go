package progress

import (
	"math"

	"github.com/p-n-ai/pai-learn/internal/course"
)

// ModuleProgress is the derived completion of one module.
type ModuleProgress struct {
	Completed   int  `json:"completed"`
	Total       int  `json:"total"`
	IsCompleted bool `json:"isCompleted"`
}

// CourseProgress is the derived completion of a whole course.
type CourseProgress struct {
	Percentage       int  `json:"percentage"`
	CompletedLessons int  `json:"completedLessons"`
	TotalLessons     int  `json:"totalLessons"`
	IsCompleted      bool `json:"isCompleted"`
}

// ModuleCompletion counts the module's lessons whose record is completed.
func ModuleCompletion(m course.Module, records []Record) ModuleProgress {
	return moduleCompletion(m, completedLessons(records))
}

func moduleCompletion(m course.Module, done map[string]bool) ModuleProgress {
	p := ModuleProgress{Total: len(m.Lessons)}
	for _, l := range m.Lessons {
		if done[l.ID] {
			p.Completed++
		}
	}
	p.IsCompleted = p.Total > 0 && p.Completed == p.Total
	return p
}

// CourseCompletion aggregates every module. Percentage is rounded to the nearest
// integer and is 0 for a course without lessons.
func CourseCompletion(modules []course.Module, records []Record) CourseProgress {
	done := completedLessons(records)

	var p CourseProgress
	for _, m := range modules {
		mp := moduleCompletion(m, done)
		p.CompletedLessons += mp.Completed
		p.TotalLessons += mp.Total
	}
	if p.TotalLessons > 0 {
		p.Percentage = int(math.Round(100 * float64(p.CompletedLessons) / float64(p.TotalLessons)))
	}
	p.IsCompleted = p.TotalLessons > 0 && p.CompletedLessons == p.TotalLessons
	return p
}

func completedLessons(records []Record) map[string]bool {
	done := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Status == StatusCompleted {
			done[r.LessonID] = true
		}
	}
	return done
}
