// Package course models the module/lesson graph of a course and navigation over it.
package course

import (
	"context"
	"sync"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

// LessonType is the presentation type of a lesson.
type LessonType string

const (
	LessonVideo LessonType = "video"
	LessonAudio LessonType = "audio"
	LessonText  LessonType = "text"
)

// IsMedia reports whether progress on the lesson is measured by playback.
func (t LessonType) IsMedia() bool {
	return t == LessonVideo || t == LessonAudio
}

// Valid reports whether t is a known lesson type.
func (t LessonType) Valid() bool {
	return t == LessonVideo || t == LessonAudio || t == LessonText
}

// Course is an ordered set of modules.
type Course struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Modules []Module `json:"modules"`
}

// Module groups lessons. CompletedLessons and TotalLessons are the values the
// content API reports; they are informational and never used for aggregation.
type Module struct {
	ID               string   `json:"id"`
	CourseID         string   `json:"courseId"`
	Title            string   `json:"title"`
	ModuleOrder      int      `json:"moduleOrder"`
	IsLocked         bool     `json:"isLocked"`
	CompletedLessons int      `json:"completedLessons"`
	TotalLessons     int      `json:"totalLessons"`
	Lessons          []Lesson `json:"lessons"`
}

// Lesson is a single unit of content. LessonOrder is not guaranteed unique or
// contiguous.
type Lesson struct {
	ID              string     `json:"id"`
	ModuleID        string     `json:"moduleId"`
	Title           string     `json:"title"`
	LessonOrder     int        `json:"lessonOrder"`
	LessonType      LessonType `json:"lessonType"`
	MediaURL        string     `json:"mediaUrl,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	QuizID          string     `json:"quizId,omitempty"`
}

// LastAccessed is the learner's most recently accessed lesson in a course.
type LastAccessed struct {
	LessonID             string `json:"lessonId"`
	CompletionPercentage int    `json:"completionPercentage"`
}

// Source fetches the module graph of a course.
type Source interface {
	Modules(ctx context.Context, courseID string) ([]Module, error)
}

// ValidateModules rejects graphs that aggregation and navigation cannot rely on:
// empty or duplicate ids, unknown lesson types, negative durations.
func ValidateModules(courseID string, modules []Module) error {
	const op = "course.validate"

	moduleIDs := make(map[string]bool, len(modules))
	lessonIDs := make(map[string]bool)
	for i, m := range modules {
		if m.ID == "" {
			return apperr.DataIntegrity(op, "course %s: module %d has no id", courseID, i)
		}
		if moduleIDs[m.ID] {
			return apperr.DataIntegrity(op, "course %s: duplicate module id %s", courseID, m.ID)
		}
		moduleIDs[m.ID] = true

		for j, l := range m.Lessons {
			if l.ID == "" {
				return apperr.DataIntegrity(op, "module %s: lesson %d has no id", m.ID, j)
			}
			if lessonIDs[l.ID] {
				return apperr.DataIntegrity(op, "course %s: duplicate lesson id %s", courseID, l.ID)
			}
			lessonIDs[l.ID] = true
			if !l.LessonType.Valid() {
				return apperr.DataIntegrity(op, "lesson %s: unknown lesson type %q", l.ID, l.LessonType)
			}
			if l.DurationMinutes < 0 {
				return apperr.DataIntegrity(op, "lesson %s: negative duration", l.ID)
			}
		}
	}
	return nil
}

// MemorySource serves fixed module graphs. Used in tests and for seeding.
type MemorySource struct {
	courses map[string][]Module
	mu      sync.RWMutex
}

func NewMemorySource() *MemorySource {
	return &MemorySource{courses: make(map[string][]Module)}
}

// Put replaces the graph of a course.
func (s *MemorySource) Put(courseID string, modules []Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[courseID] = modules
}

func (s *MemorySource) Modules(_ context.Context, courseID string) ([]Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	modules, ok := s.courses[courseID]
	if !ok {
		return nil, apperr.NotFound("course.modules", "course not found: %s", courseID)
	}
	return modules, nil
}
