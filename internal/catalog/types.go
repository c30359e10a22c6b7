package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

// CourseFile is a course definition loaded from YAML.
type CourseFile struct {
	ID      string       `yaml:"id"`
	Title   string       `yaml:"title"`
	Modules []ModuleFile `yaml:"modules"`
}

// ModuleFile is a module within a course file. Order defaults to the
// position in the file when omitted.
type ModuleFile struct {
	ID      string       `yaml:"id"`
	Title   string       `yaml:"title"`
	Order   *int         `yaml:"order"`
	Locked  bool         `yaml:"locked"`
	Lessons []LessonFile `yaml:"lessons"`
}

// LessonFile is a lesson within a module.
type LessonFile struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Order    int    `yaml:"order"`
	Type     string `yaml:"type"`
	MediaURL string `yaml:"media_url"`
	Duration int    `yaml:"duration_minutes"`
	QuizID   string `yaml:"quiz_id"`
}

// QuizzesFile holds the quizzes of a course (*.quizzes.yaml).
type QuizzesFile struct {
	CourseID string     `yaml:"course_id"`
	Quizzes  []QuizFile `yaml:"quizzes"`
}

// QuizFile is a single quiz. Answers are authored as a YAML list.
type QuizFile struct {
	ID           string   `yaml:"id"`
	LessonID     string   `yaml:"lesson_id"`
	Question     string   `yaml:"question"`
	Answers      []string `yaml:"answers"`
	CorrectIndex int      `yaml:"correct_answer_index"`
	Points       int      `yaml:"points"`
}

// EnrollmentsFile lists active enrollments (enrollments.yaml).
type EnrollmentsFile struct {
	Enrollments []EnrollmentFile `yaml:"enrollments"`
}

// EnrollmentFile is one active enrollment. ID is derived when empty.
type EnrollmentFile struct {
	ID        string `yaml:"id"`
	LearnerID string `yaml:"learner_id"`
	CourseID  string `yaml:"course_id"`
}

func (c CourseFile) modules() []course.Module {
	modules := make([]course.Module, 0, len(c.Modules))
	for i, mf := range c.Modules {
		order := i + 1
		if mf.Order != nil {
			order = *mf.Order
		}
		m := course.Module{
			ID:           mf.ID,
			CourseID:     c.ID,
			Title:        mf.Title,
			ModuleOrder:  order,
			IsLocked:     mf.Locked,
			TotalLessons: len(mf.Lessons),
			Lessons:      make([]course.Lesson, 0, len(mf.Lessons)),
		}
		for _, lf := range mf.Lessons {
			m.Lessons = append(m.Lessons, course.Lesson{
				ID:              lf.ID,
				ModuleID:        mf.ID,
				Title:           lf.Title,
				LessonOrder:     lf.Order,
				LessonType:      course.LessonType(lf.Type),
				MediaURL:        lf.MediaURL,
				DurationMinutes: lf.Duration,
				QuizID:          lf.QuizID,
			})
		}
		modules = append(modules, m)
	}
	return modules
}

// toQuiz resolves the module from the course graph and serializes the
// answer list the way the content API delivers it.
func (q QuizFile) toQuiz(courseID string, modules []course.Module) (quiz.Quiz, error) {
	if q.ID == "" {
		return quiz.Quiz{}, fmt.Errorf("quiz without id")
	}
	answers, err := json.Marshal(q.Answers)
	if err != nil {
		return quiz.Quiz{}, fmt.Errorf("encode answers of quiz %s: %w", q.ID, err)
	}
	out := quiz.Quiz{
		ID:                 q.ID,
		CourseID:           courseID,
		LessonID:           q.LessonID,
		Question:           q.Question,
		Answers:            string(answers),
		CorrectAnswerIndex: q.CorrectIndex,
		Points:             q.Points,
	}
	if q.LessonID != "" {
		_, m, ok := course.FindLesson(modules, q.LessonID)
		if !ok {
			return quiz.Quiz{}, fmt.Errorf("quiz %s: lesson %s not in course %s", q.ID, q.LessonID, courseID)
		}
		out.ModuleID = m.ID
	}
	return out, nil
}
