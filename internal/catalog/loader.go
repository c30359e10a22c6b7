// Package catalog loads course content, quizzes and enrollments from YAML
// files. It serves as the content source when no external API is configured.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

const (
	quizzesSuffix   = ".quizzes.yaml"
	enrollmentsFile = "enrollments.yaml"
)

// Loader loads and holds catalog content from the filesystem.
type Loader struct {
	rootDir     string
	courses     map[string]CourseFile
	quizzes     map[string]quiz.Quiz
	enrollments map[[2]string]string
	mu          sync.RWMutex
}

// NewLoader creates a loader and loads all content under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{rootDir: rootDir}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload rereads every file. On failure the previously loaded content is kept.
func (l *Loader) Reload() error {
	next := &Loader{
		rootDir:     l.rootDir,
		courses:     make(map[string]CourseFile),
		quizzes:     make(map[string]quiz.Quiz),
		enrollments: make(map[[2]string]string),
	}

	var quizFiles []string
	err := filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		switch {
		case strings.HasSuffix(path, quizzesSuffix):
			quizFiles = append(quizFiles, path)
		case filepath.Base(path) == enrollmentsFile:
			return next.loadEnrollments(path)
		case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
			return next.loadCourse(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	// Quizzes reference lessons, so they load after every course.
	for _, path := range quizFiles {
		if err := next.loadQuizzes(path); err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
	}

	l.mu.Lock()
	l.courses = next.courses
	l.quizzes = next.quizzes
	l.enrollments = next.enrollments
	l.mu.Unlock()

	slog.Info("catalog loaded",
		"courses", len(next.courses),
		"quizzes", len(next.quizzes),
		"enrollments", len(next.enrollments),
	)
	return nil
}

func (l *Loader) loadCourse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var c CourseFile
	if err := yaml.Unmarshal(data, &c); err != nil {
		slog.Warn("skipping invalid course YAML", "path", path, "error", err)
		return nil
	}
	if c.ID == "" {
		return nil // Not a course file
	}
	if err := course.ValidateModules(c.ID, c.modules()); err != nil {
		slog.Warn("skipping inconsistent course", "path", path, "error", err)
		return nil
	}

	l.courses[c.ID] = c
	return nil
}

func (l *Loader) loadQuizzes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f QuizzesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping invalid quizzes YAML", "path", path, "error", err)
		return nil
	}
	c, ok := l.courses[f.CourseID]
	if !ok {
		slog.Warn("skipping quizzes for unknown course", "path", path, "course_id", f.CourseID)
		return nil
	}

	modules := c.modules()
	for _, qf := range f.Quizzes {
		q, err := qf.toQuiz(c.ID, modules)
		if err != nil {
			slog.Warn("skipping quiz", "path", path, "error", err)
			continue
		}
		l.quizzes[q.ID] = q
	}
	return nil
}

func (l *Loader) loadEnrollments(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f EnrollmentsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping invalid enrollments YAML", "path", path, "error", err)
		return nil
	}
	for _, e := range f.Enrollments {
		if e.LearnerID == "" || e.CourseID == "" {
			continue
		}
		id := e.ID
		if id == "" {
			id = uuid.NewSHA1(uuid.NameSpaceURL, []byte("enrollment:"+e.LearnerID+"/"+e.CourseID)).String()
		}
		l.enrollments[[2]string{e.LearnerID, e.CourseID}] = id
	}
	return nil
}

// Modules returns the module graph of a course.
func (l *Loader) Modules(_ context.Context, courseID string) ([]course.Module, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.courses[courseID]
	if !ok {
		return nil, apperr.NotFound("catalog.modules", "course not found: %s", courseID)
	}
	return c.modules(), nil
}

// Quiz returns a quiz by ID.
func (l *Loader) Quiz(_ context.Context, quizID string) (quiz.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	q, ok := l.quizzes[quizID]
	if !ok {
		return quiz.Quiz{}, apperr.NotFound("catalog.quiz", "quiz not found: %s", quizID)
	}
	return q, nil
}

// ActiveEnrollment returns the enrollment listed for the learner and course.
func (l *Loader) ActiveEnrollment(_ context.Context, learnerID, courseID string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.enrollments[[2]string{learnerID, courseID}]
	if !ok {
		return "", apperr.Unauthorized("catalog.enrollment", "learner %s is not enrolled in course %s", learnerID, courseID)
	}
	return id, nil
}

// CourseIDs returns the loaded course ids in sorted order.
func (l *Loader) CourseIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.courses))
	for id := range l.courses {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
