package storeapi

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

// Modules fetches a course's module graph and rejects inconsistent graphs.
func (c *Client) Modules(ctx context.Context, courseID string) ([]course.Module, error) {
	const op = "storeapi.modules"

	var modules []course.Module
	if _, err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/courses/" + url.PathEscape(courseID) + "/modules",
		schema: modulesSchema,
		out:    &modules,
	}); err != nil {
		return nil, err
	}
	for i := range modules {
		if modules[i].CourseID == "" {
			modules[i].CourseID = courseID
		}
	}
	if err := course.ValidateModules(courseID, modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// List returns the learner's records in the course, most recent first.
func (c *Client) List(ctx context.Context, learnerID, courseID string) ([]progress.Record, error) {
	var records []progress.Record
	if _, err := c.do(ctx, request{
		op:        "storeapi.progress",
		method:    http.MethodGet,
		path:      "/courses/" + url.PathEscape(courseID) + "/progress",
		learnerID: learnerID,
		schema:    recordsSchema,
		out:       &records,
	}); err != nil {
		return nil, err
	}
	if records == nil {
		records = []progress.Record{}
	}
	for i := range records {
		records[i] = withIdentity(records[i], learnerID, courseID)
	}
	slices.SortStableFunc(records, func(a, b progress.Record) int {
		return b.LastAccessedAt.Compare(a.LastAccessedAt)
	})
	return records, nil
}

// Get returns the learner's record for one lesson, or nil.
func (c *Client) Get(ctx context.Context, key progress.Key) (*progress.Record, error) {
	records, err := c.List(ctx, key.LearnerID, key.CourseID)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.LessonID == key.LessonID {
			return &r, nil
		}
	}
	return nil, nil
}

// LastAccessed returns the learner's last accessed lesson, or nil.
func (c *Client) LastAccessed(ctx context.Context, learnerID, courseID string) (*course.LastAccessed, error) {
	var last *course.LastAccessed
	if _, err := c.do(ctx, request{
		op:        "storeapi.last_lesson",
		method:    http.MethodGet,
		path:      "/courses/" + url.PathEscape(courseID) + "/last-lesson",
		learnerID: learnerID,
		schema:    lastLessonSchema,
		out:       &last,
	}); err != nil {
		return nil, err
	}
	return last, nil
}

type progressWrite struct {
	LessonID             string          `json:"lessonId"`
	CourseID             string          `json:"courseId"`
	EnrollmentID         string          `json:"enrollmentId"`
	IsCompleted          bool            `json:"isCompleted"`
	CompletionPercentage int             `json:"completionPercentage"`
	Status               progress.Status `json:"status"`
	LastAccessedAt       time.Time       `json:"lastAccessedAt"`
	Notes                string          `json:"notes,omitempty"`
}

// Put writes a record. The external store resolves concurrent writes; a
// non-zero expectedVersion is sent as If-Match and a 409 or 412 reply is a
// conflict error.
func (c *Client) Put(ctx context.Context, rec progress.Record, expectedVersion int64) (progress.Record, error) {
	const op = "storeapi.put_progress"
	if rec.EnrollmentID == "" {
		return progress.Record{}, apperr.Unauthorized(op, "progress write without enrollment")
	}

	r := request{
		op:        op,
		method:    http.MethodPut,
		path:      "/progress",
		learnerID: rec.LearnerID,
		body: progressWrite{
			LessonID:             rec.LessonID,
			CourseID:             rec.CourseID,
			EnrollmentID:         rec.EnrollmentID,
			IsCompleted:          rec.IsCompleted,
			CompletionPercentage: rec.CompletionPercentage,
			Status:               rec.Status,
			LastAccessedAt:       rec.LastAccessedAt,
			Notes:                rec.Notes,
		},
		schema: recordSchema,
	}
	if expectedVersion != 0 {
		r.ifMatch = strconv.Quote(strconv.FormatInt(expectedVersion, 10))
	}

	var saved progress.Record
	r.out = &saved
	ok, err := c.do(ctx, r)
	if err != nil {
		return progress.Record{}, err
	}
	if !ok {
		return rec, nil
	}
	return withIdentity(saved, rec.LearnerID, rec.CourseID), nil
}

func withIdentity(r progress.Record, learnerID, courseID string) progress.Record {
	if r.LearnerID == "" {
		r.LearnerID = learnerID
	}
	if r.CourseID == "" {
		r.CourseID = courseID
	}
	r.IsCompleted = r.Status == progress.StatusCompleted
	return r
}

type enrollment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ActiveEnrollment returns the learner's enrollment when it is active.
func (c *Client) ActiveEnrollment(ctx context.Context, learnerID, courseID string) (string, error) {
	const op = "storeapi.enrollment"

	var e enrollment
	_, err := c.do(ctx, request{
		op:        op,
		method:    http.MethodGet,
		path:      "/courses/" + url.PathEscape(courseID) + "/enrollment",
		learnerID: learnerID,
		schema:    enrollmentSchema,
		out:       &e,
	})
	if apperr.Is(err, apperr.KindNotFound) || (err == nil && e.Status != "active") {
		return "", apperr.Unauthorized(op, "learner %s is not enrolled in course %s", learnerID, courseID)
	}
	if err != nil {
		return "", err
	}
	return e.ID, nil
}
