package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

const dbTimeout = 5 * time.Second

const recordColumns = `learner_id, course_id, lesson_id, enrollment_id, completion_percentage,
	status, is_completed, last_accessed_at, COALESCE(notes, ''), version`

// PostgresStore is a PostgreSQL-backed Store and Enrollments implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+`
		 FROM lesson_progress
		 WHERE learner_id = $1 AND course_id = $2 AND lesson_id = $3`,
		key.LearnerID, key.CourseID, key.LessonID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transient("progress.get", fmt.Errorf("get progress: %w", err))
	}
	return &rec, nil
}

func (s *PostgresStore) List(ctx context.Context, learnerID, courseID string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM lesson_progress
		 WHERE learner_id = $1 AND course_id = $2
		 ORDER BY last_accessed_at DESC`,
		learnerID, courseID,
	)
	if err != nil {
		return nil, apperr.Transient("progress.list", fmt.Errorf("query progress: %w", err))
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Transient("progress.list", fmt.Errorf("scan progress: %w", err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("progress.list", fmt.Errorf("iterate progress: %w", err))
	}
	return records, nil
}

func (s *PostgresStore) LastAccessed(ctx context.Context, learnerID, courseID string) (*course.LastAccessed, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var last course.LastAccessed
	err := s.pool.QueryRow(ctx,
		`SELECT lesson_id, completion_percentage
		 FROM lesson_progress
		 WHERE learner_id = $1 AND course_id = $2
		 ORDER BY last_accessed_at DESC
		 LIMIT 1`,
		learnerID, courseID,
	).Scan(&last.LessonID, &last.CompletionPercentage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transient("progress.last_accessed", fmt.Errorf("query last lesson: %w", err))
	}
	return &last, nil
}

// Put upserts rec. The merge rules of Merge are applied in SQL so concurrent
// writers from several devices converge without regressing a record.
func (s *PostgresStore) Put(ctx context.Context, rec Record, expectedVersion int64) (Record, error) {
	if rec.LearnerID == "" || rec.CourseID == "" || rec.LessonID == "" {
		return Record{}, apperr.Input("progress.put", "learner, course and lesson are required")
	}
	rec = rec.normalized()

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	saved, err := scanRecord(s.pool.QueryRow(ctx,
		`INSERT INTO lesson_progress (learner_id, course_id, lesson_id, enrollment_id,
		   completion_percentage, status, is_completed, last_accessed_at, notes, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, NOW())
		 ON CONFLICT (learner_id, course_id, lesson_id) DO UPDATE SET
		   enrollment_id = COALESCE(NULLIF(EXCLUDED.enrollment_id, ''), lesson_progress.enrollment_id),
		   completion_percentage = GREATEST(lesson_progress.completion_percentage, EXCLUDED.completion_percentage),
		   status = CASE
		     WHEN lesson_progress.status = 'completed' OR EXCLUDED.status = 'completed' THEN 'completed'
		     WHEN lesson_progress.status = 'in_progress' OR EXCLUDED.status = 'in_progress' THEN 'in_progress'
		     ELSE 'not_started'
		   END,
		   is_completed = lesson_progress.is_completed OR EXCLUDED.is_completed,
		   last_accessed_at = GREATEST(lesson_progress.last_accessed_at, EXCLUDED.last_accessed_at),
		   notes = COALESCE(EXCLUDED.notes, lesson_progress.notes),
		   version = lesson_progress.version + 1,
		   updated_at = NOW()
		 WHERE $10::bigint = 0 OR lesson_progress.version = $10::bigint
		 RETURNING `+recordColumns,
		rec.LearnerID,
		rec.CourseID,
		rec.LessonID,
		rec.EnrollmentID,
		rec.CompletionPercentage,
		string(rec.Status),
		rec.IsCompleted,
		rec.LastAccessedAt,
		nullIfEmpty(rec.Notes),
		expectedVersion,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, apperr.Conflict("progress.put", "lesson %s was modified concurrently", rec.LessonID)
	}
	if err != nil {
		return Record{}, apperr.Transient("progress.put", fmt.Errorf("upsert progress: %w", err))
	}
	return saved, nil
}

// ActiveEnrollment returns the newest active enrollment of the learner.
func (s *PostgresStore) ActiveEnrollment(ctx context.Context, learnerID, courseID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id::text
		 FROM enrollments
		 WHERE learner_id = $1 AND course_id = $2 AND status = 'active'
		 ORDER BY created_at DESC
		 LIMIT 1`,
		learnerID, courseID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.Unauthorized("progress.enrollment", "learner %s is not enrolled in course %s", learnerID, courseID)
	}
	if err != nil {
		return "", apperr.Transient("progress.enrollment", fmt.Errorf("lookup enrollment: %w", err))
	}
	return id, nil
}

// Enroll creates an active enrollment. Used for seeding and tests; enrollment
// billing lives outside this service.
func (s *PostgresStore) Enroll(ctx context.Context, learnerID, courseID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO enrollments (learner_id, course_id)
		 VALUES ($1, $2)
		 RETURNING id::text`,
		learnerID, courseID,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create enrollment: %w", err)
	}
	return id, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	err := row.Scan(
		&rec.LearnerID,
		&rec.CourseID,
		&rec.LessonID,
		&rec.EnrollmentID,
		&rec.CompletionPercentage,
		&status,
		&rec.IsCompleted,
		&rec.LastAccessedAt,
		&rec.Notes,
		&rec.Version,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
