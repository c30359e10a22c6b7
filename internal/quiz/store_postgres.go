package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

const dbTimeout = 5 * time.Second

// PostgresAttempts is a PostgreSQL-backed AttemptStore. The unique
// (learner_id, quiz_id, attempt_number) constraint backs the numbering rule.
type PostgresAttempts struct {
	pool *pgxpool.Pool
}

func NewPostgresAttempts(pool *pgxpool.Pool) (*PostgresAttempts, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresAttempts{pool: pool}, nil
}

func (s *PostgresAttempts) List(ctx context.Context, learnerID, quizID string) ([]Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, learner_id, quiz_id, lesson_id, course_id, COALESCE(module_id, ''),
		        attempt_number, score, max_score, percentage, is_passed, submitted_at,
		        answer_given, correct_answer
		 FROM quiz_attempts
		 WHERE learner_id = $1 AND quiz_id = $2
		 ORDER BY attempt_number`,
		learnerID, quizID,
	)
	if err != nil {
		return nil, apperr.Transient("quiz.list", fmt.Errorf("query attempts: %w", err))
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(
			&a.ID, &a.LearnerID, &a.QuizID, &a.LessonID, &a.CourseID, &a.ModuleID,
			&a.AttemptNumber, &a.Score, &a.MaxScore, &a.Percentage, &a.IsPassed, &a.SubmittedAt,
			&a.AnswerGiven, &a.CorrectAnswer,
		); err != nil {
			return nil, apperr.Transient("quiz.list", fmt.Errorf("scan attempt: %w", err))
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("quiz.list", fmt.Errorf("iterate attempts: %w", err))
	}
	return attempts, nil
}

// Append inserts a only when it is the next attempt in sequence. The INSERT
// ... SELECT counts prior attempts in the same statement, and the unique
// constraint catches two writers that counted concurrently.
func (s *PostgresAttempts) Append(ctx context.Context, a Attempt) error {
	const op = "quiz.append"
	if a.LearnerID == "" || a.QuizID == "" {
		return apperr.Input(op, "learner and quiz are required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (id, learner_id, quiz_id, lesson_id, course_id, module_id,
		   attempt_number, score, max_score, percentage, is_passed, answer_given, correct_answer, submitted_at)
		 SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::int, $8::int, $9::int,
		        $10::float8, $11::bool, $12::text, $13::text, $14::timestamptz
		 WHERE (SELECT COUNT(*) FROM quiz_attempts WHERE learner_id = $2::text AND quiz_id = $3::text) = $7::int - 1`,
		a.ID, a.LearnerID, a.QuizID, a.LessonID, a.CourseID, nullIfEmpty(a.ModuleID),
		a.AttemptNumber, a.Score, a.MaxScore, a.Percentage, a.IsPassed, a.AnswerGiven, a.CorrectAnswer, a.SubmittedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflict(op, "attempt %d already recorded for quiz %s", a.AttemptNumber, a.QuizID)
	}
	if err != nil {
		return apperr.Transient(op, fmt.Errorf("insert attempt: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict(op, "attempt %d out of sequence for quiz %s", a.AttemptNumber, a.QuizID)
	}
	return nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
