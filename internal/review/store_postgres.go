package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-learn/internal/platform/apperr"
)

const dbTimeout = 5 * time.Second

const reviewColumns = `id::text, learner_id, course_id, rating, comment, would_recommend,
	difficulty, is_anonymous, language, status, created_at, updated_at`

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) ByLearner(ctx context.Context, learnerID, courseID string) (*Review, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	r, err := scanReview(s.pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE learner_id = $1 AND course_id = $2`,
		learnerID, courseID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transient("review.by_learner", fmt.Errorf("get review: %w", err))
	}
	return &r, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Review, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	r, err := scanReview(s.pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id::text = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, apperr.NotFound("review.get", "review %s not found", id)
	}
	if err != nil {
		return Review{}, apperr.Transient("review.get", fmt.Errorf("get review: %w", err))
	}
	return r, nil
}

func (s *PostgresStore) ListByCourse(ctx context.Context, courseID string) ([]Review, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE course_id = $1 ORDER BY updated_at DESC, id`,
		courseID,
	)
	if err != nil {
		return nil, apperr.Transient("review.list", fmt.Errorf("query reviews: %w", err))
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, apperr.Transient("review.list", fmt.Errorf("scan review: %w", err))
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("review.list", fmt.Errorf("iterate reviews: %w", err))
	}
	return reviews, nil
}

// Save upserts on (learner_id, course_id) so a concurrent resubmission from
// a second device updates the same row instead of adding one.
func (s *PostgresStore) Save(ctx context.Context, r Review) (Review, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	saved, err := scanReview(s.pool.QueryRow(ctx,
		`INSERT INTO reviews (id, learner_id, course_id, rating, comment, would_recommend,
		   difficulty, is_anonymous, language, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (learner_id, course_id) DO UPDATE SET
		   rating = EXCLUDED.rating,
		   comment = EXCLUDED.comment,
		   would_recommend = EXCLUDED.would_recommend,
		   difficulty = EXCLUDED.difficulty,
		   is_anonymous = EXCLUDED.is_anonymous,
		   language = EXCLUDED.language,
		   status = EXCLUDED.status,
		   updated_at = EXCLUDED.updated_at
		 RETURNING `+reviewColumns,
		r.ID, r.LearnerID, r.CourseID, r.Rating, r.Comment, r.WouldRecommend,
		r.Difficulty, r.IsAnonymous, r.Language, r.Status, r.CreatedAt, r.UpdatedAt,
	))
	if err != nil {
		return Review{}, apperr.Transient("review.save", fmt.Errorf("upsert review: %w", err))
	}
	return saved, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM reviews WHERE id::text = $1`, id)
	if err != nil {
		return apperr.Transient("review.delete", fmt.Errorf("delete review: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("review.delete", "review %s not found", id)
	}
	return nil
}

func scanReview(row pgx.Row) (Review, error) {
	var r Review
	err := row.Scan(
		&r.ID, &r.LearnerID, &r.CourseID, &r.Rating, &r.Comment, &r.WouldRecommend,
		&r.Difficulty, &r.IsAnonymous, &r.Language, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}
