package storeapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/p-n-ai/pai-learn/internal/review"
)

// Reviews adapts the client to review.Store.
func (c *Client) Reviews() review.Store {
	return reviewStore{c}
}

type reviewStore struct{ c *Client }

type reviewWrite struct {
	ID             string  `json:"id,omitempty"`
	CourseID       string  `json:"courseId"`
	Rating         float64 `json:"rating"`
	Comment        string  `json:"comment"`
	WouldRecommend bool    `json:"wouldRecommend"`
	Difficulty     string  `json:"difficulty"`
	IsAnonymous    bool    `json:"isAnonymous"`
	Language       string  `json:"language"`
}

func (s reviewStore) ListByCourse(ctx context.Context, courseID string) ([]review.Review, error) {
	var reviews []review.Review
	if _, err := s.c.do(ctx, request{
		op:     "storeapi.list_reviews",
		method: http.MethodGet,
		path:   "/courses/" + url.PathEscape(courseID) + "/reviews",
		schema: reviewsSchema,
		out:    &reviews,
	}); err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return reviews, nil
}

func (s reviewStore) ByLearner(ctx context.Context, learnerID, courseID string) (*review.Review, error) {
	reviews, err := s.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		if r.LearnerID == learnerID {
			return &r, nil
		}
	}
	return nil, nil
}

func (s reviewStore) Get(ctx context.Context, id string) (review.Review, error) {
	var r review.Review
	_, err := s.c.do(ctx, request{
		op:     "storeapi.get_review",
		method: http.MethodGet,
		path:   "/reviews/" + url.PathEscape(id),
		schema: reviewSchema,
		out:    &r,
	})
	return r, err
}

// Save posts a new review and puts an existing one. A review is new when it
// has never been updated since creation.
func (s reviewStore) Save(ctx context.Context, r review.Review) (review.Review, error) {
	method := http.MethodPut
	if r.CreatedAt.Equal(r.UpdatedAt) {
		method = http.MethodPost
	}

	var saved review.Review
	ok, err := s.c.do(ctx, request{
		op:        "storeapi.save_review",
		method:    method,
		path:      "/reviews",
		learnerID: r.LearnerID,
		body: reviewWrite{
			ID:             r.ID,
			CourseID:       r.CourseID,
			Rating:         r.Rating,
			Comment:        r.Comment,
			WouldRecommend: r.WouldRecommend,
			Difficulty:     r.Difficulty,
			IsAnonymous:    r.IsAnonymous,
			Language:       r.Language,
		},
		schema: reviewSchema,
		out:    &saved,
	})
	if err != nil {
		return review.Review{}, err
	}
	if !ok {
		return r, nil
	}
	if saved.LearnerID == "" {
		saved.LearnerID = r.LearnerID
	}
	return saved, nil
}

func (s reviewStore) Delete(ctx context.Context, id string) error {
	_, err := s.c.do(ctx, request{
		op:     "storeapi.delete_review",
		method: http.MethodDelete,
		path:   "/reviews/" + url.PathEscape(id),
	})
	return err
}
