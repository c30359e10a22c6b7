package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-learn/internal/activity"
	"github.com/p-n-ai/pai-learn/internal/api"
	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/course"
	"github.com/p-n-ai/pai-learn/internal/platform/cache"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/platform/metrics"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
	"github.com/p-n-ai/pai-learn/internal/realtime"
	"github.com/p-n-ai/pai-learn/internal/review"
	"github.com/p-n-ai/pai-learn/internal/storeapi"
)

const readyTimeout = 2 * time.Second

// app holds the wired services and the connections they share.
type app struct {
	api     *api.Handler
	metrics *metrics.Metrics
	db      *database.DB
	cache   *cache.Cache
}

// backends are the stores selected by configuration.
type backends struct {
	content     course.Source
	quizzes     quiz.Source
	progress    progress.Store
	enrollments progress.Enrollments
	attempts    quiz.AttemptStore
	reviews     review.Store
	events      activity.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{metrics: metrics.New()}

	b, err := a.connect(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	hub := realtime.NewHub()
	tracker := progress.NewTracker(progress.TrackerConfig{
		Store:       b.progress,
		Enrollments: b.enrollments,
		Content:     course.NewCachedSource(b.content, a.cache, cfg.Content.CacheTTL),
		Events:      b.events,
		Publisher:   hub,
		Metrics:     a.metrics,
		WritePolicy: progress.WritePolicy(cfg.Progress.WritePolicy),
	})
	quizzes := quiz.NewService(quiz.ServiceConfig{
		Quizzes:     b.quizzes,
		Attempts:    b.attempts,
		Enrollments: b.enrollments,
		Progress:    tracker,
		Grader:      quiz.Grader{Matcher: quiz.MatcherFor(cfg.Grading.AnswerMatch)},
		Events:      b.events,
		Metrics:     a.metrics,
	})
	reviews := review.NewService(b.reviews, b.events, a.metrics)

	a.api = api.New(api.Config{
		Progress: tracker,
		Quizzes:  quizzes,
		Reviews:  reviews,
		Realtime: hub,
		Metrics:  a.metrics,
	})
	return a, nil
}

// connect opens the database, cache and external API as configured and
// picks the store for each concern.
func (a *app) connect(ctx context.Context, cfg *config.Config) (backends, error) {
	var b backends

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return b, fmt.Errorf("connecting cache: %w", err)
		}
		a.cache = c
	}

	var client *storeapi.Client
	if cfg.Store.APIBaseURL != "" {
		c, err := storeapi.New(cfg.Store.APIBaseURL, cfg.Store.APIToken, cfg.Store.APITimeout)
		if err != nil {
			return b, err
		}
		client = c
	}

	var loader *catalog.Loader
	switch cfg.Content.Source {
	case config.ContentAPI:
		b.content, b.quizzes = client, client
	default:
		l, err := catalog.NewLoader(cfg.Content.Path)
		if err != nil {
			return b, fmt.Errorf("loading catalog: %w", err)
		}
		loader = l
		b.content, b.quizzes = l, l
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return b, fmt.Errorf("connecting database: %w", err)
		}
		a.db = db
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				return b, fmt.Errorf("migrating database: %w", err)
			}
		}
		store, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			return b, err
		}
		attempts, err := quiz.NewPostgresAttempts(db.Pool)
		if err != nil {
			return b, err
		}
		reviews, err := review.NewPostgresStore(db.Pool)
		if err != nil {
			return b, err
		}
		b.progress, b.enrollments, b.attempts, b.reviews = store, store, attempts, reviews
		b.events = activity.NewPostgresLogger(db.Pool)

	case config.BackendAPI:
		b.progress, b.enrollments = client, client
		b.attempts, b.reviews = client.Attempts(), client.Reviews()
		b.events = activity.NopLogger{}

	default:
		b.progress = progress.NewMemoryStore()
		b.attempts = quiz.NewMemoryAttempts()
		b.reviews = review.NewMemoryStore()
		b.events = activity.NopLogger{}
		if loader != nil {
			b.enrollments = loader
		} else {
			b.enrollments = client
		}
	}
	return b, nil
}

// Ready checks the connections the app depends on.
func (a *app) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	if a.db != nil {
		if err := a.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
