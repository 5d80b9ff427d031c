package usecase

import (
	"context"

	"ShadowNews/internal/config"
)

// JobRunners maps scheduler job names to their work.
func JobRunners(pipeline *Pipeline) map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		config.FetchArticlesJob: func(ctx context.Context) error {
			pipeline.FetchAndStoreArticles(ctx)
			return ctx.Err()
		},
	}
}
