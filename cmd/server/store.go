package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soaringjerry/Quizbank/internal/config"
	"github.com/soaringjerry/Quizbank/internal/docstore"
	"github.com/soaringjerry/Quizbank/internal/docstore/github"
	"github.com/soaringjerry/Quizbank/internal/docstore/redis"
	"github.com/soaringjerry/Quizbank/internal/services"
)

// openStore builds the configured backend. An empty backend returns a nil
// store; the routes then answer 503.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (services.DocumentStore, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "":
		logger.Warn("no document backend configured; data routes will answer 503")
		return nil, noop, nil
	case config.BackendMemory:
		logger.Warn("using the in-memory backend; data is lost on restart")
		return docstore.NewMemoryClient(), noop, nil
	case config.BackendGitHub:
		c, err := github.New(github.Options{
			Token:   cfg.GitHub.FullToken(),
			Owner:   cfg.GitHub.Owner,
			Repo:    cfg.GitHub.Repo,
			Branch:  cfg.GitHub.Branch,
			BaseURL: cfg.GitHub.BaseURL,
			Timeout: cfg.StoreTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("github backend: %w", err)
		}
		return c, noop, nil
	case config.BackendRedis:
		c := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, logger)
		pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			_ = c.Close()
			return nil, noop, fmt.Errorf("redis backend: %w", err)
		}
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
