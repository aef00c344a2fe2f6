package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/soaringjerry/Quizbank/internal/docstore"
	"github.com/soaringjerry/Quizbank/internal/services"
)

// documentStoreAdapter bounds every backend call so one hung remote request
// only delays its own HTTP request, and logs calls that come close to the
// limit.
type documentStoreAdapter struct {
	store   services.DocumentStore
	timeout time.Duration
	log     *slog.Logger
}

// NewDocumentStore wraps store with a per-call timeout. A nil store stays
// nil so the services keep reporting the backend as unconfigured.
func NewDocumentStore(store services.DocumentStore, timeout time.Duration, logger *slog.Logger) services.DocumentStore {
	if store == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &documentStoreAdapter{store: store, timeout: timeout, log: logger}
}

func (a *documentStoreAdapter) Read(ctx context.Context, path string) (*docstore.Document, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()
	start := time.Now()
	doc, err := a.store.Read(ctx, path)
	a.observe("read", path, start)
	return doc, err
}

func (a *documentStoreAdapter) Write(ctx context.Context, path string, content []byte, revision, message string) (string, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()
	start := time.Now()
	rev, err := a.store.Write(ctx, path, content, revision, message)
	a.observe("write", path, start)
	return rev, err
}

func (a *documentStoreAdapter) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *documentStoreAdapter) observe(op, path string, start time.Time) {
	elapsed := time.Since(start)
	if a.timeout > 0 && elapsed > a.timeout/2 {
		a.log.Warn("slow document store call", "op", op, "path", path, "duration", elapsed)
	}
}

var _ services.DocumentStore = (*documentStoreAdapter)(nil)
