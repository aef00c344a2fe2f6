package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/soaringjerry/Quizbank/internal/docstore"
	"github.com/soaringjerry/Quizbank/internal/services"
)

// ImportPoolIfMissing seeds the question document from a local JSON file the
// first time the server starts against an empty backend. An existing
// document is never touched.
func ImportPoolIfMissing(ctx context.Context, store services.DocumentStore, docPath, file string, logger *slog.Logger) error {
	if file == "" {
		return errors.New("import file is required")
	}
	if _, err := store.Read(ctx, docPath); err == nil {
		return nil // already seeded
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("check %s: %w", docPath, err)
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("import file not found, starting with an empty pool", "file", file)
			return nil
		}
		return fmt.Errorf("read import file: %w", err)
	}
	pool := services.NewPool()
	if err := json.Unmarshal(raw, pool); err != nil {
		return fmt.Errorf("decode import file %s: %w", file, err)
	}
	count := 0
	for _, subject := range pool.Subjects() {
		qs, _ := pool.Questions(subject)
		for _, q := range qs {
			if err := q.Validate(); err != nil {
				return fmt.Errorf("import %s: subject %s: %w", file, subject, err)
			}
		}
		count += len(qs)
	}

	logger.Info("first run detected, importing question pool", "file", file, "subjects", pool.Len(), "questions", count)
	content, err := docstore.Encode(pool)
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	msg := fmt.Sprintf("feat: import %d questions from %s", count, file)
	if _, err := store.Write(ctx, docPath, content, "", msg); err != nil {
		if errors.Is(err, docstore.ErrConflict) {
			// Another instance seeded it first.
			return nil
		}
		return fmt.Errorf("write %s: %w", docPath, err)
	}
	logger.Info("question pool imported", "path", docPath)
	return nil
}
