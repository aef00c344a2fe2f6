package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/soaringjerry/Quizbank/internal/docstore"
)

// DocumentStore is the revisioned backend the services persist to.
type DocumentStore interface {
	Read(ctx context.Context, path string) (*docstore.Document, error)
	Write(ctx context.Context, path string, content []byte, revision, message string) (string, error)
}

// QuestionService manages the question pool document. Every mutating call is
// one read, an in-memory change, and at most one revision-checked write.
type QuestionService struct {
	store   DocumentStore
	path    string
	log     *slog.Logger
	newRand func() *rand.Rand
}

// BulkAddResult reports which questions of a batch were stored.
type BulkAddResult struct {
	Added      int      `json:"added"`
	Skipped    int      `json:"skipped"`
	AddedIDs   []string `json:"addedQuestions"`
	SkippedIDs []string `json:"skippedQuestions"`
}

func NewQuestionService(store DocumentStore, path string, logger *slog.Logger) *QuestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionService{
		store:   store,
		path:    path,
		log:     logger,
		newRand: newSeededRand,
	}
}

// GetAll returns the whole pool; a missing document is an empty pool.
func (s *QuestionService) GetAll(ctx context.Context) (*Pool, error) {
	pool, _, err := s.load(ctx)
	return pool, err
}

// Subjects lists the subject ids in document order.
func (s *QuestionService) Subjects(ctx context.Context) ([]string, error) {
	pool, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Subjects(), nil
}

// GenerateExam fetches a fresh pool and builds an exam for subjectID.
func (s *QuestionService) GenerateExam(ctx context.Context, subjectID string) (*Exam, error) {
	pool, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return GenerateExam(subjectID, pool, s.newRand())
}

func (s *QuestionService) AddQuestion(ctx context.Context, q *Question) (*Question, error) {
	if !q.HasRequiredFields() {
		return nil, NewInvalidError("question.required_fields")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	pool, rev, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	existing, _ := pool.Questions(q.Subject)
	for _, cur := range existing {
		if cur.ID == q.ID {
			return nil, NewConflictError("question.exists", q.ID, q.Subject)
		}
	}
	next := append(append(make([]*Question, 0, len(existing)+1), existing...), q)
	pool.Set(q.Subject, next)
	if err := s.save(ctx, pool, rev, fmt.Sprintf("feat: add new question with id %s", q.ID)); err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateQuestion replaces the question keyed by questionID inside
// data.Subject. The stored id is always questionID, whatever data.ID says.
func (s *QuestionService) UpdateQuestion(ctx context.Context, questionID string, data *Question) (*Question, error) {
	if data == nil || strings.TrimSpace(data.Subject) == "" {
		return nil, NewInvalidError("question.subject_required")
	}
	updated := data.Clone()
	updated.ID = questionID
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	pool, rev, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	existing, ok := pool.Questions(updated.Subject)
	if !ok {
		return nil, NewNotFoundError("question.subject_not_found", updated.Subject)
	}
	idx := -1
	for i, cur := range existing {
		if cur.ID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, NewNotFoundError("question.not_found", questionID, updated.Subject)
	}
	next := append([]*Question(nil), existing...)
	next[idx] = updated
	pool.Set(updated.Subject, next)
	if err := s.save(ctx, pool, rev, fmt.Sprintf("fix: update question with id %s", questionID)); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteQuestion removes every question with questionID from subject. The
// subject key stays in the pool even when its list becomes empty.
func (s *QuestionService) DeleteQuestion(ctx context.Context, questionID, subject string) error {
	if strings.TrimSpace(subject) == "" {
		return NewInvalidError("question.delete_subject")
	}
	pool, rev, err := s.load(ctx)
	if err != nil {
		return err
	}
	existing, ok := pool.Questions(subject)
	if !ok {
		return NewNotFoundError("question.subject_not_found", subject)
	}
	kept := make([]*Question, 0, len(existing))
	for _, cur := range existing {
		if cur.ID != questionID {
			kept = append(kept, cur)
		}
	}
	if len(kept) == len(existing) {
		return NewNotFoundError("question.not_found", questionID, subject)
	}
	pool.Set(subject, kept)
	return s.save(ctx, pool, rev, fmt.Sprintf("refactor: delete question with id %s", questionID))
}

// BulkAdd validates the whole batch up front, then appends the questions
// whose id is new to subjectID and skips the rest. Nothing is written when no
// question is new.
func (s *QuestionService) BulkAdd(ctx context.Context, subjectID string, qs []*Question) (*BulkAddResult, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, NewInvalidError("bulk.subject_required")
	}
	if len(qs) == 0 {
		return nil, NewInvalidError("bulk.empty")
	}
	for _, q := range qs {
		if q == nil || q.Validate() != nil || q.Subject != subjectID {
			id := "(no id)"
			if q != nil && q.ID != "" {
				id = q.ID
			}
			se := newError(ErrorInvalid, "bulk.invalid", id)
			se.Detail = q
			return nil, se
		}
	}

	pool, rev, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	existing, _ := pool.Questions(subjectID)
	seen := make(map[string]struct{}, len(existing)+len(qs))
	for _, cur := range existing {
		seen[cur.ID] = struct{}{}
	}
	res := &BulkAddResult{AddedIDs: []string{}, SkippedIDs: []string{}}
	added := make([]*Question, 0, len(qs))
	for _, q := range qs {
		if _, dup := seen[q.ID]; dup {
			res.SkippedIDs = append(res.SkippedIDs, q.ID)
			continue
		}
		seen[q.ID] = struct{}{}
		added = append(added, q)
		res.AddedIDs = append(res.AddedIDs, q.ID)
	}
	res.Added, res.Skipped = len(res.AddedIDs), len(res.SkippedIDs)
	if len(added) == 0 {
		return res, nil
	}

	next := append(append(make([]*Question, 0, len(existing)+len(added)), existing...), added...)
	pool.Set(subjectID, next)
	if err := s.save(ctx, pool, rev, fmt.Sprintf("feat: bulk add %d questions to %s", len(added), subjectID)); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *QuestionService) load(ctx context.Context) (*Pool, string, error) {
	if s == nil || s.store == nil {
		return nil, "", NewUnavailableError()
	}
	doc, err := s.store.Read(ctx, s.path)
	if errors.Is(err, docstore.ErrNotFound) {
		return NewPool(), "", nil
	}
	if err != nil {
		s.log.Error("read question pool", "path", s.path, "error", err)
		return nil, "", storeError(err)
	}
	pool := NewPool()
	if len(strings.TrimSpace(string(doc.Content))) > 0 {
		if err := json.Unmarshal(doc.Content, pool); err != nil {
			s.log.Error("decode question pool", "path", s.path, "error", err)
			se := newError(ErrorBadGateway, "store.corrupt", s.path)
			se.Err = err
			return nil, "", se
		}
	}
	return pool, doc.Revision, nil
}

func (s *QuestionService) save(ctx context.Context, pool *Pool, rev, message string) error {
	content, err := docstore.Encode(pool)
	if err != nil {
		return fmt.Errorf("encode question pool: %w", err)
	}
	if _, err := s.store.Write(ctx, s.path, content, rev, message); err != nil {
		s.log.Warn("write question pool", "path", s.path, "revision", rev, "error", err)
		return storeError(err)
	}
	return nil
}
