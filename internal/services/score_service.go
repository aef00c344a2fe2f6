package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/soaringjerry/Quizbank/internal/docstore"
)

// DefaultLeaderboardSize is how many entries Leaderboard returns when the
// caller does not ask for a specific number.
const DefaultLeaderboardSize = 10

// ScoreRecord is one submitted exam result.
type ScoreRecord struct {
	ID        int64   `json:"id"`
	UserName  string  `json:"userName"`
	SubjectID string  `json:"subjectId"`
	Score     float64 `json:"score"`
	TimeSpent int     `json:"timeSpent"`
	CreatedAt string  `json:"createdAt"`
}

// ScoreInput is a submission before validation. Pointers distinguish an
// absent score from a zero score.
type ScoreInput struct {
	UserName  string   `json:"userName"`
	SubjectID string   `json:"subjectId"`
	Score     *float64 `json:"score"`
	TimeSpent *int     `json:"timeSpent"`
}

type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	UserName  string  `json:"userName"`
	Score     float64 `json:"score"`
	TimeSpent int     `json:"timeSpent"`
}

// ScoreService stores scores in a single append-only list document.
type ScoreService struct {
	store DocumentStore
	path  string
	log   *slog.Logger
	now   func() time.Time
}

func NewScoreService(store DocumentStore, path string, logger *slog.Logger) *ScoreService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreService{
		store: store,
		path:  path,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates in and appends it to the score list.
func (s *ScoreService) Submit(ctx context.Context, in ScoreInput) (*ScoreRecord, error) {
	if s == nil || s.store == nil {
		return nil, NewUnavailableError()
	}
	if strings.TrimSpace(in.UserName) == "" ||
		strings.TrimSpace(in.SubjectID) == "" ||
		in.Score == nil || in.TimeSpent == nil || *in.TimeSpent <= 0 {
		return nil, NewInvalidError("score.required_fields")
	}
	records, rev, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	rec := ScoreRecord{
		ID:        now.UnixMilli(),
		UserName:  in.UserName,
		SubjectID: in.SubjectID,
		Score:     *in.Score,
		TimeSpent: *in.TimeSpent,
		CreatedAt: now.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	records = append(records, rec)
	content, err := docstore.Encode(records)
	if err != nil {
		return nil, fmt.Errorf("encode scores: %w", err)
	}
	msg := fmt.Sprintf("feat: add score for %s", rec.UserName)
	if _, err := s.store.Write(ctx, s.path, content, rev, msg); err != nil {
		s.log.Warn("write scores", "path", s.path, "revision", rev, "error", err)
		return nil, storeError(err)
	}
	return &rec, nil
}

// List returns every stored record in insertion order.
func (s *ScoreService) List(ctx context.Context) ([]ScoreRecord, error) {
	records, _, err := s.load(ctx)
	return records, err
}

// Leaderboard ranks the best score of each user; topN <= 0 means
// DefaultLeaderboardSize.
func (s *ScoreService) Leaderboard(ctx context.Context, topN int) ([]LeaderboardEntry, error) {
	records, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = DefaultLeaderboardSize
	}
	return BuildLeaderboard(records, topN), nil
}

// BuildLeaderboard keeps one record per userName: the highest score, with
// the lower timeSpent breaking ties. Entries are ordered by score descending
// then timeSpent ascending and cut to topN.
func BuildLeaderboard(records []ScoreRecord, topN int) []LeaderboardEntry {
	best := make(map[string]ScoreRecord, len(records))
	names := make([]string, 0, len(records))
	for _, r := range records {
		cur, ok := best[r.UserName]
		if !ok {
			names = append(names, r.UserName)
			best[r.UserName] = r
			continue
		}
		if r.Score > cur.Score || (r.Score == cur.Score && r.TimeSpent < cur.TimeSpent) {
			best[r.UserName] = r
		}
	}
	entries := make([]LeaderboardEntry, 0, len(names))
	for _, name := range names {
		r := best[name]
		entries = append(entries, LeaderboardEntry{UserName: name, Score: r.Score, TimeSpent: r.TimeSpent})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].TimeSpent < entries[j].TimeSpent
	})
	if topN >= 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (s *ScoreService) load(ctx context.Context) ([]ScoreRecord, string, error) {
	if s == nil || s.store == nil {
		return nil, "", NewUnavailableError()
	}
	doc, err := s.store.Read(ctx, s.path)
	if errors.Is(err, docstore.ErrNotFound) {
		return []ScoreRecord{}, "", nil
	}
	if err != nil {
		s.log.Error("read scores", "path", s.path, "error", err)
		return nil, "", storeError(err)
	}
	records := []ScoreRecord{}
	if len(strings.TrimSpace(string(doc.Content))) > 0 {
		if err := json.Unmarshal(doc.Content, &records); err != nil {
			s.log.Error("decode scores", "path", s.path, "error", err)
			se := newError(ErrorBadGateway, "store.corrupt", s.path)
			se.Err = err
			return nil, "", se
		}
	}
	if records == nil {
		records = []ScoreRecord{}
	}
	return records, doc.Revision, nil
}
