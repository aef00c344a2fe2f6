package services

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/soaringjerry/Quizbank/internal/docstore"
)

const poolPath = "db/questions.json"

func newQuestionFixture(t *testing.T, seed string) (*QuestionService, *docstore.MemoryClient) {
	t.Helper()
	mem := docstore.NewMemoryClient()
	if seed != "" {
		if _, err := mem.Write(context.Background(), poolPath, []byte(seed), "", "seed"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return NewQuestionService(mem, poolPath, nil), mem
}

func readPool(t *testing.T, mem *docstore.MemoryClient) (*Pool, string) {
	t.Helper()
	doc, err := mem.Read(context.Background(), poolPath)
	if err != nil {
		t.Fatalf("read pool: %v", err)
	}
	p := NewPool()
	if err := json.Unmarshal(doc.Content, p); err != nil {
		t.Fatalf("decode pool: %v", err)
	}
	return p, doc.Revision
}

func wantCode(t *testing.T, err error, code ErrorCode) *ServiceError {
	t.Helper()
	se, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("expected ServiceError %s, got %v", code, err)
	}
	if se.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, se.Code, se.Message)
	}
	return se
}

func TestAddQuestionCreatesDocument(t *testing.T) {
	svc, mem := newQuestionFixture(t, "")
	ctx := context.Background()

	q, err := svc.AddQuestion(ctx, mcQuestion("math", "m1"))
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if q.ID != "m1" {
		t.Fatalf("unexpected question %+v", q)
	}
	if msg := mem.LastMessage(poolPath); msg != "feat: add new question with id m1" {
		t.Fatalf("unexpected commit message %q", msg)
	}
	p, _ := readPool(t, mem)
	qs, ok := p.Questions("math")
	if !ok || len(qs) != 1 || qs[0].ID != "m1" {
		t.Fatalf("question not stored: %+v", qs)
	}

	_, err = svc.AddQuestion(ctx, mcQuestion("math", "m1"))
	wantCode(t, err, ErrorConflict)
	if IsRevisionConflict(err) {
		t.Fatalf("duplicate id must not look like a revision conflict")
	}
}

func TestAddQuestionValidation(t *testing.T) {
	svc, mem := newQuestionFixture(t, "")
	ctx := context.Background()

	_, err := svc.AddQuestion(ctx, &Question{ID: "x", Subject: "s", Type: TypeTrueFalse})
	wantCode(t, err, ErrorInvalid)
	_, err = svc.AddQuestion(ctx, nil)
	wantCode(t, err, ErrorInvalid)
	_, err = svc.AddQuestion(ctx, &Question{ID: "x", Subject: "s", Type: "essay", Question: "?"})
	wantCode(t, err, ErrorInvalid)
	bad := mcQuestion("s", "x")
	bad.CorrectAnswer = json.RawMessage(`"b"`)
	_, err = svc.AddQuestion(ctx, bad)
	wantCode(t, err, ErrorInvalid)

	if _, err := mem.Read(ctx, poolPath); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("rejected input must not write, got %v", err)
	}
}

func TestAddQuestionPreservesSubjectOrder(t *testing.T) {
	svc, mem := newQuestionFixture(t, `{"zeta":[],"alpha":[]}`)
	if _, err := svc.AddQuestion(context.Background(), mcQuestion("beta", "b1")); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	p, _ := readPool(t, mem)
	got := p.Subjects()
	want := []string{"zeta", "alpha", "beta"}
	if len(got) != len(want) {
		t.Fatalf("subjects %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("subjects %v, want %v", got, want)
		}
	}
}

func TestUpdateQuestionPinsID(t *testing.T) {
	svc, mem := newQuestionFixture(t, "")
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := svc.AddQuestion(ctx, mcQuestion("math", id)); err != nil {
			t.Fatalf("AddQuestion: %v", err)
		}
	}

	body := mcQuestion("math", "something-else")
	body.Question = "rewritten"
	body.Extra = map[string]json.RawMessage{"explanation": json.RawMessage(`"because"`)}
	updated, err := svc.UpdateQuestion(ctx, "b", body)
	if err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	if updated.ID != "b" {
		t.Fatalf("id not pinned: %q", updated.ID)
	}
	if msg := mem.LastMessage(poolPath); msg != "fix: update question with id b" {
		t.Fatalf("unexpected commit message %q", msg)
	}
	p, _ := readPool(t, mem)
	qs, _ := p.Questions("math")
	if len(qs) != 3 || qs[1].ID != "b" || qs[1].Question != "rewritten" {
		t.Fatalf("update not applied in place: %+v", qs[1])
	}
	if string(qs[1].Extra["explanation"]) != `"because"` {
		t.Fatalf("extra field lost: %v", qs[1].Extra)
	}
}

func TestUpdateQuestionErrors(t *testing.T) {
	svc, _ := newQuestionFixture(t, `{"math":[{"id":"a","subject":"math","type":"true-false","question":"?","correctAnswer":true}]}`)
	ctx := context.Background()

	body := &Question{Subject: "math", Type: TypeTrueFalse, Question: "?", CorrectAnswer: json.RawMessage(`false`)}
	_, err := svc.UpdateQuestion(ctx, "missing", body)
	wantCode(t, err, ErrorNotFound)

	body.Subject = "physics"
	_, err = svc.UpdateQuestion(ctx, "a", body)
	wantCode(t, err, ErrorNotFound)

	body.Subject = ""
	_, err = svc.UpdateQuestion(ctx, "a", body)
	wantCode(t, err, ErrorInvalid)

	body.Subject = "math"
	body.CorrectAnswer = nil
	_, err = svc.UpdateQuestion(ctx, "a", body)
	wantCode(t, err, ErrorInvalid)
}

func TestDeleteLastQuestionKeepsSubject(t *testing.T) {
	svc, mem := newQuestionFixture(t, "")
	ctx := context.Background()
	if _, err := svc.AddQuestion(ctx, mcQuestion("math", "only")); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if err := svc.DeleteQuestion(ctx, "only", "math"); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	if msg := mem.LastMessage(poolPath); msg != "refactor: delete question with id only" {
		t.Fatalf("unexpected commit message %q", msg)
	}
	p, _ := readPool(t, mem)
	qs, ok := p.Questions("math")
	if !ok || len(qs) != 0 {
		t.Fatalf("subject key must remain with an empty list, got ok=%v %v", ok, qs)
	}
	doc, _ := mem.Read(ctx, poolPath)
	if string(doc.Content) != "{\n  \"math\": []\n}" {
		t.Fatalf("unexpected document %q", doc.Content)
	}
}

func TestDeleteQuestionErrors(t *testing.T) {
	svc, _ := newQuestionFixture(t, `{"math":[]}`)
	ctx := context.Background()
	wantCode(t, svc.DeleteQuestion(ctx, "a", ""), ErrorInvalid)
	wantCode(t, svc.DeleteQuestion(ctx, "a", "physics"), ErrorNotFound)
	wantCode(t, svc.DeleteQuestion(ctx, "a", "math"), ErrorNotFound)
}

func TestBulkAddPartitionsNewAndExisting(t *testing.T) {
	svc, mem := newQuestionFixture(t, "")
	ctx := context.Background()
	if _, err := svc.AddQuestion(ctx, mcQuestion("math", "old")); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}

	batch := []*Question{mcQuestion("math", "old"), mcQuestion("math", "n1"), mcQuestion("math", "n1"), mccQuestion("math", "n2")}
	res, err := svc.BulkAdd(ctx, "math", batch)
	if err != nil {
		t.Fatalf("BulkAdd: %v", err)
	}
	if res.Added+res.Skipped != len(batch) {
		t.Fatalf("counts do not cover the batch: %+v", res)
	}
	if res.Added != 2 || res.Skipped != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.SkippedIDs[0] != "old" || res.SkippedIDs[1] != "n1" {
		t.Fatalf("unexpected skipped ids %v", res.SkippedIDs)
	}
	if msg := mem.LastMessage(poolPath); msg != "feat: bulk add 2 questions to math" {
		t.Fatalf("unexpected commit message %q", msg)
	}
	p, _ := readPool(t, mem)
	qs, _ := p.Questions("math")
	stored := map[string]bool{}
	for _, q := range qs {
		stored[q.ID] = true
	}
	for _, id := range res.AddedIDs {
		if !stored[id] {
			t.Fatalf("accepted id %s not retrievable", id)
		}
	}
	if len(qs) != 3 {
		t.Fatalf("expected 3 stored questions, got %d", len(qs))
	}
}

func TestBulkAddAllSkippedDoesNotWrite(t *testing.T) {
	svc, mem := newQuestionFixture(t, "")
	ctx := context.Background()
	if _, err := svc.AddQuestion(ctx, mcQuestion("math", "a")); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	_, before := readPool(t, mem)
	res, err := svc.BulkAdd(ctx, "math", []*Question{mcQuestion("math", "a")})
	if err != nil {
		t.Fatalf("BulkAdd: %v", err)
	}
	if res.Added != 0 || res.Skipped != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, after := readPool(t, mem); after != before {
		t.Fatalf("no-op batch must not write")
	}
	if msg := mem.LastMessage(poolPath); msg != "feat: add new question with id a" {
		t.Fatalf("no-op batch must not write, last message %q", msg)
	}
}

func TestBulkAddRejectsWholeBatch(t *testing.T) {
	svc, mem := newQuestionFixture(t, `{"math":[]}`)
	ctx := context.Background()
	_, before := readPool(t, mem)

	invalid := mcQuestion("math", "bad")
	invalid.Options = nil
	cases := map[string][]*Question{
		"invalid":  {mcQuestion("math", "ok1"), invalid},
		"mismatch": {mcQuestion("math", "ok1"), mcQuestion("physics", "p1")},
		"nil":      {mcQuestion("math", "ok1"), nil},
	}
	for name, batch := range cases {
		_, err := svc.BulkAdd(ctx, "math", batch)
		se := wantCode(t, err, ErrorInvalid)
		if se.Key != "bulk.invalid" {
			t.Fatalf("%s: unexpected key %s", name, se.Key)
		}
	}
	_, err := svc.BulkAdd(ctx, "math", nil)
	wantCode(t, err, ErrorInvalid)
	_, err = svc.BulkAdd(ctx, "", []*Question{mcQuestion("math", "x")})
	wantCode(t, err, ErrorInvalid)

	if _, after := readPool(t, mem); after != before {
		t.Fatalf("store changed after rejected batch")
	}
}

func TestGetAllAndSubjects(t *testing.T) {
	svc, _ := newQuestionFixture(t, "")
	ctx := context.Background()
	p, err := svc.GetAll(ctx)
	if err != nil || p.Len() != 0 {
		t.Fatalf("missing document must read as empty pool: %v %v", p, err)
	}
	if _, err := svc.AddQuestion(ctx, mcQuestion("b", "1")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddQuestion(ctx, mcQuestion("a", "1")); err != nil {
		t.Fatal(err)
	}
	subjects, err := svc.Subjects(ctx)
	if err != nil || len(subjects) != 2 || subjects[0] != "b" || subjects[1] != "a" {
		t.Fatalf("unexpected subjects %v %v", subjects, err)
	}
}

func TestQuestionServiceGenerateExam(t *testing.T) {
	svc, _ := newQuestionFixture(t, "")
	svc.newRand = func() *rand.Rand { return rand.New(rand.NewPCG(5, 6)) }
	ctx := context.Background()
	if _, err := svc.AddQuestion(ctx, mcQuestion("math", "1")); err != nil {
		t.Fatal(err)
	}
	exam, err := svc.GenerateExam(ctx, "math")
	if err != nil || len(exam.Questions) != ExamSize {
		t.Fatalf("GenerateExam: %v %v", exam, err)
	}
	_, err = svc.GenerateExam(ctx, "physics")
	wantCode(t, err, ErrorNotFound)
}

// racingStore lets another writer commit between a read and the write that
// follows it.
type racingStore struct {
	*docstore.MemoryClient
	once sync.Once
}

func (s *racingStore) Write(ctx context.Context, path string, content []byte, revision, message string) (string, error) {
	s.once.Do(func() {
		_, _ = s.MemoryClient.Write(ctx, path, []byte(`{"other":[]}`), revision, "concurrent")
	})
	return s.MemoryClient.Write(ctx, path, content, revision, message)
}

func TestStaleRevisionSurfacesAsConflict(t *testing.T) {
	mem := docstore.NewMemoryClient()
	if _, err := mem.Write(context.Background(), poolPath, []byte(`{}`), "", "seed"); err != nil {
		t.Fatal(err)
	}
	svc := NewQuestionService(&racingStore{MemoryClient: mem}, poolPath, nil)
	_, err := svc.AddQuestion(context.Background(), mcQuestion("math", "1"))
	wantCode(t, err, ErrorConflict)
	if !IsRevisionConflict(err) {
		t.Fatalf("expected revision conflict, got %v", err)
	}
	if msg := mem.LastMessage(poolPath); msg != "concurrent" {
		t.Fatalf("the first writer must win, last message %q", msg)
	}
}

type failingStore struct{ err error }

func (s failingStore) Read(context.Context, string) (*docstore.Document, error) { return nil, s.err }
func (s failingStore) Write(context.Context, string, []byte, string, string) (string, error) {
	return "", s.err
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()

	svc := NewQuestionService(failingStore{err: docstore.NewTransportError("read", poolPath, errors.New("boom"))}, poolPath, nil)
	_, err := svc.GetAll(ctx)
	wantCode(t, err, ErrorBadGateway)

	_, err = NewQuestionService(nil, poolPath, nil).GetAll(ctx)
	wantCode(t, err, ErrorUnavailable)

	corrupt, _ := newQuestionFixture(t, `[1,2,3]`)
	_, err = corrupt.GetAll(ctx)
	se := wantCode(t, err, ErrorBadGateway)
	if se.Key != "store.corrupt" {
		t.Fatalf("unexpected key %s", se.Key)
	}
}

func TestNullOptionOrIndexIsNeverStored(t *testing.T) {
	svc, mem := newQuestionFixture(t, `{"math":[]}`)
	ctx := context.Background()
	_, before := readPool(t, mem)

	bodies := []string{
		`{"id":"n1","subject":"math","type":"multiple-choice-complex","question":"?","options":["w","x","y","z"],"correctAnswers":[2,null]}`,
		`{"id":"n2","subject":"math","type":"multiple-choice","question":"?","options":["x",null,"z"],"correctAnswer":0}`,
	}
	for _, body := range bodies {
		var q Question
		if err := json.Unmarshal([]byte(body), &q); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		_, err := svc.AddQuestion(ctx, &q)
		wantCode(t, err, ErrorInvalid)

		_, err = svc.BulkAdd(ctx, "math", []*Question{mcQuestion("math", "ok"), &q})
		se := wantCode(t, err, ErrorInvalid)
		if se.Key != "bulk.invalid" {
			t.Fatalf("unexpected key %s", se.Key)
		}
	}
	if _, after := readPool(t, mem); after != before {
		t.Fatalf("store changed after rejected input")
	}
}
