package services

import (
	"math/rand/v2"
	"slices"
)

const (
	// ExamSize is the number of questions in every generated exam.
	ExamSize = 30
	// ExamDuration is the exam length in minutes.
	ExamDuration = 30
)

// Exam is a generated, shuffled selection of one subject's questions.
type Exam struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Duration       int         `json:"duration"`
	TotalQuestions int         `json:"totalQuestions"`
	Questions      []*Question `json:"questions"`
}

// GenerateExam builds an exam of exactly ExamSize questions for subjectID.
// A subject with fewer questions is repeated; the pool itself is never
// modified.
func GenerateExam(subjectID string, pool *Pool, rng *rand.Rand) (*Exam, error) {
	var source []*Question
	if pool != nil {
		source, _ = pool.Questions(subjectID)
	}
	if len(source) == 0 {
		return nil, NewNotFoundError("exam.not_found", subjectID)
	}

	order := append([]*Question(nil), source...)
	shuffle(rng, order)
	selected := make([]*Question, 0, ExamSize+len(order))
	for len(selected) < ExamSize {
		selected = append(selected, order...)
	}
	selected = selected[:ExamSize]

	questions := make([]*Question, len(selected))
	for i, q := range selected {
		questions[i] = shuffleQuestion(q, rng)
	}
	return &Exam{
		ID:             subjectID,
		Title:          "Exam simulation " + subjectID,
		Duration:       ExamDuration,
		TotalQuestions: ExamSize,
		Questions:      questions,
	}, nil
}

// shuffleQuestion returns a copy of q with its internal order shuffled and
// its answer indices moved along with their options.
func shuffleQuestion(q *Question, rng *rand.Rand) *Question {
	out := q.Clone()
	switch q.Type {
	case TypeMultipleChoice:
		opts, ok := q.OptionTexts()
		correct, hasIdx := q.CorrectIndex()
		if !ok || !hasIdx {
			return out
		}
		perm := permutation(rng, len(opts))
		out.Options = mustMarshal(permute(opts, perm))
		out.CorrectAnswer = mustMarshal(newIndex(perm, correct))
	case TypeMultipleChoiceComplex:
		opts, ok := q.OptionTexts()
		correct, hasIdx := q.CorrectIndices()
		if !ok || !hasIdx {
			return out
		}
		perm := permutation(rng, len(opts))
		out.Options = mustMarshal(permute(opts, perm))
		moved := make([]int, len(correct))
		for i, c := range correct {
			moved[i] = newIndex(perm, c)
		}
		slices.Sort(moved)
		out.CorrectAnswers = mustMarshal(moved)
	case TypeMultipleTrueFalse:
		stmts, ok := q.StatementList()
		if !ok {
			return out
		}
		shuffle(rng, stmts)
		out.Statements = mustMarshal(stmts)
	}
	return out
}

// shuffle is an in-place Fisher–Yates shuffle.
func shuffle[T any](rng *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// permutation returns a shuffled [0, n): perm[newPos] = oldPos.
func permutation(rng *rand.Rand, n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	shuffle(rng, perm)
	return perm
}

func permute[T any](s []T, perm []int) []T {
	out := make([]T, len(perm))
	for newPos, oldPos := range perm {
		out[newPos] = s[oldPos]
	}
	return out
}

// newIndex finds where old moved to; -1 when old was not a valid index.
func newIndex(perm []int, old int) int {
	return slices.Index(perm, old)
}
