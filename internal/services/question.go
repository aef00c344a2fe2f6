package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	TypeMultipleChoice        = "multiple-choice"
	TypeTrueFalse             = "true-false"
	TypeMultipleChoiceComplex = "multiple-choice-complex"
	TypeMultipleTrueFalse     = "multiple-true-false"
)

// Question is one record of a subject's question list.
//
// The type-specific fields are kept as raw JSON: correctAnswer is a number for
// multiple-choice and a boolean for true-false, and statements are opaque.
// Fields the server does not know about survive in Extra.
type Question struct {
	ID             string
	Subject        string
	Type           string
	Question       string
	Options        json.RawMessage
	CorrectAnswer  json.RawMessage
	CorrectAnswers json.RawMessage
	Statements     json.RawMessage
	Extra          map[string]json.RawMessage
}

var knownQuestionFields = []string{"id", "subject", "type", "question", "options", "correctAnswer", "correctAnswers", "statements"}

func (q *Question) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Question
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"id", &out.ID},
		{"subject", &out.Subject},
		{"type", &out.Type},
		{"question", &out.Question},
	} {
		v, ok := raw[f.name]
		if !ok || isNull(v) {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return fmt.Errorf("question field %q: %w", f.name, err)
		}
	}
	out.Options = present(raw["options"])
	out.CorrectAnswer = present(raw["correctAnswer"])
	out.CorrectAnswers = present(raw["correctAnswers"])
	out.Statements = present(raw["statements"])
	for _, k := range knownQuestionFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		out.Extra = raw
	}
	*q = out
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, val []byte) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}
	for _, kv := range []struct {
		key string
		val string
	}{{"id", q.ID}, {"subject", q.Subject}, {"type", q.Type}, {"question", q.Question}} {
		b, _ := json.Marshal(kv.val)
		if err := write(kv.key, b); err != nil {
			return nil, err
		}
	}
	for _, kv := range []struct {
		key string
		val json.RawMessage
	}{{"options", q.Options}, {"correctAnswer", q.CorrectAnswer}, {"correctAnswers", q.CorrectAnswers}, {"statements", q.Statements}} {
		if len(kv.val) == 0 {
			continue
		}
		if err := write(kv.key, compact(kv.val)); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(q.Extra))
	for k := range q.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, compact(q.Extra[k])); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Clone returns a deep copy.
func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}
	out := *q
	out.Options = cloneRaw(q.Options)
	out.CorrectAnswer = cloneRaw(q.CorrectAnswer)
	out.CorrectAnswers = cloneRaw(q.CorrectAnswers)
	out.Statements = cloneRaw(q.Statements)
	if q.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(q.Extra))
		for k, v := range q.Extra {
			out.Extra[k] = cloneRaw(v)
		}
	}
	return &out
}

// HasRequiredFields reports whether id, subject, type and question are set.
func (q *Question) HasRequiredFields() bool {
	return q != nil &&
		strings.TrimSpace(q.ID) != "" &&
		strings.TrimSpace(q.Subject) != "" &&
		strings.TrimSpace(q.Type) != "" &&
		strings.TrimSpace(q.Question) != ""
}

// Validate checks the base fields and the rule for the declared type.
func (q *Question) Validate() error {
	if !q.HasRequiredFields() {
		return NewInvalidError("question.required_fields")
	}
	var ok bool
	switch q.Type {
	case TypeMultipleChoice:
		_, hasOpts := q.OptionTexts()
		_, hasIdx := q.CorrectIndex()
		ok = hasOpts && hasIdx
	case TypeTrueFalse:
		_, ok = q.CorrectBool()
	case TypeMultipleChoiceComplex:
		_, hasOpts := q.OptionTexts()
		_, hasIdx := q.CorrectIndices()
		ok = hasOpts && hasIdx
	case TypeMultipleTrueFalse:
		_, ok = q.StatementList()
	default:
		return NewInvalidError("question.invalid_type", q.ID, q.Type)
	}
	if !ok {
		return NewInvalidError("question.invalid_fields", q.ID, q.Type)
	}
	return nil
}

// OptionTexts decodes options as a list of strings. A null element makes the
// list invalid.
func (q *Question) OptionTexts() ([]string, bool) {
	if len(q.Options) == 0 {
		return nil, false
	}
	var raw []*string
	if err := json.Unmarshal(q.Options, &raw); err != nil || raw == nil {
		return nil, false
	}
	opts := make([]string, len(raw))
	for i, o := range raw {
		if o == nil {
			return nil, false
		}
		opts[i] = *o
	}
	return opts, true
}

// CorrectIndex decodes correctAnswer as an integer option index.
func (q *Question) CorrectIndex() (int, bool) {
	if len(q.CorrectAnswer) == 0 {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(q.CorrectAnswer, &n); err != nil {
		return 0, false
	}
	return n, true
}

// CorrectBool decodes correctAnswer as a boolean.
func (q *Question) CorrectBool() (bool, bool) {
	if len(q.CorrectAnswer) == 0 {
		return false, false
	}
	var v bool
	if err := json.Unmarshal(q.CorrectAnswer, &v); err != nil {
		return false, false
	}
	return v, true
}

// CorrectIndices decodes correctAnswers as a list of option indices. A null
// element makes the list invalid.
func (q *Question) CorrectIndices() ([]int, bool) {
	if len(q.CorrectAnswers) == 0 {
		return nil, false
	}
	var raw []*int
	if err := json.Unmarshal(q.CorrectAnswers, &raw); err != nil || raw == nil {
		return nil, false
	}
	idx := make([]int, len(raw))
	for i, n := range raw {
		if n == nil {
			return nil, false
		}
		idx[i] = *n
	}
	return idx, true
}

// StatementList splits statements into its opaque elements.
func (q *Question) StatementList() ([]json.RawMessage, bool) {
	if len(q.Statements) == 0 {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(q.Statements, &list); err != nil || list == nil {
		return nil, false
	}
	return list, true
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func present(v json.RawMessage) json.RawMessage {
	if len(v) == 0 || isNull(v) {
		return nil
	}
	return v
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	return append(json.RawMessage(nil), v...)
}

func compact(v json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return v
	}
	return buf.Bytes()
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
