package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Pool maps subject ids to their question lists. Subject order follows the
// stored document so that a read-modify-write leaves untouched keys in place.
type Pool struct {
	order    []string
	subjects map[string][]*Question
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{subjects: map[string][]*Question{}}
}

// Subjects lists subject ids in document order.
func (p *Pool) Subjects() []string {
	return append([]string{}, p.order...)
}

// Questions returns the list stored under subject.
func (p *Pool) Questions(subject string) ([]*Question, bool) {
	qs, ok := p.subjects[subject]
	return qs, ok
}

// Set replaces the list under subject, appending the key if it is new.
func (p *Pool) Set(subject string, qs []*Question) {
	if p.subjects == nil {
		p.subjects = map[string][]*Question{}
	}
	if _, ok := p.subjects[subject]; !ok {
		p.order = append(p.order, subject)
	}
	if qs == nil {
		qs = []*Question{}
	}
	p.subjects[subject] = qs
}

// Len is the number of subjects.
func (p *Pool) Len() int { return len(p.order) }

func (p *Pool) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, subject := range p.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(subject)
		if err != nil {
			return nil, err
		}
		qs := p.subjects[subject]
		if qs == nil {
			qs = []*Question{}
		}
		v, err := json.Marshal(qs)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", subject, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Pool) UnmarshalJSON(b []byte) error {
	out := NewPool()
	if isNull(b) {
		*p = *out
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("question pool must be a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		subject, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var qs []*Question
		if err := dec.Decode(&qs); err != nil {
			return fmt.Errorf("subject %s: %w", subject, err)
		}
		kept := qs[:0]
		for _, q := range qs {
			if q != nil {
				kept = append(kept, q)
			}
		}
		// A repeated key keeps its first position and its last value.
		out.Set(subject, kept)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = *out
	return nil
}
