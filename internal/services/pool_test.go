package services

import (
	"encoding/json"
	"regexp"
	"slices"
	"testing"
)

func TestPoolKeepsDocumentOrder(t *testing.T) {
	const doc = `{"z":[],"a":[{"id":"1","subject":"a","type":"true-false","question":"?","correctAnswer":false}],"m":[]}`
	var p Pool
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := p.Subjects(); !slices.Equal(got, []string{"z", "a", "m"}) {
		t.Fatalf("subjects = %v", got)
	}

	out, err := json.Marshal(&p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !regexp.MustCompile(`^\{"z":\[\],"a":\[\{"id":"1".*\],"m":\[\]\}$`).Match(out) {
		t.Fatalf("round trip changed document: %s", out)
	}
}

func TestPoolRepeatedKeyAndNullEntries(t *testing.T) {
	var p Pool
	if err := json.Unmarshal([]byte(`{"a":[null],"b":null,"a":[{"id":"x"}]}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := p.Subjects(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("subjects = %v", got)
	}
	qs, ok := p.Questions("a")
	if !ok || len(qs) != 1 || qs[0].ID != "x" {
		t.Fatalf("subject a = %+v (ok=%v)", qs, ok)
	}
	qs, ok = p.Questions("b")
	if !ok || len(qs) != 0 {
		t.Fatalf("subject b = %+v (ok=%v)", qs, ok)
	}
}

func TestPoolRejectsNonObject(t *testing.T) {
	var p Pool
	if err := json.Unmarshal([]byte(`[]`), &p); err == nil {
		t.Fatal("expected error for array document")
	}
	if err := json.Unmarshal([]byte(`{"a":{}}`), &p); err == nil {
		t.Fatal("expected error for object subject")
	}
	if err := json.Unmarshal([]byte(`null`), &p); err != nil {
		t.Fatalf("null document: %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("len = %d", p.Len())
	}
}

func TestQuestionRoundTripKeepsUnknownFields(t *testing.T) {
	in := `{"id":"q1","subject":"s","type":"multiple-choice","question":"2+2?","options":["3","4"],"correctAnswer":1,"explanation":"basic","image":null}`
	var q Question
	if err := json.Unmarshal([]byte(in), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.ID != "q1" {
		t.Fatalf("id = %q", q.ID)
	}
	if err := q.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if idx, ok := q.CorrectIndex(); !ok || idx != 1 {
		t.Fatalf("correct index = %d (ok=%v)", idx, ok)
	}

	out, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var gotMap, wantMap map[string]any
	_ = json.Unmarshal(out, &gotMap)
	_ = json.Unmarshal([]byte(in), &wantMap)
	if len(gotMap) != len(wantMap) || gotMap["explanation"] != "basic" {
		t.Fatalf("fields lost: %s", out)
	}
	if _, ok := gotMap["image"]; !ok {
		t.Fatalf("null field dropped: %s", out)
	}
	if !regexp.MustCompile(`^\{"id":"q1","subject":"s","type":"multiple-choice","question":"2\+2\?"`).Match(out) {
		t.Fatalf("base fields not first: %s", out)
	}
}

func TestQuestionValidateByType(t *testing.T) {
	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{"mc", `{"id":"1","subject":"s","type":"multiple-choice","question":"?","options":["a"],"correctAnswer":0}`, true},
		{"mc string answer", `{"id":"1","subject":"s","type":"multiple-choice","question":"?","options":["a"],"correctAnswer":"0"}`, false},
		{"mc no options", `{"id":"1","subject":"s","type":"multiple-choice","question":"?","correctAnswer":0}`, false},
		{"mc null option", `{"id":"1","subject":"s","type":"multiple-choice","question":"?","options":["x",null,"z"],"correctAnswer":0}`, false},
		{"tf", `{"id":"1","subject":"s","type":"true-false","question":"?","correctAnswer":true}`, true},
		{"tf number", `{"id":"1","subject":"s","type":"true-false","question":"?","correctAnswer":1}`, false},
		{"mcc", `{"id":"1","subject":"s","type":"multiple-choice-complex","question":"?","options":["a","b"],"correctAnswers":[0,1]}`, true},
		{"mcc scalar", `{"id":"1","subject":"s","type":"multiple-choice-complex","question":"?","options":["a","b"],"correctAnswers":1}`, false},
		{"mcc null index", `{"id":"1","subject":"s","type":"multiple-choice-complex","question":"?","options":["w","x","y","z"],"correctAnswers":[2,null]}`, false},
		{"mcc null option", `{"id":"1","subject":"s","type":"multiple-choice-complex","question":"?","options":["a",null],"correctAnswers":[0]}`, false},
		{"mtf", `{"id":"1","subject":"s","type":"multiple-true-false","question":"?","statements":[{"text":"x","answer":true}]}`, true},
		{"mtf missing", `{"id":"1","subject":"s","type":"multiple-true-false","question":"?"}`, false},
		{"unknown type", `{"id":"1","subject":"s","type":"essay","question":"?"}`, false},
		{"missing id", `{"subject":"s","type":"true-false","question":"?","correctAnswer":true}`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var q Question
			if err := json.Unmarshal([]byte(c.body), &q); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			err := q.Validate()
			if c.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !c.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestQuestionRejectsMistypedBaseField(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"id":5}`), &q); err == nil {
		t.Fatal("expected error for numeric id")
	}
}
