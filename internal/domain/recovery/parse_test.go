package recovery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

var testWords = []types.TimedWord{
	{Word: "Hi,", Start: 0, End: 0.4},
	{Word: " Mike.", Start: 0.4, End: 0.9},
	{Word: " Well,", Start: 0.9, End: 1.3},
}

func TestParseResult(t *testing.T) {
	t.Parallel()

	raw := "Sure! Here is the alignment:\n```json\n" +
		`{"sentences":[{"indices":[0,1],"textLiteralTranslation":"Hola, Mike."},{"indices":[2]}]}` +
		"\n```\nLet me know if you need more."
	got, err := ParseResult(raw, testWords, []string{"Hi, Mike.", "Well,"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %+v", got)
	}
	if got[0].Text != "Hi, Mike." || got[0].Start != 0 || got[0].End != 0.9 || got[0].TextLiteralTranslation != "Hola, Mike." {
		t.Fatalf("first sentence: %+v", got[0])
	}
	if got[1].Text != "Well," || got[1].Start != 0.9 || got[1].End != 1.3 {
		t.Fatalf("second sentence: %+v", got[1])
	}
	if *got[1].Span != (types.WordSpan{From: 2, To: 3}) {
		t.Fatalf("second span: %+v", *got[1].Span)
	}
}

func TestParseResult_ShapesAndTextFromWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "top-level array", raw: `[{"indices":[0]},{"indices":[1,2]}]`},
		{name: "other key", raw: `{"groups":[{"indices":[0]},{"indices":[1,2]}]}`},
		{name: "nested", raw: `{"result":{"sentences":[{"indices":[0]},{"indices":[1,2]}]}}`},
		{name: "prose with brackets first", raw: `See [0] and {note}. {"sentences":[{"indices":[0]},{"indices":[1,2]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResult(tt.raw, testWords, nil)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(got) != 2 || got[0].Text != "Hi," || got[1].Text != "Mike. Well," {
				t.Fatalf("unexpected sentences: %+v", got)
			}
		})
	}
}

func TestParseResult_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		candidates []string
		check      func(error) bool
	}{
		{
			name:  "no json",
			raw:   "I could not do it, sorry.",
			check: func(err error) bool { var e *NoJSONFoundError; return errors.As(err, &e) },
		},
		{
			name:  "json without indices",
			raw:   `{"answer": [1, 2, 3]}`,
			check: func(err error) bool { var e *NoJSONFoundError; return errors.As(err, &e) },
		},
		{
			name:  "zero groups",
			raw:   `{"sentences": []}`,
			check: func(err error) bool { var e *EmptyResultError; return errors.As(err, &e) },
		},
		{
			name:  "missing index",
			raw:   `{"sentences":[{"indices":[0]},{"indices":[2]}]}`,
			check: func(err error) bool { var e *InvalidPartitionError; return errors.As(err, &e) && e.Raw != "" },
		},
		{
			name: "string indices",
			raw:  `{"sentences":[{"indices":["0","1"]},{"indices":["2"]}]}`,
			check: func(err error) bool {
				var e *InvalidPartitionError
				return errors.As(err, &e) && e.Group == 0 && e.Raw != ""
			},
		},
		{
			name: "group without indices key",
			raw:  `{"sentences":[{"indices":[0,1]},{"index":[2]}]}`,
			check: func(err error) bool {
				var e *InvalidPartitionError
				return errors.As(err, &e) && e.Group == 1 && strings.Contains(e.Error(), "indices missing")
			},
		},
		{
			name: "unnamed array with one malformed member",
			raw:  `[{"indices":[0]},{"indices":"1-2"}]`,
			check: func(err error) bool {
				var e *InvalidPartitionError
				return errors.As(err, &e) && e.Group == 1
			},
		},
		{
			name:       "group count differs from sentences",
			raw:        `{"sentences":[{"indices":[0,1,2]}]}`,
			candidates: []string{"Hi, Mike.", "Well,"},
			check:      func(err error) bool { var e *InvalidPartitionError; return errors.As(err, &e) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResult(tt.raw, testWords, tt.candidates)
			if err == nil {
				t.Fatalf("expected error, got %+v", got)
			}
			if got != nil {
				t.Fatalf("expected no partial result, got %+v", got)
			}
			if !tt.check(err) {
				t.Fatalf("unexpected error type: %T %v", err, err)
			}
			if !errors.Is(err, faults.ErrParse) {
				t.Fatalf("expected parse marker: %v", err)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	p, err := BuildPrompt(testWords, []string{"Hi, Mike.", "Well,"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, want := range []string{"[0] (0.00-0.40) Hi,", "[2] (0.90-1.30) Well,", "1. Hi, Mike.", "2. Well,"} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, p.User)
		}
	}
	if !strings.Contains(p.System, `"indices"`) {
		t.Fatalf("system prompt must describe the JSON shape")
	}

	if _, err := BuildPrompt(nil, []string{"x"}); !errors.Is(err, faults.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if _, err := BuildPrompt(testWords, nil); !errors.Is(err, faults.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

type fakeGenerator struct {
	out   string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateText(context.Context, string, string) (string, error) {
	f.calls++
	return f.out, f.err
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{out: `{"sentences":[{"indices":[0,1]},{"indices":[2]}]}`}
	got, raw, err := NewRecoverer(gen).Recover(context.Background(), testWords, []string{"Hi, Mike.", "Well,"})
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if len(got) != 2 || raw != gen.out || gen.calls != 1 {
		t.Fatalf("unexpected result: %+v raw=%q calls=%d", got, raw, gen.calls)
	}

	bad := &fakeGenerator{out: "nope"}
	_, raw, err = NewRecoverer(bad).Recover(context.Background(), testWords, []string{"Hi, Mike.", "Well,"})
	var nj *NoJSONFoundError
	if !errors.As(err, &nj) || raw != "nope" || bad.calls != 1 {
		t.Fatalf("expected single failed attempt with raw response, got err=%v raw=%q calls=%d", err, raw, bad.calls)
	}

	failing := &fakeGenerator{err: errors.New("timeout")}
	if _, _, err := NewRecoverer(failing).Recover(context.Background(), testWords, []string{"x"}); !faults.Retryable(err) {
		t.Fatalf("transport failure should be retryable: %v", err)
	}
}
