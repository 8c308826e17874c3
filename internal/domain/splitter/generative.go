package splitter

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/ports"
)

// DefaultDelimiter joins sentences in the generator's single-line answer.
const DefaultDelimiter = "||"

// EmptyGenerationError is returned when the generator answered with nothing
// that parses into at least one sentence. Raw holds the answer verbatim.
type EmptyGenerationError struct {
	Raw string
}

func (e *EmptyGenerationError) Error() string {
	if strings.TrimSpace(e.Raw) == "" {
		return "generative split: empty response"
	}
	return fmt.Sprintf("generative split: no sentences in response %q", truncate(e.Raw, 120))
}

func (e *EmptyGenerationError) Unwrap() error { return faults.ErrGeneration }

// Generative asks a text generator to split raw text into short sentences.
// It performs exactly one request per call; retries belong to the caller.
type Generative struct {
	gen       ports.TextGenerator
	delimiter string
}

type GenerativeOption func(*Generative)

func WithDelimiter(d string) GenerativeOption {
	return func(g *Generative) {
		if strings.TrimSpace(d) != "" {
			g.delimiter = d
		}
	}
}

func NewGenerative(gen ports.TextGenerator, opts ...GenerativeOption) *Generative {
	g := &Generative{gen: gen, delimiter: DefaultDelimiter}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generative) Split(ctx context.Context, rawText string) ([]string, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, faults.Precondition("generative split", "raw text is empty")
	}
	if g.gen == nil {
		return nil, faults.Precondition("generative split", "no text generator configured")
	}
	raw, err := g.gen.GenerateText(ctx, SystemPrompt(g.delimiter), rawText)
	if err != nil {
		return nil, faults.Wrap(faults.ErrGeneration, "generative split", "", err)
	}
	out := ParseGenerated(raw, g.delimiter)
	if len(out) == 0 {
		return nil, &EmptyGenerationError{Raw: raw}
	}
	return out, nil
}

// SystemPrompt is the fixed instruction sent with every split request.
func SystemPrompt(delimiter string) string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return strings.TrimSpace(fmt.Sprintf(`
You split transcript text into subtitle sentences.

Rules:
1. Every output sentence MUST be between 20 and 35 characters long. This is absolute, even if it breaks a semantic unit.
2. Any run longer than 35 characters MUST be split at a word boundary near the 30th character.
3. A single word sentence is allowed only for greetings and interjections ("Hi,", "Wow!", "Okay.").
4. Preserve the content exactly: concatenating your sentences must reproduce the input verbatim. Do not add, drop, translate, correct or reorder anything, including punctuation.
5. Output a single line: the sentences joined with %q. No numbering, no quotes, no commentary, no markdown.
`, delimiter))
}

// ParseGenerated splits a generator answer on the delimiter. Pieces are
// trimmed and empty pieces are dropped. Code fences and line breaks the
// model sometimes adds are tolerated.
func ParseGenerated(raw, delimiter string) []string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	text := stripCodeFence(raw)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, piece := range strings.Split(line, delimiter) {
			piece = strings.TrimSpace(piece)
			if piece != "" {
				out = append(out, piece)
			}
		}
	}
	return out
}

// PreservesContent reports whether sentences reproduce rawText once
// whitespace is ignored. The generator is asked to keep content verbatim
// but nothing enforces it.
func PreservesContent(rawText string, sentences []string) bool {
	return stripSpace(rawText) == stripSpace(strings.Join(sentences, ""))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if i := strings.Index(t, "\n"); i >= 0 {
		t = t[i+1:]
	} else {
		t = strings.TrimPrefix(t, "```")
	}
	if j := strings.LastIndex(t, "```"); j >= 0 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
