// Package recovery realigns sentences by asking a text generator to group
// word indices, and validates the grouping it sends back.
package recovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/ports"
	"github.com/forPelevin/subalign/internal/types"
)

// Prompt is the instruction pair sent to the generator. User alone is what
// a human pastes into a chat UI when recovering by hand.
type Prompt struct {
	System string
	User   string
}

const systemPrompt = `You align subtitle sentences to timed speech words.

You get a numbered list of words with their times and a numbered list of sentences.
Assign every word to exactly one sentence, in order.

Rules:
- Return one group per sentence, in the same order as the sentences.
- Each group lists the indices of the words that make up that sentence.
- Every word index from 0 to the last one must appear exactly once.
- Indices must be ascending inside a group and across groups. No gaps.
- Punctuation-only words belong to the sentence they follow.

Return ONLY JSON in this shape:
{"sentences":[{"indices":[0,1,2]},{"indices":[3,4]}]}`

// BuildPrompt lists every word as "[i] (start-end) word" followed by the
// numbered candidate sentences.
func BuildPrompt(words []types.TimedWord, candidates []string) (Prompt, error) {
	if len(words) == 0 {
		return Prompt{}, faults.Precondition("recovery prompt", "no timed words")
	}
	if len(candidates) == 0 {
		return Prompt{}, faults.Precondition("recovery prompt", "no candidate sentences")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Words (%d):\n", len(words))
	for i, w := range words {
		fmt.Fprintf(&b, "[%d] (%.2f-%.2f) %s\n", i, w.Start, w.End, strings.TrimSpace(w.Word))
	}
	fmt.Fprintf(&b, "\nSentences (%d):\n", len(candidates))
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(c))
	}
	b.WriteString("\nReturn the JSON now.")
	return Prompt{System: systemPrompt, User: b.String()}, nil
}

// Recoverer submits the prompt to a generator once and parses the answer.
type Recoverer struct {
	gen ports.TextGenerator
}

func NewRecoverer(gen ports.TextGenerator) *Recoverer {
	return &Recoverer{gen: gen}
}

// Recover returns the raw response alongside the result so a failed parse
// can be handed to a human for editing.
func (r *Recoverer) Recover(ctx context.Context, words []types.TimedWord, candidates []string) ([]types.SubtitleSentence, string, error) {
	p, err := BuildPrompt(words, candidates)
	if err != nil {
		return nil, "", err
	}
	if r.gen == nil {
		return nil, "", faults.Precondition("recovery", "no text generator configured")
	}
	raw, err := r.gen.GenerateText(ctx, p.System, p.User)
	if err != nil {
		return nil, "", faults.Wrap(faults.ErrGeneration, "recovery", "", err)
	}
	out, err := ParseResult(raw, words, candidates)
	return out, raw, err
}
