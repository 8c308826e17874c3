// Package align assigns timing to candidate sentences by walking the timed
// word stream with a single forward cursor.
package align

import (
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/subalign/internal/domain/textnorm"
	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

// DefaultTolerance is how many runes the last token of a span may run past
// the end of its sentence.
const DefaultTolerance = 10

// Drop reasons reported in Result.Dropped.
const (
	ReasonBlank     = "blank"
	ReasonMismatch  = "mismatch"
	ReasonExhausted = "exhausted"
	ReasonOvershoot = "overshoot"
)

var (
	ErrNoWords     = faults.Wrap(faults.ErrPrecondition, "align", "no timed words", nil)
	ErrNoSentences = faults.Wrap(faults.ErrPrecondition, "align", "no candidate sentences", nil)
)

type Options struct {
	Tolerance int
}

// Result is the aligned output plus everything the pass had to give up on.
// Dropped candidates are not an error; callers that need completeness
// compare len(Sentences) with the number of candidates.
type Result struct {
	Sentences  []types.SubtitleSentence
	Dropped    []types.DroppedSentence
	Consumed   int
	Unconsumed int
}

func (r Result) Complete() bool { return len(r.Dropped) == 0 && r.Unconsumed == 0 }

// Align matches candidates to consecutive word spans in order. A candidate
// matches when the words from the cursor onward, reduced to their matching
// key, spell exactly the candidate's key, or overshoot it by at most the
// tolerance within the final word. Unmatched candidates are dropped and the
// cursor stays put, so the next candidate is tried at the same position.
// Punctuation-only words following a match are folded into it.
func Align(words []types.TimedWord, candidates []string, opts Options) (Result, error) {
	if len(words) == 0 {
		return Result{}, ErrNoWords
	}
	if len(candidates) == 0 {
		return Result{}, ErrNoSentences
	}
	tol := opts.Tolerance
	if tol < 0 {
		tol = 0
	}

	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = textnorm.Key(w.Word)
	}

	res := Result{Sentences: make([]types.SubtitleSentence, 0, len(candidates))}
	cursor := 0
	prevStart := 0.0
	for ci, cand := range candidates {
		to, reason := matchSpan(keys, cursor, textnorm.Key(cand), tol)
		if reason != "" {
			res.Dropped = append(res.Dropped, types.DroppedSentence{Index: ci, Text: cand, Reason: reason})
			continue
		}
		for to < len(words) && keys[to] == "" {
			to++
		}

		start, end := Timing(words, cursor, to)
		if start < prevStart {
			start = prevStart
			end = max(end, start+MinDuration)
		}
		prevStart = start

		res.Sentences = append(res.Sentences, types.SubtitleSentence{
			Text:  strings.TrimSpace(cand),
			Start: start,
			End:   end,
			Span:  &types.WordSpan{From: cursor, To: to},
		})
		cursor = to
	}
	res.Consumed = cursor
	res.Unconsumed = len(words) - cursor
	return res, nil
}

// MinDuration is the shortest time a sentence is shown, in seconds. It is
// one ASS centisecond so a padded cue never renders with zero length.
const MinDuration = 0.01

// Timing returns the start of the first and the end of the last word in
// [from, to). The end always lies at least MinDuration after the start.
func Timing(words []types.TimedWord, from, to int) (start, end float64) {
	start = words[from].Start
	end = words[to-1].End
	return start, max(end, start+MinDuration)
}

// matchSpan accumulates word keys from cursor until they cover want. It
// returns the exclusive end of the span, or a drop reason.
func matchSpan(keys []string, cursor int, want string, tol int) (int, string) {
	if want == "" {
		return 0, ReasonBlank
	}
	if cursor >= len(keys) {
		return 0, ReasonExhausted
	}
	var acc strings.Builder
	j := cursor
	for j < len(keys) && acc.Len() < len(want) {
		acc.WriteString(keys[j])
		j++
		got := acc.String()
		if !strings.HasPrefix(want, got) && !strings.HasPrefix(got, want) {
			return 0, ReasonMismatch
		}
	}
	got := acc.String()
	switch {
	case got == want:
		return j, ""
	case strings.HasPrefix(got, want):
		if utf8.RuneCountInString(got[len(want):]) > tol {
			return 0, ReasonOvershoot
		}
		return j, ""
	default:
		return 0, ReasonExhausted
	}
}
