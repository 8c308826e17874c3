package subtitles

import (
	"slices"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

// Edits never modify the input slice; they return an updated copy.

func ToggleExcluded(sentences []types.SubtitleSentence, i int) ([]types.SubtitleSentence, error) {
	if err := checkIndex(sentences, i); err != nil {
		return nil, err
	}
	out := slices.Clone(sentences)
	out[i].Excluded = !out[i].Excluded
	return out, nil
}

func SetExcluded(sentences []types.SubtitleSentence, i int, excluded bool) ([]types.SubtitleSentence, error) {
	if err := checkIndex(sentences, i); err != nil {
		return nil, err
	}
	out := slices.Clone(sentences)
	out[i].Excluded = excluded
	return out, nil
}

// Delete removes the sentence at i. Its words are not reassigned.
func Delete(sentences []types.SubtitleSentence, i int) ([]types.SubtitleSentence, error) {
	if err := checkIndex(sentences, i); err != nil {
		return nil, err
	}
	return slices.Delete(slices.Clone(sentences), i, i+1), nil
}

// Active returns the sentences that are not excluded, in order.
func Active(sentences []types.SubtitleSentence) []types.SubtitleSentence {
	out := make([]types.SubtitleSentence, 0, len(sentences))
	for _, s := range sentences {
		if !s.Excluded {
			out = append(out, s)
		}
	}
	return out
}

// MuteIntervals lists the excluded sentences' time ranges, merged where
// they touch or overlap.
func MuteIntervals(sentences []types.SubtitleSentence) []types.Interval {
	var out []types.Interval
	for _, s := range sentences {
		if !s.Excluded || s.End <= s.Start {
			continue
		}
		iv := types.Interval{Start: s.StartDuration(), End: s.EndDuration()}
		if n := len(out); n > 0 && iv.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}

func checkIndex(sentences []types.SubtitleSentence, i int) error {
	if i < 0 || i >= len(sentences) {
		return faults.Precondition("edit sentence", "index %d out of range [0,%d)", i, len(sentences))
	}
	return nil
}
