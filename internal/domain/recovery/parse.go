package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/forPelevin/subalign/internal/domain/align"
	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

// NoJSONFoundError means the response held no JSON value with index groups.
type NoJSONFoundError struct {
	Raw string
}

func (e *NoJSONFoundError) Error() string {
	return fmt.Sprintf("recovery: no index groups found in response %q", truncate(e.Raw, 120))
}

func (e *NoJSONFoundError) Unwrap() error { return faults.ErrParse }

// EmptyResultError means the JSON was found but listed no groups.
type EmptyResultError struct {
	Raw string
}

func (e *EmptyResultError) Error() string { return "recovery: response lists zero sentence groups" }

func (e *EmptyResultError) Unwrap() error { return faults.ErrParse }

// Group is one sentence as returned by the model.
type Group struct {
	Indices                []int  `json:"indices"`
	TextLiteralTranslation string `json:"textLiteralTranslation,omitempty"`
	TextInterpretation     string `json:"textInterpretation,omitempty"`
}

const maxSearchDepth = 4

// ExtractGroups finds the first well-formed JSON value in raw that carries
// an array of {"indices": [...]} objects. Prose and code fences around the
// JSON are ignored. A group array whose members lack integer indices is an
// InvalidPartitionError, not a missing result.
func ExtractGroups(raw string) ([]Group, error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' && raw[i] != '[' {
			continue
		}
		var v json.RawMessage
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&v); err != nil {
			continue
		}
		groups, ok, err := findGroups(v, 0)
		if err != nil {
			var pe *InvalidPartitionError
			if errors.As(err, &pe) {
				pe.Raw = raw
			}
			return nil, err
		}
		if ok {
			if len(groups) == 0 {
				return nil, &EmptyResultError{Raw: raw}
			}
			return groups, nil
		}
	}
	return nil, &NoJSONFoundError{Raw: raw}
}

// findGroups accepts either a group array or an object holding one. An
// empty array under "sentences" counts as found.
func findGroups(v json.RawMessage, depth int) ([]Group, bool, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || depth > maxSearchDepth {
		return nil, false, nil
	}
	switch v[0] {
	case '[':
		return decodeGroupArray(v, false)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err != nil {
			return nil, false, nil
		}
		if s, ok := obj["sentences"]; ok {
			if isEmptyArray(s) {
				return []Group{}, true, nil
			}
			if groups, ok, err := decodeGroupArray(s, true); ok || err != nil {
				return groups, ok, err
			}
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if groups, ok, err := findGroups(obj[k], depth+1); ok || err != nil {
				return groups, ok, err
			}
		}
	}
	return nil, false, nil
}

// decodeGroupArray reads an array of objects as groups. The array counts as
// a group array when it sits under "sentences" or any member has an
// "indices" key; from then on every member must carry integer indices.
func decodeGroupArray(v json.RawMessage, named bool) ([]Group, bool, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil || len(items) == 0 {
		return nil, false, nil
	}
	if !named && !slices.ContainsFunc(items, func(it map[string]json.RawMessage) bool {
		_, ok := it["indices"]
		return ok
	}) {
		return nil, false, nil
	}
	groups := make([]Group, len(items))
	for i, it := range items {
		idx, ok := it["indices"]
		if !ok || bytes.Equal(bytes.TrimSpace(idx), []byte("null")) {
			return nil, false, malformedGroup(i)
		}
		b, _ := json.Marshal(it)
		if err := json.Unmarshal(b, &groups[i]); err != nil {
			return nil, false, malformedGroup(i)
		}
	}
	return groups, true, nil
}

func malformedGroup(i int) error {
	return &InvalidPartitionError{Reason: "indices missing or not integers", Group: i, Index: -1}
}

func isEmptyArray(v json.RawMessage) bool {
	return bytes.Equal(bytes.Join(bytes.Fields(v), nil), []byte("[]"))
}

// ParseResult turns a model response into timed sentences. It is
// all-or-nothing: any structural problem yields an error and no sentences.
// When candidates are given the response must hold one group per
// candidate and the candidate text is used; otherwise text is rebuilt from
// the words.
func ParseResult(raw string, words []types.TimedWord, candidates []string) ([]types.SubtitleSentence, error) {
	if len(words) == 0 {
		return nil, align.ErrNoWords
	}
	groups, err := ExtractGroups(raw)
	if err != nil {
		return nil, err
	}
	indices := make([][]int, len(groups))
	for i, g := range groups {
		indices[i] = g.Indices
	}
	if err := ValidatePartition(indices, len(words)); err != nil {
		var pe *InvalidPartitionError
		if errors.As(err, &pe) {
			pe.Raw = raw
		}
		return nil, err
	}
	if len(candidates) > 0 && len(groups) != len(candidates) {
		return nil, &InvalidPartitionError{
			Reason: fmt.Sprintf("got %d groups for %d sentences", len(groups), len(candidates)),
			Group:  -1,
			Index:  -1,
			Raw:    raw,
		}
	}

	out := make([]types.SubtitleSentence, 0, len(groups))
	prevStart := 0.0
	for i, g := range groups {
		from, to := g.Indices[0], g.Indices[len(g.Indices)-1]+1
		start, end := align.Timing(words, from, to)
		if start < prevStart {
			start = prevStart
			end = max(end, start+align.MinDuration)
		}
		prevStart = start
		text := strings.TrimSpace(types.RawText(words[from:to]))
		if len(candidates) > 0 {
			text = strings.TrimSpace(candidates[i])
		}
		out = append(out, types.SubtitleSentence{
			Text:                   text,
			Start:                  start,
			End:                    end,
			TextLiteralTranslation: g.TextLiteralTranslation,
			TextInterpretation:     g.TextInterpretation,
			Span:                   &types.WordSpan{From: from, To: to},
		})
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
