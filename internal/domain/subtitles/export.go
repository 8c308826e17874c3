package subtitles

import (
	"fmt"
	"io"
	"strings"

	"github.com/asticode/go-astisub"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatSSA  Format = "ssa"
	FormatTTML Format = "ttml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case FormatSRT, FormatVTT, FormatSSA, FormatTTML:
		return f, nil
	case "webvtt":
		return FormatVTT, nil
	case "ass":
		return FormatSSA, nil
	default:
		return "", faults.Precondition("export", "unsupported format %q (want srt, vtt, ssa or ttml)", s)
	}
}

// Ext is the file extension written for f, with the leading dot.
func (f Format) Ext() string { return "." + string(f) }

// ToAstisub converts the active sentences to an astisub document, one item
// per sentence.
func ToAstisub(sentences []types.SubtitleSentence) *astisub.Subtitles {
	subs := astisub.NewSubtitles()
	for i, s := range Active(sentences) {
		var lines []astisub.Line
		for _, l := range strings.Split(wrap(strings.Fields(s.Text)), "\\N") {
			lines = append(lines, astisub.Line{Items: []astisub.LineItem{{Text: l}}})
		}
		subs.Items = append(subs.Items, &astisub.Item{
			Index:   i + 1,
			StartAt: s.StartDuration(),
			EndAt:   s.EndDuration(),
			Lines:   lines,
		})
	}
	return subs
}

func Export(w io.Writer, sentences []types.SubtitleSentence, format Format) error {
	subs := ToAstisub(sentences)
	if len(subs.Items) == 0 {
		return faults.Precondition("export", "no active sentences")
	}
	var err error
	switch format {
	case FormatSRT:
		err = subs.WriteToSRT(w)
	case FormatVTT:
		err = subs.WriteToWebVTT(w)
	case FormatSSA:
		err = subs.WriteToSSA(w)
	case FormatTTML:
		err = subs.WriteToTTML(w)
	default:
		return faults.Precondition("export", "unsupported format %q", format)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}
