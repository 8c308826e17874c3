package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

// LineBudget is the widest a rendered line gets before wrapping.
const LineBudget = 42

type ASSOptions struct {
	// Karaoke emits a {\k} tag per word for sentences that carry a span.
	Karaoke bool
}

// RenderASS renders one Dialogue per active sentence on the source
// timeline. words must be the stream the sentence spans refer to.
func RenderASS(sentences []types.SubtitleSentence, words []types.TimedWord, opts ASSOptions) (string, error) {
	active := Active(sentences)
	if len(active) == 0 {
		return "", faults.Precondition("render ass", "no active sentences")
	}

	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, s := range active {
		var text string
		if ws := spanWords(s, words); opts.Karaoke && len(ws) > 0 {
			text = karaokeText(ws)
		} else {
			text = wrap(strings.Fields(sanitizeASS(s.Text)))
		}
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(s.StartDuration()))
		b.WriteString(",")
		b.WriteString(assTime(s.EndDuration()))
		b.WriteString(",Default,,0,0,0,,")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

func spanWords(s types.SubtitleSentence, words []types.TimedWord) []wword {
	if s.Span == nil || s.Span.From < 0 || s.Span.To > len(words) || s.Span.Len() <= 0 {
		return nil
	}
	var out []wword
	for _, w := range words[s.Span.From:s.Span.To] {
		text := sanitizeASS(w.Word)
		if text == "" {
			continue
		}
		out = append(out, wword{Start: types.Seconds(w.Start), End: types.Seconds(w.End), Text: text})
	}
	return out
}

func karaokeText(words []wword) string {
	var b strings.Builder
	lineLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		if i > 0 {
			if lineLen+1+wl > LineBudget {
				b.WriteString("\\N")
				lineLen = 0
			} else {
				b.WriteString(" ")
				lineLen++
			}
		}
		durCS := int((w.End - w.Start) / (10 * time.Millisecond))
		if durCS < 1 {
			durCS = 1
		}
		fmt.Fprintf(&b, "{\\k%d}%s", durCS, w.Text)
		lineLen += wl
	}
	return b.String()
}

func wrap(fields []string) string {
	var b strings.Builder
	lineLen := 0
	for i, f := range fields {
		fl := len([]rune(f))
		if i > 0 {
			if lineLen+1+fl > LineBudget {
				b.WriteString("\\N")
				lineLen = 0
			} else {
				b.WriteString(" ")
				lineLen++
			}
		}
		b.WriteString(f)
		lineLen += fl
	}
	return b.String()
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default, Inter, 64, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,5,2,2, 80,80,70,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
