package types

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Transcript is the whisper.cpp JSON shape.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// TimedWord is one recognized speech token. Word keeps its leading
// whitespace so that concatenating all words yields the raw text.
type TimedWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TimedWords flattens the transcript into the token stream consumed by
// alignment. Words without leading whitespace get a single space prepended,
// except the very first one and words that meet an unspaced script (Han,
// kana) on either side.
func (tr Transcript) TimedWords() []TimedWord {
	var out []TimedWord
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			text := strings.TrimRightFunc(w.Word, unicode.IsSpace)
			if strings.TrimSpace(text) == "" {
				continue
			}
			if len(out) == 0 {
				text = strings.TrimLeftFunc(text, unicode.IsSpace)
			} else if needsSpace(out[len(out)-1].Word, text) {
				text = " " + text
			}
			out = append(out, TimedWord{Word: text, Start: w.Start, End: w.End})
		}
	}
	return out
}

func needsSpace(prev, next string) bool {
	first, _ := utf8.DecodeRuneInString(next)
	last, _ := utf8.DecodeLastRuneInString(prev)
	return !unicode.IsSpace(first) && !unspaced(first) && !unspaced(last)
}

// unspaced reports runes of scripts written without spaces between words,
// including their full-width punctuation.
func unspaced(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) ||
		(r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF)
}

// RawText concatenates the words with no inserted separators.
func RawText(words []TimedWord) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w.Word)
	}
	return b.String()
}

// WordSpan is the half-open range [From, To) of TimedWord indices a
// sentence was built from.
type WordSpan struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (s WordSpan) Len() int { return s.To - s.From }

// SubtitleSentence is the unit consumed by rendering and manual editing.
type SubtitleSentence struct {
	Text                   string    `json:"text"`
	Start                  float64   `json:"start"`
	End                    float64   `json:"end"`
	Excluded               bool      `json:"excluded"`
	TextLiteralTranslation string    `json:"textLiteralTranslation,omitempty"`
	TextInterpretation     string    `json:"textInterpretation,omitempty"`
	Span                   *WordSpan `json:"span,omitempty"`
}

func (s SubtitleSentence) StartDuration() time.Duration { return Seconds(s.Start) }
func (s SubtitleSentence) EndDuration() time.Duration   { return Seconds(s.End) }

// WordIndexGroup lists the word positions that make up one sentence.
type WordIndexGroup struct {
	Indices []int `json:"indices"`
}

// DroppedSentence records a candidate the aligner could not place.
type DroppedSentence struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Project is the persisted record around one input video.
type Project struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	SourcePath string             `json:"source_path"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Words      []TimedWord        `json:"words"`
	Candidates []string           `json:"candidates"`
	Sentences  []SubtitleSentence `json:"sentences"`
	Dropped    []DroppedSentence  `json:"dropped"`
}

type Manifest struct {
	Input     string             `json:"input"`
	ProjectID string             `json:"project_id"`
	Video     string             `json:"video"`
	Subtitles string             `json:"subtitles"`
	Exports   []string           `json:"exports,omitempty"`
	Sentences []SubtitleSentence `json:"sentences"`
	Dropped   []DroppedSentence  `json:"dropped"`
	Words     int                `json:"words"`
	Unused    int                `json:"unused_words"`
}

// Interval is a span on the source timeline.
type Interval struct {
	Start time.Duration
	End   time.Duration
}

func Seconds(sec float64) time.Duration { return time.Duration(math.Round(sec * float64(time.Second))) }
