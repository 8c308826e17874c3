// Package splitter cuts raw transcript text into candidate subtitle
// sentences, either by rules or by asking a text generator.
package splitter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultMinChars = 8
	DefaultMaxChars = 42
)

// Options tune the deterministic splitter. Lengths are counted in runes.
type Options struct {
	// MinChars is the shortest segment a terminator may close. Shorter
	// segments keep accumulating.
	MinChars int
	// MaxChars is the budget that forces a cut at the nearest preceding
	// word boundary.
	MaxChars int
	// Abbreviations extends the built-in list. Entries are matched case
	// insensitively without their trailing period ("dr", "e.g").
	Abbreviations []string
}

func DefaultOptions() Options {
	return Options{MinChars: DefaultMinChars, MaxChars: DefaultMaxChars}
}

func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.MinChars < 0 {
		o.MinChars = 0
	}
	if o.MinChars > o.MaxChars {
		o.MinChars = o.MaxChars
	}
	return o
}

var defaultAbbreviations = []string{
	"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "mt", "vs", "etc",
	"e.g", "i.e", "cf", "inc", "ltd", "co", "corp", "no", "fig", "approx",
	"dept", "est", "gen", "gov", "sen", "rep", "lt", "col", "sgt", "capt",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
}

var initialsRE = regexp.MustCompile(`^(?:\pL\.)+\pL$`)

type glyph struct {
	off int
	r   rune
}

// Split cuts text into segments whose concatenation is exactly text. It
// never rewrites a byte and never returns an empty segment. Whitespace
// between sentences opens the following segment.
func Split(text string, opts Options) []string {
	if text == "" {
		return nil
	}
	opts = opts.withDefaults()
	s := newScanner(text, opts)
	return s.run()
}

type scanner struct {
	text   string
	gs     []glyph
	opts   Options
	abbrev map[string]struct{}

	out      []string
	segStart int
	overlong bool
}

func newScanner(text string, opts Options) *scanner {
	gs := make([]glyph, 0, len(text))
	for off := 0; off < len(text); {
		r, size := utf8.DecodeRuneInString(text[off:])
		gs = append(gs, glyph{off: off, r: r})
		off += size
	}
	abbrev := make(map[string]struct{}, len(defaultAbbreviations)+len(opts.Abbreviations))
	for _, a := range defaultAbbreviations {
		abbrev[a] = struct{}{}
	}
	for _, a := range opts.Abbreviations {
		a = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(a)), ".")
		if a != "" {
			abbrev[a] = struct{}{}
		}
	}
	return &scanner{text: text, gs: gs, opts: opts, abbrev: abbrev}
}

func (s *scanner) run() []string {
	n := len(s.gs)
	for i := 0; i < n; i++ {
		r := s.gs[i].r

		if s.overlong && s.isBoundary(i) {
			s.cut(i)
			s.overlong = false
		}
		if i-s.segStart+1 > s.opts.MaxChars && !s.overlong {
			if k := s.forcedBoundary(i); k > 0 {
				s.cut(k)
			} else {
				s.overlong = true
			}
		}

		if !isTerminator(r) || (i > 0 && isTerminator(s.gs[i-1].r)) {
			continue
		}
		j := i + 1
		for j < n && (isTerminator(s.gs[j].r) || isCloser(s.gs[j].r)) {
			j++
		}
		if s.sentenceEnd(i, j) && s.contentLen(j) >= s.opts.MinChars && j-s.segStart <= s.opts.MaxChars {
			s.cut(j)
			s.overlong = false
		}
	}
	s.flush()
	return s.out
}

func (s *scanner) offset(i int) int {
	if i >= len(s.gs) {
		return len(s.text)
	}
	return s.gs[i].off
}

func (s *scanner) cut(end int) {
	if end <= s.segStart {
		return
	}
	s.out = append(s.out, s.text[s.offset(s.segStart):s.offset(end)])
	s.segStart = end
}

func (s *scanner) flush() {
	if s.segStart >= len(s.gs) {
		return
	}
	rest := s.text[s.offset(s.segStart):]
	if strings.TrimSpace(rest) == "" && len(s.out) > 0 {
		s.out[len(s.out)-1] += rest
		return
	}
	s.out = append(s.out, rest)
}

// contentLen counts the runes in [segStart, end) after leading whitespace.
func (s *scanner) contentLen(end int) int {
	k := s.segStart
	for k < end && unicode.IsSpace(s.gs[k].r) {
		k++
	}
	return end - k
}

// isBoundary reports whether a cut right before glyph k lands between words.
func (s *scanner) isBoundary(k int) bool {
	if k <= 0 || k >= len(s.gs) {
		return false
	}
	prev, cur := s.gs[k-1].r, s.gs[k].r
	if unicode.IsSpace(cur) && !unicode.IsSpace(prev) {
		return true
	}
	return isIdeographic(prev) && isIdeographic(cur)
}

// forcedBoundary finds the cut for a segment that outgrew the budget at
// glyph i. A boundary right after soft punctuation wins when it keeps at
// least half the budget; otherwise the nearest boundary is used. Zero means
// the segment is a single unbreakable word.
func (s *scanner) forcedBoundary(i int) int {
	lo := s.segStart
	for lo <= i && unicode.IsSpace(s.gs[lo].r) {
		lo++
	}
	nearest := 0
	floor := max(s.opts.MinChars, s.opts.MaxChars/2)
	for k := i; k > lo; k-- {
		if !s.isBoundary(k) {
			continue
		}
		if nearest == 0 {
			nearest = k
		}
		if k-s.segStart < floor {
			break
		}
		if isSoftPunct(s.gs[k-1].r) {
			return k
		}
	}
	return nearest
}

// sentenceEnd decides whether the terminator run [i, j) closes a sentence.
func (s *scanner) sentenceEnd(i, j int) bool {
	dots := 0
	for k := i; k < j; k++ {
		switch s.gs[k].r {
		case '…':
			return false
		case '.':
			dots++
		}
	}
	if dots >= 2 {
		return false
	}
	if j < len(s.gs) && !unicode.IsSpace(s.gs[j].r) && !isWideTerminator(s.gs[j-1].r) && !isWideTerminator(s.gs[i].r) {
		return false
	}
	if s.gs[i].r != '.' {
		return true
	}
	if i > 0 && i+1 < len(s.gs) && unicode.IsDigit(s.gs[i-1].r) && unicode.IsDigit(s.gs[i+1].r) {
		return false
	}
	return !s.isAbbreviation(i)
}

// isAbbreviation inspects the token that ends with the period at glyph i.
func (s *scanner) isAbbreviation(i int) bool {
	start := i
	for start > 0 && !unicode.IsSpace(s.gs[start-1].r) {
		start--
	}
	token := s.text[s.offset(start):s.offset(i)]
	token = strings.TrimLeftFunc(token, func(r rune) bool { return isOpener(r) })
	if token == "" {
		return false
	}
	lower := strings.ToLower(token)
	if _, ok := s.abbrev[lower]; ok {
		return true
	}
	return initialsRE.MatchString(token)
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '?', '!', '…', '。', '！', '？':
		return true
	}
	return false
}

func isWideTerminator(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '»', '”', '’', '」', '』', '）':
		return true
	}
	return false
}

func isOpener(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '{', '«', '“', '‘', '「', '『', '（':
		return true
	}
	return false
}

func isSoftPunct(r rune) bool {
	switch r {
	case ',', ';', ':', '，', '；', '：', '、':
		return true
	}
	return false
}

func isIdeographic(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
}
