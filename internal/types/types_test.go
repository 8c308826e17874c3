package types

import "testing"

func TestTranscriptTimedWords_KeepsRawTextReadable(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{Words: []Word{{Start: 0, End: 0.4, Word: " Hi,"}, {Start: 0.4, End: 0.9, Word: "Mike."}}},
		{Words: []Word{{Start: 0.9, End: 1.0, Word: "  "}, {Start: 1.0, End: 1.3, Word: " Well, "}}},
	}}
	words := tr.TimedWords()
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(words))
	}
	if got := RawText(words); got != "Hi, Mike. Well," {
		t.Fatalf("unexpected raw text %q", got)
	}
	if words[1].Start != 0.4 || words[1].End != 0.9 {
		t.Fatalf("unexpected timing %+v", words[1])
	}
}

func TestTranscriptTimedWords_NoSpacesBetweenCJKWords(t *testing.T) {
	tests := []struct {
		name  string
		words []string
		want  string
	}{
		{name: "japanese", words: []string{"東京", "は", "大きい。"}, want: "東京は大きい。"},
		{name: "chinese with fullwidth punctuation", words: []string{"你好", "，", "世界", "！"}, want: "你好，世界！"},
		{name: "latin after cjk", words: []string{"我用", "Go", "写"}, want: "我用Go写"},
		{name: "latin keeps spaces", words: []string{"Hi,", "Mike."}, want: "Hi, Mike."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := Segment{}
			for i, w := range tt.words {
				seg.Words = append(seg.Words, Word{Start: float64(i), End: float64(i) + 0.5, Word: w})
			}
			if got := RawText(Transcript{Segments: []Segment{seg}}.TimedWords()); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
