package subtitles

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/forPelevin/subalign/internal/faults"
)

func TestExport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatSRT, []string{"00:00:00,000 --> 00:00:00,800", "Hello world.", "Bye."}},
		{FormatVTT, []string{"WEBVTT", "00:00:01.000 --> 00:00:01.400", "Bye."}},
		{FormatSSA, []string{"[Events]", "Hello world."}},
		{FormatTTML, []string{"<tt", "Bye."}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Export(&buf, testSentences, tt.format); err != nil {
				t.Fatalf("export: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Fatalf("%s output missing %q:\n%s", tt.format, want, buf.String())
				}
			}
		})
	}
}

func TestExport_SkipsExcluded(t *testing.T) {
	t.Parallel()

	in, _ := SetExcluded(testSentences, 0, true)
	var buf bytes.Buffer
	if err := Export(&buf, in, FormatSRT); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Hello") {
		t.Fatalf("excluded sentence exported:\n%s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"srt": FormatSRT, ".VTT": FormatVTT, "webvtt": FormatVTT, "ass": FormatSSA, "ttml": FormatTTML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("docx"); !errors.Is(err, faults.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}
