package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

type Adapter struct {
	bin      string
	model    string
	language string
}

func New(binPath, modelPath, language string) *Adapter {
	if language == "" {
		language = "auto"
	}
	return &Adapter{bin: binPath, model: modelPath, language: language}
}

// Transcribe runs whisper.cpp with one token per output entry so every
// entry carries word-level offsets.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	if a.model == "" {
		return types.Transcript{}, faults.Precondition("whisper.cpp", "model path is not configured")
	}
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", a.language,
		"-ml", "1",
		"-sow",
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, faults.Wrap(faults.ErrExternalTool, "whisper.cpp", string(b), err)
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return Decode(jb)
}

type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
	Segments []types.Segment `json:"segments"`
}

// Decode reads whisper.cpp JSON output. Both the native "transcription"
// list (offsets in milliseconds) and a pre-converted "segments" shape are
// accepted.
func Decode(b []byte) (types.Transcript, error) {
	var out whisperOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper json: %w", err)
	}
	if len(out.Segments) > 0 {
		return types.Transcript{Segments: out.Segments}, nil
	}
	var tr types.Transcript
	for _, e := range out.Transcription {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		start := float64(e.Offsets.From) / 1000
		end := float64(e.Offsets.To) / 1000
		tr.Segments = append(tr.Segments, types.Segment{
			Start: start,
			End:   end,
			Text:  strings.TrimSpace(e.Text),
			Words: []types.Word{{Start: start, End: end, Word: e.Text}},
		})
	}
	if len(tr.Segments) == 0 {
		return types.Transcript{}, faults.Wrap(faults.ErrExternalTool, "whisper.cpp", "no words recognized", nil)
	}
	return tr, nil
}
