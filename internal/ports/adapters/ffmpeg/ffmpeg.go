package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inMP4,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return faults.Wrap(faults.ErrExternalTool, "ffmpeg extract audio", string(b), err)
	}
	return nil
}

// BurnSubtitles re-encodes the whole input with the ASS file burned in and
// silences every mute interval.
func (a *Adapter) BurnSubtitles(ctx context.Context, inMP4, outMP4, assPath string, mute []types.Interval) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, burnArgs(inMP4, outMP4, assPath, mute)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return faults.Wrap(faults.ErrExternalTool, "ffmpeg burn subtitles", string(b), err)
	}
	return nil
}

func burnArgs(inMP4, outMP4, assPath string, mute []types.Interval) []string {
	args := []string{"-y", "-i", inMP4}
	if assPath != "" {
		args = append(args, "-vf", "subtitles="+escapeFilterPath(assPath))
	}
	if f := muteFilter(mute); f != "" {
		args = append(args, "-af", f)
	}
	return append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		outMP4,
	)
}

func muteFilter(mute []types.Interval) string {
	var parts []string
	for _, iv := range mute {
		if iv.End <= iv.Start {
			continue
		}
		parts = append(parts, fmt.Sprintf("between(t,%s,%s)", fmtSeconds(iv.Start), fmtSeconds(iv.End)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "volume=enable='" + strings.Join(parts, "+") + "':volume=0"
}

func (a *Adapter) ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, faults.Wrap(faults.ErrExternalTool, "ffprobe duration", string(b), err)
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return types.Seconds(sec), nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
