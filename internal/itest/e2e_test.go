//go:build integration

package itest

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/subalign/internal/types"
)

func TestE2E(t *testing.T) {
	for _, bin := range []string{"espeak-ng", "ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}
	repoRoot := mustRepoRoot(t)
	whisperBin := envOr("SUBALIGN_WHISPER_BIN", filepath.Join(repoRoot, ".cache", "bin", "whisper.cpp"))
	whisperModel := envOr("SUBALIGN_WHISPER_MODEL", filepath.Join(repoRoot, ".cache", "models", "ggml-base.bin"))
	for _, p := range []string{whisperBin, whisperModel} {
		if _, err := os.Stat(p); err != nil {
			t.Skipf("whisper.cpp asset missing: %s", p)
		}
	}

	tmp := t.TempDir()
	in := makeSpeechVideo(t, tmp, "Here is the key idea. Step one is to measure. Step two is to compare the results.")

	cfgPath := writeConfig(t, tmp, `
[paths]
out_dir = "`+filepath.ToSlash(filepath.Join(tmp, "out"))+`"
cache_dir = "`+filepath.ToSlash(filepath.Join(tmp, "cache"))+`"

[tools]
whisper_bin = "`+filepath.ToSlash(whisperBin)+`"
whisper_model = "`+filepath.ToSlash(whisperModel)+`"
language = "en"

[split]
mode = "deterministic"
`)

	res := runCLI(t, repoRoot, []string{"--config", cfgPath, "run", in, "--export", "srt,vtt"}, map[string]string{"HOME": tmp})
	if res.exitCode != 0 {
		t.Fatalf("run failed (exit %d):\n%s", res.exitCode, res.output)
	}
	var manifestPath string
	for _, line := range strings.Split(res.output, "\n") {
		if line = strings.TrimSpace(line); strings.HasSuffix(line, "manifest.json") {
			manifestPath = line
		}
	}
	if manifestPath == "" {
		t.Fatalf("run did not print a manifest path:\n%s", res.output)
	}

	b, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(m.Sentences) == 0 || m.Words == 0 {
		t.Fatalf("manifest has no aligned sentences: %s", b)
	}
	runDir := filepath.Dir(manifestPath)
	for _, rel := range append([]string{m.Video, m.Subtitles}, m.Exports...) {
		if _, err := os.Stat(filepath.Join(runDir, rel)); err != nil {
			t.Fatalf("missing artifact %s: %v", rel, err)
		}
	}

	dur, err := probeDurationSeconds(filepath.Join(runDir, m.Video))
	if err != nil {
		t.Fatalf("probe rendered video: %v", err)
	}
	if dur <= 0 {
		t.Fatalf("rendered video has no duration")
	}
	last := m.Sentences[len(m.Sentences)-1]
	if last.End > dur+0.5 {
		t.Fatalf("last sentence ends at %.2fs past the video end %.2fs", last.End, dur)
	}
}

func makeSpeechVideo(t *testing.T, dir, text string) string {
	t.Helper()
	wav := filepath.Join(dir, "speech.wav")
	if b, err := exec.Command("espeak-ng", "-w", wav, text).CombinedOutput(); err != nil {
		t.Fatalf("espeak-ng failed: %v\n%s", err, string(b))
	}
	in := filepath.Join(dir, "input.mp4")
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=black:s=1280x720:d=15",
		"-i", wav,
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return in
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
