//go:build integration

package itest

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// probeDurationSeconds reads the container duration of a rendered file.
func probeDurationSeconds(path string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b, err := exec.CommandContext(ctx, envOr("SUBALIGN_FFPROBE", "ffprobe"),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	raw := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: duration %q: %w", path, raw, err)
	}
	return sec, nil
}
