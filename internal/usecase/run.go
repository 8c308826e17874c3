package usecase

import (
	"context"
	"path/filepath"

	"github.com/forPelevin/subalign/internal/domain/subtitles"
	"github.com/forPelevin/subalign/internal/types"
)

type Input struct {
	InputMP4 string
	CacheDir string
	OutDir   string
	// Exports lists extra subtitle files written next to the video.
	Exports []subtitles.Format
	// BurnSubtitles renders the subtitled video. Without it only the
	// subtitle files are written.
	BurnSubtitles bool
}

type Result struct {
	Project  types.Project
	Manifest types.Manifest
}

// Run is the full path from a video to subtitles: transcribe, split,
// align, render and export.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	p, err := u.Import(ctx, ImportInput{InputMP4: in.InputMP4, CacheDir: in.CacheDir})
	if err != nil {
		return Result{}, err
	}
	report, err := u.Align(ctx, p.ID)
	if err != nil {
		return Result{}, err
	}
	if p, err = u.Project(ctx, p.ID); err != nil {
		return Result{}, err
	}

	rendered, err := u.render(ctx, p, RenderInput{OutDir: in.OutDir, SubtitlesOnly: !in.BurnSubtitles})
	if err != nil {
		return Result{}, err
	}
	m := types.Manifest{
		Input:     in.InputMP4,
		ProjectID: p.ID,
		Subtitles: relTo(in.OutDir, rendered.Subtitles),
		Sentences: p.Sentences,
		Dropped:   p.Dropped,
		Words:     len(p.Words),
		Unused:    report.Result.Unconsumed,
	}
	if rendered.Video != "" {
		m.Video = relTo(in.OutDir, rendered.Video)
	}
	for _, f := range in.Exports {
		path, err := exportFile(p, in.OutDir, f)
		if err != nil {
			return Result{}, err
		}
		m.Exports = append(m.Exports, relTo(in.OutDir, path))
	}
	return Result{Project: p, Manifest: m}, nil
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
