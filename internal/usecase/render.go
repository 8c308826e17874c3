package usecase

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/forPelevin/subalign/internal/domain/subtitles"
	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

type RenderInput struct {
	// InputMP4 overrides the project's source video.
	InputMP4 string
	OutDir   string
	// SubtitlesOnly writes the ASS file without burning it in.
	SubtitlesOnly bool
}

type RenderOutput struct {
	Video     string
	Subtitles string
}

// Render writes the ASS subtitles of the active sentences and burns them
// into the video. Excluded sentences are muted when configured.
func (u Usecase) Render(ctx context.Context, id string, in RenderInput) (RenderOutput, error) {
	p, err := u.Project(ctx, id)
	if err != nil {
		return RenderOutput{}, err
	}
	return u.render(ctx, p, in)
}

func (u Usecase) render(ctx context.Context, p types.Project, in RenderInput) (RenderOutput, error) {
	src := in.InputMP4
	if src == "" {
		src = p.SourcePath
	}
	ass, err := subtitles.RenderASS(p.Sentences, p.Words, subtitles.ASSOptions{Karaoke: u.s.Karaoke})
	if err != nil {
		return RenderOutput{}, err
	}
	if err := os.MkdirAll(in.OutDir, 0o755); err != nil {
		return RenderOutput{}, err
	}
	out := RenderOutput{Subtitles: filepath.Join(in.OutDir, "subtitles.ass")}
	if err := writeFile(out.Subtitles, []byte(ass)); err != nil {
		return RenderOutput{}, err
	}
	if in.SubtitlesOnly {
		return out, nil
	}
	if src == "" {
		return out, faults.Precondition("render", "project %s has no source video", p.ID)
	}
	if u.d.Video == nil {
		return out, faults.Precondition("render", "no video tool configured")
	}

	var mute []types.Interval
	if u.s.MuteExcluded {
		mute = subtitles.MuteIntervals(p.Sentences)
	}
	out.Video = filepath.Join(in.OutDir, "subtitled.mp4")
	u.d.Logger.Info("burning subtitles", "project", p.ID, "output", out.Video, "muted", len(mute))
	if err := u.d.Video.BurnSubtitles(ctx, src, out.Video, out.Subtitles, mute); err != nil {
		return out, err
	}
	return out, nil
}

// Export writes the active sentences in a subtitle interchange format.
func (u Usecase) Export(ctx context.Context, id string, w io.Writer, format subtitles.Format) error {
	p, err := u.Project(ctx, id)
	if err != nil {
		return err
	}
	return subtitles.Export(w, p.Sentences, format)
}

// ExportFile is Export into dir/<name><ext>. It returns the written path.
func (u Usecase) ExportFile(ctx context.Context, id, dir string, format subtitles.Format) (string, error) {
	p, err := u.Project(ctx, id)
	if err != nil {
		return "", err
	}
	return exportFile(p, dir, format)
}

func exportFile(p types.Project, dir string, format subtitles.Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "subtitles"+format.Ext())
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := subtitles.Export(f, p.Sentences, format); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
