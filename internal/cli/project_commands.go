package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/subalign/internal/domain/subtitles"
	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/pipeline"
	"github.com/forPelevin/subalign/internal/types"
	"github.com/forPelevin/subalign/internal/usecase"
)

func newRunCommand(cc *commandContext) *cobra.Command {
	var exports []string
	var noBurn bool

	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Transcribe, split, align and render one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(exports)
			if err != nil {
				return err
			}
			absIn, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			run := pipeline.Config{InputMP4: absIn, Exports: formats, BurnSubtitles: !noBurn}
			if err := run.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			manifest, err := app.Run(cmd.Context(), run)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), manifest)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&exports, "export", nil, "Also export subtitles (srt, vtt, ssa, ttml)")
	cmd.Flags().BoolVar(&noBurn, "no-burn", false, "Write subtitle files only, skip the video render")
	return cmd
}

func newImportCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <input>",
		Short: "Transcribe a video into a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absIn, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.Usecase.Import(cmd.Context(), usecase.ImportInput{
				InputMP4: absIn,
				CacheDir: filepath.Join(app.Config.Paths.CacheDir, "import"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d words\n", p.ID, len(p.Words))
			return nil
		},
	}
}

func newSplitCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "split <id>",
		Short: "Cut the project transcript into candidate sentences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			cands, err := app.Usecase.Split(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, c := range cands {
				fmt.Fprintf(out, "%d\t%s\n", i, strings.TrimSpace(c))
			}
			return nil
		},
	}
}

func newAlignCommand(cc *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "align [id...]",
		Short: "Align candidate sentences to the timed words",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return faults.Precondition("align", "give a project id or --all")
			}
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if !all && len(args) == 1 {
				report, err := app.Usecase.Align(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderAlignReport(report))
				return nil
			}

			items, err := app.Usecase.AlignAll(cmd.Context(), args)
			rows := make([][]string, 0, len(items))
			failed := 0
			for _, it := range items {
				r := it.Report.Result
				status := "ok"
				if it.Err != nil {
					status = faults.Kind(it.Err) + ": " + it.Err.Error()
					failed++
				} else if !r.Complete() {
					status = "incomplete"
				}
				rows = append(rows, []string{
					it.ProjectID,
					strconv.Itoa(len(r.Sentences)),
					strconv.Itoa(len(r.Dropped)),
					strconv.Itoa(r.Unconsumed),
					status,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Project", "Aligned", "Dropped", "Unused words", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d projects failed", failed, len(items))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Align every stored project")
	return cmd
}

func renderAlignReport(report usecase.AlignReport) string {
	r := report.Result
	var b strings.Builder
	fmt.Fprintf(&b, "project %s: %d of %d candidates aligned, %d words unused\n",
		report.ProjectID, len(r.Sentences), report.Candidates, r.Unconsumed)
	if len(r.Dropped) > 0 {
		rows := make([][]string, 0, len(r.Dropped))
		for _, d := range r.Dropped {
			rows = append(rows, []string{strconv.Itoa(d.Index), d.Reason, strings.TrimSpace(d.Text)})
		}
		b.WriteString(renderTable([]string{"#", "Reason", "Dropped sentence"}, rows, []columnAlignment{alignRight}))
		b.WriteString("\nrun `subalign recover prompt " + report.ProjectID + "` to realign by hand")
	}
	return strings.TrimRight(b.String(), "\n")
}

func newShowCommand(cc *commandContext) *cobra.Command {
	var showWords bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the sentences of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.Usecase.Project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n%s\n", p.ID, p.Name, p.SourcePath)
			fmt.Fprintln(out, renderSentences(p.Sentences))
			if showWords {
				fmt.Fprintln(out, renderWords(p.Words))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showWords, "words", false, "Also list the timed words")
	return cmd
}

func renderSentences(sentences []types.SubtitleSentence) string {
	rows := make([][]string, 0, len(sentences))
	for i, s := range sentences {
		flag := ""
		if s.Excluded {
			flag = "excluded"
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			fmt.Sprintf("%.2f", s.Start),
			fmt.Sprintf("%.2f", s.End),
			flag,
			s.Text,
		})
	}
	return renderTable(
		[]string{"#", "Start", "End", "", "Text"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight},
	)
}

func renderWords(words []types.TimedWord) string {
	rows := make([][]string, 0, len(words))
	for i, w := range words {
		rows = append(rows, []string{
			strconv.Itoa(i),
			fmt.Sprintf("%.2f", w.Start),
			fmt.Sprintf("%.2f", w.End),
			strconv.Quote(w.Word),
		})
	}
	return renderTable([]string{"#", "Start", "End", "Word"}, rows, []columnAlignment{alignRight, alignRight, alignRight})
}

func newListCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			projects, err := app.Usecase.Projects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects")
				return nil
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					p.ID,
					p.Name,
					strconv.Itoa(len(p.Words)),
					strconv.Itoa(len(p.Sentences)),
					strconv.Itoa(len(p.Dropped)),
					p.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Words", "Sentences", "Dropped", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newExcludeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <id> <index>",
		Short: "Toggle whether a sentence is excluded from output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			sentences, err := app.Usecase.Exclude(cmd.Context(), args[0], index)
			if err != nil {
				return err
			}
			state := "included"
			if sentences[index].Excluded {
				state = "excluded"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sentence %d %s\n", index, state)
			return nil
		},
	}
}

func newDeleteCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id> <index>",
		Short: "Remove a sentence from a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			sentences, err := app.Usecase.Delete(cmd.Context(), args[0], index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sentence %d deleted, %d left\n", index, len(sentences))
			return nil
		},
	}
}

func newRenderCommand(cc *commandContext) *cobra.Command {
	var outDir, input string
	var subsOnly bool

	cmd := &cobra.Command{
		Use:   "render <id>",
		Short: "Burn the project subtitles into its video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if outDir == "" {
				outDir = filepath.Join(app.Config.Paths.OutDir, args[0])
			}
			res, err := app.Usecase.Render(cmd.Context(), args[0], usecase.RenderInput{
				InputMP4:      input,
				OutDir:        outDir,
				SubtitlesOnly: subsOnly,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Subtitles)
			if res.Video != "" {
				fmt.Fprintln(out, res.Video)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default <out_dir>/<id>)")
	cmd.Flags().StringVar(&input, "input", "", "Video to render onto instead of the project source")
	cmd.Flags().BoolVar(&subsOnly, "subs-only", false, "Write the ASS file without rendering video")
	return cmd
}

func newExportCommand(cc *commandContext) *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export active sentences as SRT, WebVTT, SSA or TTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := subtitles.ParseFormat(format)
			if err != nil {
				return err
			}
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if outPath == "" || outPath == "-" {
				return app.Usecase.Export(cmd.Context(), args[0], cmd.OutOrStdout(), f)
			}
			path, err := app.Usecase.ExportFile(cmd.Context(), args[0], outPath, f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "srt", "srt, vtt, ssa or ttml")
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "Output directory, or - for stdout")
	return cmd
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, faults.Precondition("index", "%q is not a number", s)
	}
	return i, nil
}

func parseFormats(values []string) ([]subtitles.Format, error) {
	out := make([]subtitles.Format, 0, len(values))
	for _, v := range values {
		f, err := subtitles.ParseFormat(v)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
