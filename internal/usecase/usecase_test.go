package usecase

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/subalign/internal/domain/splitter"
	"github.com/forPelevin/subalign/internal/domain/subtitles"
	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/types"
)

func newTestUsecase(store *memStore, video *fakeVideoTool, gen *fakeGenerator, s Settings) Usecase {
	d := Deps{Video: video, ASR: fakeASR{tr: testTranscript()}, Store: store}
	if gen != nil {
		d.LLM = gen
	}
	if s.Split == (splitter.Options{}) {
		s.Split = splitter.DefaultOptions()
	}
	return New(d, s)
}

func TestRun_BurnSubtitlesToggle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		burnSubtitles bool
	}{
		{name: "disabled", burnSubtitles: false},
		{name: "enabled", burnSubtitles: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tmp := t.TempDir()
			outDir := filepath.Join(tmp, "out")
			video := &fakeVideoTool{}
			uc := newTestUsecase(newMemStore(), video, nil, Settings{Karaoke: true})

			res, err := uc.Run(context.Background(), Input{
				InputMP4:      filepath.Join(tmp, "in.mp4"),
				CacheDir:      filepath.Join(tmp, "cache"),
				OutDir:        outDir,
				Exports:       []subtitles.Format{subtitles.FormatSRT},
				BurnSubtitles: tc.burnSubtitles,
			})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			m := res.Manifest
			if m.Words != 11 || m.Unused != 0 || len(m.Dropped) != 0 {
				t.Fatalf("unexpected manifest: %+v", m)
			}
			if len(m.Sentences) != 3 || m.Sentences[0].Text != "Hi, Mike." {
				t.Fatalf("unexpected sentences: %+v", m.Sentences)
			}
			if m.Subtitles != "subtitles.ass" || len(m.Exports) != 1 || m.Exports[0] != "subtitles.srt" {
				t.Fatalf("unexpected artifacts: %+v", m)
			}
			ass, err := os.ReadFile(filepath.Join(outDir, "subtitles.ass"))
			if err != nil {
				t.Fatalf("read ass: %v", err)
			}
			if !strings.Contains(string(ass), `{\k`) {
				t.Fatalf("expected karaoke tags:\n%s", ass)
			}
			if tc.burnSubtitles {
				if len(video.burned) != 1 || m.Video != "subtitled.mp4" {
					t.Fatalf("expected one burn, got %v (manifest video %q)", video.burned, m.Video)
				}
			} else if len(video.burned) != 0 || m.Video != "" {
				t.Fatalf("expected no burn, got %v", video.burned)
			}
		})
	}
}

func TestAlign_SplitsWhenCandidatesMissing(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	uc := newTestUsecase(store, &fakeVideoTool{}, nil, Settings{})
	p, err := store.Create(context.Background(), types.Project{Words: testTranscript().TimedWords()})
	if err != nil {
		t.Fatal(err)
	}

	report, err := uc.Align(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if !report.Result.Complete() || report.Candidates != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	stored, _ := store.Get(context.Background(), p.ID)
	if len(stored.Candidates) != 3 || len(stored.Sentences) != 3 {
		t.Fatalf("expected candidates and sentences stored: %+v", stored)
	}
}

func TestAlign_ReportsDroppedCandidates(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	uc := newTestUsecase(store, &fakeVideoTool{}, nil, Settings{})
	p, _ := store.Create(context.Background(), types.Project{
		Words:      testTranscript().TimedWords(),
		Candidates: []string{"Hi, Mike.", "Something never said.", " How are you doing today?", " I am fine, thanks.", "Extra."},
	})

	report, err := uc.Align(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if len(report.Result.Sentences) != 3 || len(report.Result.Dropped) != 2 {
		t.Fatalf("unexpected result: %+v", report.Result)
	}
	stored, _ := store.Get(context.Background(), p.ID)
	if len(stored.Dropped) != 2 || stored.Dropped[0].Index != 1 {
		t.Fatalf("drop report not stored: %+v", stored.Dropped)
	}
}

func TestSplit_GenerativeMode(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	gen := &fakeGenerator{out: "Hi, Mike.|| How are you doing today?|| I am fine, thanks."}
	uc := newTestUsecase(store, &fakeVideoTool{}, gen, Settings{SplitMode: SplitGenerative, Delimiter: "||"})
	p, _ := store.Create(context.Background(), types.Project{Words: testTranscript().TimedWords()})

	cands, err := uc.Split(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(cands) != 3 || gen.calls != 1 {
		t.Fatalf("unexpected candidates %q (calls %d)", cands, gen.calls)
	}

	empty := &fakeGenerator{out: "   "}
	uc = newTestUsecase(store, &fakeVideoTool{}, empty, Settings{SplitMode: SplitGenerative})
	var eg *splitter.EmptyGenerationError
	if _, err := uc.Split(context.Background(), p.ID); !errors.As(err, &eg) || !faults.Retryable(err) {
		t.Fatalf("expected retryable empty generation error, got %v", err)
	}
}

func TestApplyRecovery_AllOrNothing(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	uc := newTestUsecase(store, &fakeVideoTool{}, nil, Settings{})
	words := testTranscript().TimedWords()
	before := []types.SubtitleSentence{{Text: "old", Start: 0, End: 1}}
	p, _ := store.Create(context.Background(), types.Project{
		Words:      words,
		Candidates: []string{"Hi, Mike.", "How are you doing today? I am fine, thanks."},
		Sentences:  before,
	})

	if _, err := uc.ApplyRecovery(context.Background(), p.ID, `{"sentences":[{"indices":[0,1]},{"indices":[3,4,5,6,7,8,9,10]}]}`); !errors.Is(err, faults.ErrParse) {
		t.Fatalf("expected parse error for a gap, got %v", err)
	}
	stored, _ := store.Get(context.Background(), p.ID)
	if len(stored.Sentences) != 1 || stored.Sentences[0].Text != "old" {
		t.Fatalf("failed recovery must not touch sentences: %+v", stored.Sentences)
	}

	got, err := uc.ApplyRecovery(context.Background(), p.ID, "```json\n{\"sentences\":[{\"indices\":[0,1]},{\"indices\":[2,3,4,5,6,7,8,9,10]}]}\n```")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(got) != 2 || got[1].Start != 0.9 || got[1].End != 3.5 {
		t.Fatalf("unexpected sentences: %+v", got)
	}
}

func TestRecoveryPrompt(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	uc := newTestUsecase(store, &fakeVideoTool{}, nil, Settings{})
	p, _ := store.Create(context.Background(), types.Project{Words: testTranscript().TimedWords(), Candidates: []string{"Hi, Mike."}})

	prompt, err := uc.RecoveryPrompt(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if !strings.Contains(prompt.User, "[10] (2.90-3.50) thanks.") {
		t.Fatalf("unexpected prompt:\n%s", prompt.User)
	}
	if _, err := uc.RecoveryPrompt(context.Background(), "missing"); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWatchRecovery_RetriesUntilValid(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	uc := newTestUsecase(store, &fakeVideoTool{}, nil, Settings{})
	p, _ := store.Create(context.Background(), types.Project{
		Words:      testTranscript().TimedWords(),
		Candidates: []string{"Hi, Mike.", "How are you doing today? I am fine, thanks."},
	})
	path := filepath.Join(t.TempDir(), "response.txt")
	if err := os.WriteFile(path, []byte("not json yet"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rejected := make(chan error, 4)
	done := make(chan error, 1)
	go func() {
		_, err := uc.WatchRecovery(ctx, p.ID, path, func(err error) {
			select {
			case rejected <- err:
			default:
			}
		})
		done <- err
	}()

	select {
	case err := <-rejected:
		if !errors.Is(err, faults.ErrParse) {
			t.Fatalf("expected parse failure first, got %v", err)
		}
	case <-ctx.Done():
		t.Fatal("first attempt never reported")
	}

	good := `{"sentences":[{"indices":[0,1]},{"indices":[2,3,4,5,6,7,8,9,10]}]}`
	if err := os.WriteFile(path, []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("watch did not pick up the fixed response")
	}
	stored, _ := store.Get(context.Background(), p.ID)
	if len(stored.Sentences) != 2 {
		t.Fatalf("expected recovered sentences stored: %+v", stored.Sentences)
	}
}

func TestExcludeRenderMutesExcluded(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	video := &fakeVideoTool{}
	uc := newTestUsecase(store, video, nil, Settings{MuteExcluded: true})
	p, _ := store.Create(context.Background(), types.Project{SourcePath: "in.mp4", Words: testTranscript().TimedWords()})
	if _, err := uc.Align(context.Background(), p.ID); err != nil {
		t.Fatal(err)
	}

	sentences, err := uc.Exclude(context.Background(), p.ID, 1)
	if err != nil {
		t.Fatalf("exclude: %v", err)
	}
	if !sentences[1].Excluded {
		t.Fatalf("expected sentence 1 excluded: %+v", sentences)
	}
	if _, err := uc.Exclude(context.Background(), p.ID, 7); !errors.Is(err, faults.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}

	out, err := uc.Render(context.Background(), p.ID, RenderInput{OutDir: t.TempDir()})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.Video == "" || len(video.mute) != 1 || len(video.mute[0]) != 1 {
		t.Fatalf("expected one muted interval, got %+v", video.mute)
	}
	if iv := video.mute[0][0]; iv.Start != 900*time.Millisecond || iv.End != 2*time.Second {
		t.Fatalf("unexpected mute interval %+v", iv)
	}

	remaining, err := uc.Delete(context.Background(), p.ID, 0)
	if err != nil || len(remaining) != 2 {
		t.Fatalf("delete: %v %+v", err, remaining)
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	uc := newTestUsecase(store, &fakeVideoTool{}, nil, Settings{})
	p, _ := store.Create(context.Background(), types.Project{Words: testTranscript().TimedWords()})
	if _, err := uc.Align(context.Background(), p.ID); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := uc.Export(context.Background(), p.ID, &buf, subtitles.FormatSRT); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "00:00:00,000 --> 00:00:00,800") {
		t.Fatalf("unexpected srt:\n%s", buf.String())
	}
}

func TestAlignAll_CollectsFailures(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	gen := &fakeGenerator{out: "Hi, Mike.|| How are you doing today?|| I am fine, thanks."}
	uc := newTestUsecase(store, &fakeVideoTool{}, gen, Settings{
		SplitMode:         SplitGenerative,
		MaxConcurrent:     2,
		RequestsPerMinute: 6000,
	})
	var ids []string
	for range 3 {
		p, _ := store.Create(context.Background(), types.Project{Words: testTranscript().TimedWords()})
		ids = append(ids, p.ID)
	}
	ids = append(ids, "missing")

	items, err := uc.AlignAll(context.Background(), ids)
	if err != nil {
		t.Fatalf("align all: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	for _, it := range items[:3] {
		if it.Err != nil || !it.Report.Result.Complete() {
			t.Fatalf("unexpected item %+v", it)
		}
	}
	if !errors.Is(items[3].Err, faults.ErrNotFound) {
		t.Fatalf("expected not found for missing project, got %v", items[3].Err)
	}
	if gen.calls != 3 {
		t.Fatalf("expected one generator call per project, got %d", gen.calls)
	}
}

func TestAlignWords(t *testing.T) {
	t.Parallel()

	uc := newTestUsecase(newMemStore(), &fakeVideoTool{}, nil, Settings{})
	res, err := uc.AlignWords(context.Background(), testTranscript().TimedWords(), nil, "", "")
	if err != nil || !res.Complete() {
		t.Fatalf("align words: %v %+v", err, res)
	}
	if _, err := uc.AlignWords(context.Background(), nil, []string{"x"}, "", ""); !errors.Is(err, faults.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}
