package usecase

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/subalign/internal/domain/align"
	"github.com/forPelevin/subalign/internal/domain/splitter"
	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/ports"
	"github.com/forPelevin/subalign/internal/types"
)

const (
	SplitDeterministic = "deterministic"
	SplitGenerative    = "generative"
)

type Deps struct {
	Video  ports.VideoTool
	ASR    ports.ASR
	LLM    ports.TextGenerator
	Store  ports.ProjectStore
	Logger *slog.Logger
}

// Settings carries the tuning knobs resolved from config.
type Settings struct {
	SplitMode string
	Split     splitter.Options
	Delimiter string
	Tolerance int

	Karaoke      bool
	MuteExcluded bool

	RequestsPerMinute int
	MaxConcurrent     int
}

type Usecase struct {
	d Deps
	s Settings
}

func New(d Deps, s Settings) Usecase {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if s.SplitMode == "" {
		s.SplitMode = SplitDeterministic
	}
	if s.Tolerance < 0 {
		s.Tolerance = align.DefaultTolerance
	}
	if s.MaxConcurrent <= 0 {
		s.MaxConcurrent = 1
	}
	return Usecase{d: d, s: s}
}

type ImportInput struct {
	InputMP4 string
	CacheDir string
}

// Import extracts audio, transcribes it and stores the words in a new
// project.
func (u Usecase) Import(ctx context.Context, in ImportInput) (types.Project, error) {
	if err := u.requireStore(); err != nil {
		return types.Project{}, err
	}
	if u.d.Video == nil || u.d.ASR == nil {
		return types.Project{}, faults.Precondition("import", "video tool and ASR are required")
	}
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return types.Project{}, err
	}
	words, err := u.Transcribe(ctx, in.InputMP4, in.CacheDir)
	if err != nil {
		return types.Project{}, err
	}
	p, err := u.d.Store.Create(ctx, types.Project{SourcePath: in.InputMP4, Words: words})
	if err != nil {
		return types.Project{}, err
	}
	u.d.Logger.Info("project created", "project", p.ID, "words", len(words))
	return p, nil
}

// Transcribe returns the flattened timed words of the input's speech.
func (u Usecase) Transcribe(ctx context.Context, inputMP4, cacheDir string) ([]types.TimedWord, error) {
	wav := filepath.Join(cacheDir, "audio.wav")
	u.d.Logger.Info("extracting audio", "input", inputMP4)
	if err := u.d.Video.ExtractAudioMono16k(ctx, inputMP4, wav); err != nil {
		return nil, err
	}
	u.d.Logger.Info("transcribing", "wav", wav)
	tr, err := u.d.ASR.Transcribe(ctx, wav, cacheDir)
	if err != nil {
		return nil, err
	}
	words := tr.TimedWords()
	if len(words) == 0 {
		return nil, faults.Wrap(faults.ErrExternalTool, "transcribe", "no speech recognized", nil)
	}
	return words, nil
}

// Split replaces the project's candidate sentences.
func (u Usecase) Split(ctx context.Context, id string) ([]string, error) {
	if err := u.requireStore(); err != nil {
		return nil, err
	}
	p, err := u.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cands, err := u.SplitText(ctx, types.RawText(p.Words), u.s.SplitMode)
	if err != nil {
		return nil, err
	}
	if err := u.d.Store.SaveCandidates(ctx, id, cands); err != nil {
		return nil, err
	}
	u.d.Logger.Info("split", "project", id, "mode", u.s.SplitMode, "candidates", len(cands))
	return cands, nil
}

// SplitText cuts raw text into candidates using the given mode. An empty
// mode uses the configured one.
func (u Usecase) SplitText(ctx context.Context, raw, mode string) ([]string, error) {
	return u.splitWith(ctx, raw, mode, u.d.LLM)
}

func (u Usecase) splitWith(ctx context.Context, raw, mode string, gen ports.TextGenerator) ([]string, error) {
	if mode == "" {
		mode = u.s.SplitMode
	}
	switch mode {
	case SplitDeterministic:
		cands := splitter.Split(raw, u.s.Split)
		if len(cands) == 0 {
			return nil, faults.Precondition("split", "raw text is empty")
		}
		return cands, nil
	case SplitGenerative:
		return splitter.NewGenerative(gen, splitter.WithDelimiter(u.s.Delimiter)).Split(ctx, raw)
	default:
		return nil, faults.Precondition("split", "unknown mode %q", mode)
	}
}

// AlignReport is what one alignment pass achieved.
type AlignReport struct {
	ProjectID  string
	Candidates int
	Result     align.Result
}

// Align matches the project's candidates to its words and stores the
// sentences together with the drop report. Projects without candidates are
// split first.
func (u Usecase) Align(ctx context.Context, id string) (AlignReport, error) {
	return u.alignWith(ctx, id, u.d.LLM)
}

func (u Usecase) alignWith(ctx context.Context, id string, gen ports.TextGenerator) (AlignReport, error) {
	if err := u.requireStore(); err != nil {
		return AlignReport{}, err
	}
	p, err := u.d.Store.Get(ctx, id)
	if err != nil {
		return AlignReport{}, err
	}
	cands := p.Candidates
	if len(cands) == 0 {
		if cands, err = u.splitWith(ctx, types.RawText(p.Words), "", gen); err != nil {
			return AlignReport{}, err
		}
		if err := u.d.Store.SaveCandidates(ctx, id, cands); err != nil {
			return AlignReport{}, err
		}
	}
	res, err := align.Align(p.Words, cands, align.Options{Tolerance: u.s.Tolerance})
	if err != nil {
		return AlignReport{}, err
	}
	if err := u.d.Store.SaveSentences(ctx, id, res.Sentences, res.Dropped); err != nil {
		return AlignReport{}, err
	}
	if !res.Complete() {
		u.d.Logger.Warn("alignment incomplete",
			"project", id,
			"aligned", len(res.Sentences),
			"dropped", len(res.Dropped),
			"unconsumed_words", res.Unconsumed)
	} else {
		u.d.Logger.Info("aligned", "project", id, "sentences", len(res.Sentences))
	}
	return AlignReport{ProjectID: id, Candidates: len(cands), Result: res}, nil
}

// AlignWords is the storage-free variant used by the queue worker.
func (u Usecase) AlignWords(ctx context.Context, words []types.TimedWord, candidates []string, text, mode string) (align.Result, error) {
	if len(words) == 0 {
		return align.Result{}, align.ErrNoWords
	}
	if len(candidates) == 0 {
		if strings.TrimSpace(text) == "" {
			text = types.RawText(words)
		}
		var err error
		if candidates, err = u.SplitText(ctx, text, mode); err != nil {
			return align.Result{}, err
		}
	}
	return align.Align(words, candidates, align.Options{Tolerance: u.s.Tolerance})
}

func (u Usecase) Project(ctx context.Context, id string) (types.Project, error) {
	if err := u.requireStore(); err != nil {
		return types.Project{}, err
	}
	return u.d.Store.Get(ctx, id)
}

func (u Usecase) Projects(ctx context.Context) ([]types.Project, error) {
	if err := u.requireStore(); err != nil {
		return nil, err
	}
	return u.d.Store.List(ctx)
}

func (u Usecase) requireStore() error {
	if u.d.Store == nil {
		return faults.Precondition("usecase", "no project store configured")
	}
	return nil
}
