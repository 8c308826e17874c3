package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/subalign/internal/config"
	"github.com/forPelevin/subalign/internal/domain/splitter"
	"github.com/forPelevin/subalign/internal/domain/subtitles"
	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/logging"
	"github.com/forPelevin/subalign/internal/ports"
	"github.com/forPelevin/subalign/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/subalign/internal/ports/adapters/ollama"
	"github.com/forPelevin/subalign/internal/ports/adapters/openai"
	"github.com/forPelevin/subalign/internal/ports/adapters/openrouter"
	"github.com/forPelevin/subalign/internal/ports/adapters/sqlitestore"
	"github.com/forPelevin/subalign/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/subalign/internal/usecase"
)

// App bundles the wired use cases with the resources they hold.
type App struct {
	Usecase usecase.Usecase
	Store   *sqlitestore.Store
	Config  *config.Config
	Logger  *slog.Logger
}

// Open wires adapters from cfg and opens the project store.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	store, err := sqlitestore.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(cfg.LLM, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	uc := usecase.New(usecase.Deps{
		Video:  ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
		ASR:    whispercpp.New(cfg.Tools.WhisperBin, cfg.Tools.WhisperModel, cfg.Tools.Language),
		LLM:    gen,
		Store:  store,
		Logger: logging.NewComponentLogger(logger, "usecase"),
	}, Settings(cfg))
	return &App{Usecase: uc, Store: store, Config: cfg, Logger: logger}, nil
}

func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Settings maps the config sections onto use case tuning.
func Settings(cfg *config.Config) usecase.Settings {
	return usecase.Settings{
		SplitMode: cfg.Split.Mode,
		Split: splitter.Options{
			MinChars: cfg.Split.MinChars,
			MaxChars: cfg.Split.MaxChars,
		},
		Delimiter:         cfg.Split.Delimiter,
		Tolerance:         cfg.Align.Tolerance,
		Karaoke:           cfg.Render.Karaoke,
		MuteExcluded:      cfg.Render.MuteExcluded,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		MaxConcurrent:     cfg.LLM.MaxConcurrent,
	}
}

// NewGenerator selects the text generation adapter for the provider. A
// missing API key is reported when the generator is first called.
func NewGenerator(llm config.LLM, logger *slog.Logger) (ports.TextGenerator, error) {
	switch llm.Provider {
	case config.ProviderOpenRouter, "":
		a, err := openrouter.New(openrouter.Config{
			APIKey:         llm.APIKey,
			Model:          llm.Model,
			BaseURL:        llm.BaseURL,
			AllowedHosts:   llm.AllowedHosts,
			Referer:        llm.Referer,
			Title:          llm.Title,
			TimeoutSeconds: llm.TimeoutSeconds,
			RetryAttempts:  llm.RetryAttempts,
		}, openrouter.WithLogger(logging.NewComponentLogger(logger, "openrouter")))
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:         llm.APIKey,
			BaseURL:        llm.BaseURL,
			Model:          llm.Model,
			TimeoutSeconds: llm.TimeoutSeconds,
			RetryAttempts:  llm.RetryAttempts,
		}, nil), nil
	case config.ProviderOllama:
		return ollama.New(llm.BaseURL, llm.Model, llm.TimeoutSeconds), nil
	default:
		return nil, faults.Wrap(faults.ErrConfig, "llm", fmt.Sprintf("unknown provider %q", llm.Provider), nil)
	}
}

type Config struct {
	InputMP4      string
	Exports       []subtitles.Format
	BurnSubtitles bool
}

func (c Config) Validate() error {
	if c.InputMP4 == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.InputMP4); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	return nil
}

// Run executes the whole flow for one video and writes manifest.json into
// a fresh run directory under the configured output root. It returns the
// manifest path.
func (a *App) Run(ctx context.Context, cfg Config) (string, error) {
	logger := logging.NewComponentLogger(a.Logger, "pipeline")

	jobID := hash(cfg.InputMP4)
	cacheDir := filepath.Join(a.Config.Paths.CacheDir, "runs", jobID)
	logger.Info("preparing workspace", "cache", cacheDir)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}

	runOutDir := buildRunOutDir(a.Config.Paths.OutDir, cfg.InputMP4, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return "", err
	}
	logger.Info("output run dir", "dir", runOutDir)

	res, err := a.Usecase.Run(ctx, usecase.Input{
		InputMP4:      cfg.InputMP4,
		CacheDir:      cacheDir,
		OutDir:        runOutDir,
		Exports:       cfg.Exports,
		BurnSubtitles: cfg.BurnSubtitles,
	})
	if err != nil {
		return "", err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return "", err
	}
	logger.Info("manifest written",
		"project", res.Project.ID,
		"sentences", len(res.Manifest.Sentences),
		"dropped", len(res.Manifest.Dropped),
		"path", manifestPath)
	return manifestPath, nil
}

func buildRunOutDir(outRoot, inputMP4 string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputMP4), filepath.Ext(inputMP4))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputMP4, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.TextGenerator = (*openrouter.Adapter)(nil)
var _ ports.TextGenerator = (*openai.Adapter)(nil)
var _ ports.TextGenerator = (*ollama.Adapter)(nil)
var _ ports.ProjectStore = (*sqlitestore.Store)(nil)
