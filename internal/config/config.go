package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/subalign/internal/faults"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds the directories subalign writes to.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	OutDir   string `toml:"out_dir"`
	CacheDir string `toml:"cache_dir"`
}

// Tools locates the external binaries.
type Tools struct {
	FFmpeg       string `toml:"ffmpeg"`
	FFprobe      string `toml:"ffprobe"`
	WhisperBin   string `toml:"whisper_bin"`
	WhisperModel string `toml:"whisper_model"`
	Language     string `toml:"language"`
}

// LLM selects and configures the text generation provider.
type LLM struct {
	Provider          string   `toml:"provider"`
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Model             string   `toml:"model"`
	AllowedHosts      []string `toml:"allowed_hosts"`
	Referer           string   `toml:"referer"`
	Title             string   `toml:"title"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	RetryAttempts     int      `toml:"retry_attempts"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	MaxConcurrent     int      `toml:"max_concurrent"`
}

// Split configures candidate sentence generation.
type Split struct {
	Mode      string `toml:"mode"`
	MinChars  int    `toml:"min_chars"`
	MaxChars  int    `toml:"max_chars"`
	Delimiter string `toml:"delimiter"`
}

// Align configures the word-to-sentence aligner.
type Align struct {
	Tolerance int `toml:"tolerance"`
}

// Render configures burn-in output.
type Render struct {
	Karaoke      bool `toml:"karaoke"`
	MuteExcluded bool `toml:"mute_excluded"`
}

// Queue configures the RabbitMQ worker.
type Queue struct {
	AMQPURL      string `toml:"amqp_url"`
	CommandQueue string `toml:"command_queue"`
	ResultQueue  string `toml:"result_queue"`
	Prefetch     int    `toml:"prefetch"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full subalign configuration.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Tools   Tools   `toml:"tools"`
	LLM     LLM     `toml:"llm"`
	Split   Split   `toml:"split"`
	Align   Align   `toml:"align"`
	Render  Render  `toml:"render"`
	Queue   Queue   `toml:"queue"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file
// yields the defaults. The second return value is the path that was
// resolved, the third whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, faults.Wrap(faults.ErrConfig, "open config", "", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, faults.Wrap(faults.ErrConfig, "parse config", "unknown keys in "+resolvedPath+"\n"+strict.String(), nil)
			}
			return nil, "", false, faults.Wrap(faults.ErrConfig, "parse config", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, faults.Wrap(faults.ErrConfig, "", "", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, faults.Wrap(faults.ErrConfig, "", "", err)
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, output and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutDir, c.Paths.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite project store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "projects.db")
}

// WorkerLockPath guards against two workers sharing one data directory.
func (c *Config) WorkerLockPath() string {
	return filepath.Join(c.Paths.DataDir, "worker.lock")
}

// Encode renders the config as TOML. The API key is masked.
func (c *Config) Encode() (string, error) {
	masked := *c
	if masked.LLM.APIKey != "" {
		masked.LLM.APIKey = "********"
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(masked); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the sample configuration file. An existing file is
// only replaced when overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return faults.Wrap(faults.ErrPrecondition, "config init", fmt.Sprintf("%s already exists (use --overwrite to replace it)", path), nil)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
