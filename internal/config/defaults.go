package config

const (
	defaultConfigPath   = "~/.config/subalign/config.toml"
	projectConfigName   = "subalign.toml"
	defaultDataDir      = "~/.local/share/subalign"
	defaultOutDir       = "out"
	defaultCacheDir     = ".cache"
	defaultFFmpeg       = "ffmpeg"
	defaultFFprobe      = "ffprobe"
	defaultWhisperBin   = ".cache/bin/whisper.cpp"
	defaultWhisperModel = ".cache/models/ggml-base.bin"
	defaultLanguage     = "auto"

	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"

	SplitDeterministic = "deterministic"
	SplitGenerative    = "generative"

	defaultProvider          = ProviderOpenRouter
	defaultOpenRouterBaseURL = "https://openrouter.ai"
	defaultOpenRouterModel   = "z-ai/glm-4.5-air:free"
	defaultReferer           = "https://github.com/forPelevin/subalign"
	defaultTitle             = "subalign"
	defaultTimeoutSeconds    = 90
	defaultRetryAttempts     = 1
	defaultRequestsPerMinute = 30
	defaultMaxConcurrent     = 4

	defaultSplitMode = SplitDeterministic
	defaultMinChars  = 8
	defaultMaxChars  = 42
	defaultDelimiter = "||"
	defaultTolerance = 10

	defaultCommandQueue = "subalign.align"
	defaultResultQueue  = "subalign.results"
	defaultPrefetch     = 1

	defaultLogLevel  = "info"
	defaultLogFormat = "auto"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			OutDir:   defaultOutDir,
			CacheDir: defaultCacheDir,
		},
		Tools: Tools{
			FFmpeg:       defaultFFmpeg,
			FFprobe:      defaultFFprobe,
			WhisperBin:   defaultWhisperBin,
			WhisperModel: defaultWhisperModel,
			Language:     defaultLanguage,
		},
		LLM: LLM{
			Provider:          defaultProvider,
			Referer:           defaultReferer,
			Title:             defaultTitle,
			TimeoutSeconds:    defaultTimeoutSeconds,
			RetryAttempts:     defaultRetryAttempts,
			RequestsPerMinute: defaultRequestsPerMinute,
			MaxConcurrent:     defaultMaxConcurrent,
		},
		Split: Split{
			Mode:      defaultSplitMode,
			MinChars:  defaultMinChars,
			MaxChars:  defaultMaxChars,
			Delimiter: defaultDelimiter,
		},
		Align: Align{
			Tolerance: defaultTolerance,
		},
		Render: Render{
			Karaoke:      true,
			MuteExcluded: false,
		},
		Queue: Queue{
			CommandQueue: defaultCommandQueue,
			ResultQueue:  defaultResultQueue,
			Prefetch:     defaultPrefetch,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
