package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLLM()
	c.normalizeSplit()
	c.normalizeQueue()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.OutDir, err = expandPath(c.Paths.OutDir); err != nil {
		return fmt.Errorf("paths.out_dir: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
	c.Tools.WhisperBin = strings.TrimSpace(c.Tools.WhisperBin)
	c.Tools.WhisperModel = strings.TrimSpace(c.Tools.WhisperModel)
	c.Tools.Language = strings.ToLower(strings.TrimSpace(c.Tools.Language))
	if c.Tools.Language == "" {
		c.Tools.Language = defaultLanguage
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultProvider
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)

	switch c.LLM.Provider {
	case ProviderOpenRouter:
		envFallback(&c.LLM.APIKey, "OPENROUTER_API_KEY")
		envFallback(&c.LLM.Model, "OPENROUTER_MODEL")
		envFallback(&c.LLM.BaseURL, "OPENROUTER_BASE_URL")
		if len(c.LLM.AllowedHosts) == 0 {
			if value, ok := os.LookupEnv("OPENROUTER_ALLOWED_HOSTS"); ok {
				c.LLM.AllowedHosts = splitList(value)
			}
		}
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultOpenRouterBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenRouterModel
		}
	case ProviderOpenAI:
		envFallback(&c.LLM.APIKey, "OPENAI_API_KEY")
		envFallback(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	case ProviderOllama:
		envFallback(&c.LLM.BaseURL, "OLLAMA_HOST")
	}

	hosts := c.LLM.AllowedHosts[:0]
	for _, h := range c.LLM.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	c.LLM.AllowedHosts = hosts
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = defaultRetryAttempts
	}
	if c.LLM.MaxConcurrent <= 0 {
		c.LLM.MaxConcurrent = defaultMaxConcurrent
	}
}

func (c *Config) normalizeSplit() {
	c.Split.Mode = strings.ToLower(strings.TrimSpace(c.Split.Mode))
	if c.Split.Mode == "" {
		c.Split.Mode = defaultSplitMode
	}
	if strings.TrimSpace(c.Split.Delimiter) == "" {
		c.Split.Delimiter = defaultDelimiter
	}
}

func (c *Config) normalizeQueue() {
	envFallback(&c.Queue.AMQPURL, "SUBALIGN_AMQP_URL")
	c.Queue.AMQPURL = strings.TrimSpace(c.Queue.AMQPURL)
	c.Queue.CommandQueue = strings.TrimSpace(c.Queue.CommandQueue)
	if c.Queue.CommandQueue == "" {
		c.Queue.CommandQueue = defaultCommandQueue
	}
	c.Queue.ResultQueue = strings.TrimSpace(c.Queue.ResultQueue)
	if c.Queue.ResultQueue == "" {
		c.Queue.ResultQueue = defaultResultQueue
	}
	if c.Queue.Prefetch <= 0 {
		c.Queue.Prefetch = defaultPrefetch
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func envFallback(dst *string, key string) {
	if *dst != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(value)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
