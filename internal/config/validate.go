package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Provider credentials are
// checked when a command first needs the generator, not here, so that
// offline commands work without a key.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateSplit(); err != nil {
		return err
	}
	if err := c.validateAlign(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("llm.provider must be one of openrouter, openai, ollama (got %q)", c.LLM.Provider)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requests_per_minute must be >= 0")
	}
	return nil
}

func (c *Config) validateSplit() error {
	switch c.Split.Mode {
	case SplitDeterministic, SplitGenerative:
	default:
		return fmt.Errorf("split.mode must be deterministic or generative (got %q)", c.Split.Mode)
	}
	if c.Split.MaxChars <= 0 {
		return errors.New("split.max_chars must be > 0")
	}
	if c.Split.MinChars < 0 {
		return errors.New("split.min_chars must be >= 0")
	}
	if c.Split.MinChars > c.Split.MaxChars {
		return errors.New("split.min_chars must be <= split.max_chars")
	}
	return nil
}

func (c *Config) validateAlign() error {
	if c.Align.Tolerance < 0 {
		return errors.New("align.tolerance must be >= 0")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.CommandQueue == c.Queue.ResultQueue {
		return errors.New("queue.result_queue must differ from queue.command_queue")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console or json (got %q)", c.Logging.Format)
	}
	return nil
}
