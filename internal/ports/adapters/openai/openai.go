// Package openai implements ports.TextGenerator over any OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/forPelevin/subalign/internal/faults"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 90 * time.Second
)

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	RetryAttempts  int
}

type Adapter struct {
	client openai.Client
	model  string
	hasKey bool
}

// New builds the client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) *Adapter {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(timeout),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.RetryAttempts > 0 {
		// The SDK counts retries, not attempts.
		opts = append(opts, option.WithMaxRetries(cfg.RetryAttempts-1))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Adapter{
		client: openai.NewClient(opts...),
		model:  model,
		hasKey: strings.TrimSpace(cfg.APIKey) != "",
	}
}

func (a *Adapter) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !a.hasKey {
		return "", faults.Wrap(faults.ErrConfig, "openai", "api key is not set (OPENAI_API_KEY)", nil)
	}
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       a.model,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
