// Package ollama implements ports.TextGenerator over a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forPelevin/subalign/internal/faults"
)

const (
	DefaultHost    = "http://127.0.0.1:11434"
	defaultModel   = "llama3.1"
	defaultTimeout = 5 * time.Minute
)

type Adapter struct {
	host   string
	model  string
	client *http.Client
}

func New(host, model string, timeoutSeconds int) *Adapter {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultHost
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	timeout := defaultTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Adapter{host: host, model: model, client: &http.Client{Timeout: timeout}}
}

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (a *Adapter) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   a.model,
		System:  systemPrompt,
		Prompt:  userPrompt,
		Options: map[string]any{"temperature": 0, "num_ctx": 8192},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request (model=%s): %w", a.model, err)
	}
	defer resp.Body.Close()
	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", faults.Wrap(faults.ErrConfig, "ollama", fmt.Sprintf("model %q not found: %s", a.model, strings.TrimSpace(string(rb))), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}
	var out generateResponse
	if err := json.Unmarshal(rb, &out); err != nil {
		return "", fmt.Errorf("ollama decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Response, nil
}
