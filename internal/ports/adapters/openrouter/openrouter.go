package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/subalign/internal/faults"
)

const (
	defaultModel          = "anthropic/claude-3.5-sonnet"
	defaultTimeout        = 90 * time.Second
	defaultRetryAttempts  = 1
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	completionsPath       = "/api/v1/chat/completions"
)

type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	AllowedHosts   []string
	Referer        string
	Title          string
	TimeoutSeconds int
	RetryAttempts  int
}

type Adapter struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	retryBase time.Duration
	retryMax  time.Duration
	sleeper   func(context.Context, time.Duration) error
}

type Option func(*Adapter)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(a *Adapter) {
		a.retryBase = base
		a.retryMax = ceiling
	}
}

// New validates the base URL against the allow-list before building the
// adapter.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	base, err := ResolveEndpoint(cfg.BaseURL, cfg.AllowedHosts)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfig, "openrouter", "", err)
	}
	cfg.BaseURL = base
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	a := &Adapter{
		cfg:       cfg,
		client:    &http.Client{Timeout: timeout},
		logger:    slog.New(slog.DiscardHandler),
		retryBase: defaultRetryBaseDelay,
		retryMax:  defaultRetryMaxDelay,
		sleeper:   sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type statusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openrouter status %d: %s", e.StatusCode, e.Body)
}

var errEmptyContent = errors.New("openrouter: empty content")

// GenerateText sends one system and one user message and returns the
// assistant content verbatim. Transient failures (408, 429, 5xx, timeouts,
// empty content) are retried with exponential backoff.
func (a *Adapter) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if a.cfg.APIKey == "" {
		return "", faults.Wrap(faults.ErrConfig, "openrouter", "api key is not set (OPENROUTER_API_KEY)", nil)
	}
	body, err := json.Marshal(chatRequest{
		Model: a.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= a.cfg.RetryAttempts; attempt++ {
		content, err := a.complete(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		delay, retry := a.retryDelay(ctx, err, attempt)
		if !retry {
			break
		}
		a.logger.Warn("openrouter request failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if err := a.sleeper(ctx, delay); err != nil {
			return "", err
		}
	}
	if errors.Is(lastErr, errEmptyContent) {
		return "", nil
	}
	return "", lastErr
}

func (a *Adapter) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if a.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", a.cfg.Referer)
	}
	if a.cfg.Title != "" {
		req.Header.Set("X-Title", a.cfg.Title)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request (model=%s): %w", a.cfg.Model, err)
	}
	defer resp.Body.Close()
	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openrouter read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &statusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(redactSecrets(strings.TrimSpace(string(rb)), a.cfg.APIKey), 400),
			RetryAfter: retryAfter,
		}
	}

	var raw chatResponse
	if err := json.Unmarshal(rb, &raw); err != nil {
		return "", fmt.Errorf("openrouter decode response: %w", err)
	}
	if raw.Error != nil {
		return "", fmt.Errorf("openrouter api error: %s", redactSecrets(raw.Error.Message, a.cfg.APIKey))
	}
	if len(raw.Choices) == 0 {
		return "", errEmptyContent
	}
	return messageContentToString(raw.Choices[0].Message.Content)
}

func (a *Adapter) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= a.cfg.RetryAttempts || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if errors.Is(err, errEmptyContent) {
		return a.backoff(attempt), true
	}
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusRequestTimeout,
			se.StatusCode == http.StatusTooManyRequests,
			se.StatusCode >= http.StatusInternalServerError:
			if se.RetryAfter > 0 {
				return min(se.RetryAfter, a.retryMax), true
			}
			return a.backoff(attempt), true
		}
		return 0, false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return a.backoff(attempt), true
	}
	return 0, false
}

// backoff doubles from the base delay per attempt, capped at the max.
func (a *Adapter) backoff(attempt int) time.Duration {
	d := a.retryBase
	for i := 1; i < attempt && d < a.retryMax; i++ {
		d *= 2
	}
	return min(d, a.retryMax)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if sec, err := strconv.Atoi(v); err == nil && sec >= 0 {
		return time.Duration(sec) * time.Second, true
	}
	if when, err := http.ParseTime(v); err == nil {
		if d := time.Until(when); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return "", errEmptyContent
		}
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errEmptyContent
		}
		return s, nil
	case nil:
		return "", errEmptyContent
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
