package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forPelevin/subalign/internal/faults"
)

func TestGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Model != "test-model" || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected request: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"one || two"}}]}`))
	}))
	defer srv.Close()

	a := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "test-model", RetryAttempts: 1}, srv.Client())
	got, err := a.GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "one || two" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestGenerateText_MissingKey(t *testing.T) {
	a := New(Config{}, nil)
	if _, err := a.GenerateText(context.Background(), "s", "u"); !errors.Is(err, faults.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
