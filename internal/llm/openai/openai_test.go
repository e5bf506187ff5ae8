// internal/llm/openai/openai_test.go
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/llm"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("", "model", "")
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing for empty API key, got %v", err)
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New("test-key", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %s", p.model)
	}
}

func TestProvider_Complete(t *testing.T) {
	var got struct {
		Model          string           `json:"model"`
		Messages       []map[string]any `json:"messages"`
		ResponseFormat map[string]any   `json:"response_format"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"summary\":\"ok\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 5, "total_tokens": 25}
		}`)
	}))
	defer srv.Close()

	p, err := New("test-key", "gpt-test", srv.URL+"/v1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Complete(context.Background(), llm.Prompt{
		System: "be terse",
		User:   "review",
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Text != `{"summary":"ok"}` {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.InputTokens != 20 || resp.OutputTokens != 5 {
		t.Errorf("unexpected usage %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if got.Model != "gpt-test" {
		t.Errorf("expected model gpt-test, got %s", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0]["role"] != "system" {
		t.Errorf("expected system and user messages, got %v", got.Messages)
	}
	if got.ResponseFormat["type"] != "json_object" {
		t.Errorf("expected json_object response format, got %v", got.ResponseFormat)
	}
}

func TestProvider_CompleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p, _ := New("test-key", "gpt-test", srv.URL+"/v1")
	_, err := p.Complete(context.Background(), llm.Prompt{User: "x"})
	if !errors.Is(err, core.ErrLLMFailed) {
		t.Errorf("expected ErrLLMFailed, got %v", err)
	}
}
