package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kart-io/docqa/pkg/llm"
)

const testAPIKey = "test-key"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected BaseURL https://api.openai.com/v1, got %s", cfg.BaseURL)
	}
	if cfg.EmbedModel != "text-embedding-3-large" {
		t.Errorf("expected EmbedModel text-embedding-3-large, got %s", cfg.EmbedModel)
	}
	if cfg.ChatModel != "gpt-3.5-turbo" {
		t.Errorf("expected ChatModel gpt-3.5-turbo, got %s", cfg.ChatModel)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("expected Timeout 120s, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", cfg.MaxRetries)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		config    map[string]any
		wantError bool
	}{
		{
			name: "valid config",
			config: map[string]any{
				"api_key": testAPIKey,
			},
			wantError: false,
		},
		{
			name: "custom config",
			config: map[string]any{
				"api_key":      testAPIKey,
				"base_url":     "https://api.openai.com/v1",
				"embed_model":  "text-embedding-3-large",
				"chat_model":   "gpt-4o",
				"organization": "org-123",
			},
			wantError: false,
		},
		{
			name:      "missing api_key",
			config:    map[string]any{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)
			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if provider == nil {
					t.Error("expected provider, got nil")
				}
				if provider != nil && provider.Name() != ProviderName {
					t.Errorf("expected provider name %s, got %s", ProviderName, provider.Name())
				}
			}
		})
	}
}

func TestProviderEmbed(t *testing.T) {
	// 创建模拟服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected path /embeddings, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer "+testAPIKey {
			t.Errorf("unexpected Authorization header: %s", auth)
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		resp := map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "embedding": []float32{0.1, 0.2}, "index": 1},
				{"object": "embedding", "embedding": []float32{0.3, 0.4}, "index": 0},
			},
			"model": req.Model,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewProviderWithConfig(&Config{
		BaseURL:    server.URL,
		APIKey:     testAPIKey,
		EmbedModel: "text-embedding-3-large",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})

	embeddings, err := provider.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}

	// 响应乱序返回，结果必须按 index 重排
	if embeddings[0][0] != 0.3 {
		t.Errorf("expected embeddings[0][0]=0.3, got %v", embeddings[0][0])
	}
	if embeddings[1][0] != 0.1 {
		t.Errorf("expected embeddings[1][0]=0.1, got %v", embeddings[1][0])
	}
}

func TestProviderGenerateSendsSamplingParams(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		resp := map[string]any{
			"id": "chatcmpl-1",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "grounded answer"}, "finish_reason": "stop"},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewProviderWithConfig(&Config{
		BaseURL:    server.URL,
		APIKey:     testAPIKey,
		ChatModel:  "gpt-3.5-turbo",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})

	resp, err := provider.Generate(context.Background(), "what is in the document?", "", llm.DefaultSamplingParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != "grounded answer" {
		t.Errorf("expected 'grounded answer', got '%s'", resp.Content)
	}
	if resp.TokenUsage == nil || resp.TokenUsage.TotalTokens != 17 {
		t.Errorf("expected TotalTokens 17, got %+v", resp.TokenUsage)
	}

	// 零值采样参数也必须显式出现在请求体里
	if _, ok := captured["temperature"]; !ok {
		t.Error("temperature missing from request body")
	}
	if captured["temperature"].(float64) != 0.0 {
		t.Errorf("expected temperature 0.0, got %v", captured["temperature"])
	}
	if captured["max_tokens"].(float64) != 750 {
		t.Errorf("expected max_tokens 750, got %v", captured["max_tokens"])
	}
	if captured["top_p"].(float64) != 1.0 {
		t.Errorf("expected top_p 1.0, got %v", captured["top_p"])
	}
	if _, ok := captured["frequency_penalty"]; !ok {
		t.Error("frequency_penalty missing from request body")
	}
	if _, ok := captured["presence_penalty"]; !ok {
		t.Error("presence_penalty missing from request body")
	}
}

func TestProviderChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id": "chatcmpl-2",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "conversation"}, "finish_reason": "stop"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewProviderWithConfig(&Config{
		BaseURL:    server.URL,
		APIKey:     testAPIKey,
		ChatModel:  "gpt-3.5-turbo",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})

	params := llm.DefaultSamplingParams()
	got, err := provider.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "Classify the following user message"},
	}, params)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got != "conversation" {
		t.Errorf("expected 'conversation', got '%s'", got)
	}
}

func TestProviderChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "chatcmpl-3", "choices": []any{}})
	}))
	defer server.Close()

	provider := NewProviderWithConfig(&Config{
		BaseURL:    server.URL,
		APIKey:     testAPIKey,
		ChatModel:  "gpt-3.5-turbo",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})

	_, err := provider.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.DefaultSamplingParams())
	if err == nil {
		t.Error("expected error for empty choices")
	}
}
