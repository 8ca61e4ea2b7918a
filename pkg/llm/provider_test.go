package llm

import (
	"context"
	"testing"
)

// mockProvider 模拟供应商实现，用于测试。
type mockProvider struct {
	name string
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (m *mockProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockProvider) Chat(_ context.Context, _ []Message, _ SamplingParams) (string, error) {
	return "mock response", nil
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ string, _ SamplingParams) (*GenerateResponse, error) {
	return &GenerateResponse{Content: "mock generated text"}, nil
}

func TestRegisterAndNewProvider(t *testing.T) {
	// 注册测试供应商
	RegisterProvider("test-provider", func(config map[string]any) (Provider, error) {
		name := "test-provider"
		if n, ok := config["name"].(string); ok {
			name = n
		}
		return &mockProvider{name: name}, nil
	})

	// 测试创建供应商
	provider, err := NewProvider("test-provider", map[string]any{"name": "custom-name"})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if provider.Name() != "custom-name" {
		t.Errorf("expected name 'custom-name', got '%s'", provider.Name())
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("unknown-provider", nil)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewEmbeddingProvider(t *testing.T) {
	// 注册专用 Embedding 供应商
	RegisterEmbeddingProvider("embed-only", func(config map[string]any) (EmbeddingProvider, error) {
		return &mockProvider{name: "embed-only"}, nil
	})

	provider, err := NewEmbeddingProvider("embed-only", nil)
	if err != nil {
		t.Fatalf("NewEmbeddingProvider failed: %v", err)
	}

	if provider.Name() != "embed-only" {
		t.Errorf("expected name 'embed-only', got '%s'", provider.Name())
	}

	// 测试回退到完整供应商
	provider2, err := NewEmbeddingProvider("test-provider", nil)
	if err != nil {
		t.Fatalf("NewEmbeddingProvider fallback failed: %v", err)
	}
	if provider2 == nil {
		t.Error("expected non-nil provider")
	}
}

func TestNewChatProvider(t *testing.T) {
	// 注册专用 Chat 供应商
	RegisterChatProvider("chat-only", func(config map[string]any) (ChatProvider, error) {
		return &mockProvider{name: "chat-only"}, nil
	})

	provider, err := NewChatProvider("chat-only", nil)
	if err != nil {
		t.Fatalf("NewChatProvider failed: %v", err)
	}

	if provider.Name() != "chat-only" {
		t.Errorf("expected name 'chat-only', got '%s'", provider.Name())
	}

	resp, err := provider.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, DefaultSamplingParams())
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp != "mock response" {
		t.Errorf("expected 'mock response', got '%s'", resp)
	}
}

func TestDefaultSamplingParams(t *testing.T) {
	p := DefaultSamplingParams()
	if p.Temperature != 0.0 {
		t.Errorf("expected Temperature 0.0, got %v", p.Temperature)
	}
	if p.MaxTokens != 750 {
		t.Errorf("expected MaxTokens 750, got %d", p.MaxTokens)
	}
	if p.TopP != 1.0 {
		t.Errorf("expected TopP 1.0, got %v", p.TopP)
	}
	if p.FrequencyPenalty != 0.0 {
		t.Errorf("expected FrequencyPenalty 0.0, got %v", p.FrequencyPenalty)
	}
	if p.PresencePenalty != 0.0 {
		t.Errorf("expected PresencePenalty 0.0, got %v", p.PresencePenalty)
	}
}

func TestListProviders(t *testing.T) {
	RegisterProvider("list-test", func(config map[string]any) (Provider, error) {
		return &mockProvider{name: "list-test"}, nil
	})

	names := ListProviders()
	found := false
	for _, n := range names {
		if n == "list-test" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected 'list-test' in provider list")
	}
}
