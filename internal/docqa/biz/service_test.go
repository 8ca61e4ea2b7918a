package biz

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docqa/internal/docqa/store"
	"github.com/kart-io/docqa/internal/model"
	"github.com/kart-io/docqa/pkg/llm"
	"github.com/kart-io/docqa/pkg/options/docqa"
)

// === Mock 实现 ===

// mockEmbeddingProvider 模拟嵌入提供者，对每段文本返回固定向量。
type mockEmbeddingProvider struct {
	embedding []float32
	err       error
}

func (m *mockEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.embedding, nil
}

func (m *mockEmbeddingProvider) Name() string {
	return "mock-embedding"
}

var _ llm.EmbeddingProvider = (*mockEmbeddingProvider)(nil)

// mockChatProvider 模拟聊天提供者，记录收到的提示词与采样参数。
type mockChatProvider struct {
	response string
	err      error

	prompts []string
	params  []llm.SamplingParams
}

func (m *mockChatProvider) Chat(ctx context.Context, messages []llm.Message, params llm.SamplingParams) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockChatProvider) Generate(ctx context.Context, prompt, systemPrompt string, params llm.SamplingParams) (*llm.GenerateResponse, error) {
	m.prompts = append(m.prompts, prompt)
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	return &llm.GenerateResponse{Content: m.response}, nil
}

func (m *mockChatProvider) Name() string {
	return "mock-chat"
}

var _ llm.ChatProvider = (*mockChatProvider)(nil)

// mockClassifier 模拟意图分类器，返回预设结果。
type mockClassifier struct {
	intent model.Intent
	err    error
}

func (m *mockClassifier) Classify(ctx context.Context, message string) (model.Intent, error) {
	return m.intent, m.err
}

var _ Classifier = (*mockClassifier)(nil)

// === 测试辅助 ===

// newTestService 构造接入临时空向量库的服务实例。
func newTestService(t *testing.T, classifier Classifier, chat *mockChatProvider) *DocQAService {
	t.Helper()

	dir := t.TempDir()
	manager := store.NewManager(filepath.Join(dir, "chunks.db"))
	t.Cleanup(func() { _ = manager.Close() })

	embed := &mockEmbeddingProvider{embedding: []float32{1, 0}}
	retriever := NewRetriever(manager, embed, &RetrieverConfig{
		TopK:               5,
		RelevanceThreshold: 0.6,
		FallbackTopK:       2,
	})
	ingestor := NewIngestor(manager, embed, &IngestorConfig{
		DataDir:      filepath.Join(dir, "raw"),
		ChunkSize:    500,
		ChunkOverlap: 200,
	})
	assembler := NewPromptAssembler(docqa.DefaultPromptTemplate)

	return NewDocQAService(ingestor, retriever, assembler, classifier, chat, manager, nil, &ServiceConfig{
		DataDir:         filepath.Join(dir, "raw"),
		HistoryLimit:    10,
		DefaultSampling: llm.DefaultSamplingParams(),
	})
}

// === 测试用例 ===

// TestDocQAService_Chat_RoutesConversation 测试闲聊意图走对话分支并注入历史。
func TestDocQAService_Chat_RoutesConversation(t *testing.T) {
	chat := &mockChatProvider{response: "hello there"}
	svc := newTestService(t, &mockClassifier{intent: model.IntentConversation}, chat)

	first, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, model.IntentConversation, first.Intent)
	assert.Equal(t, "hello there", first.Response)

	second, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "how are you"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", second.Response)

	// 第二轮的提示词应包含第一轮的历史
	require.Len(t, chat.prompts, 2)
	assert.True(t, strings.HasPrefix(chat.prompts[0], conversationPromptHeader))
	assert.Contains(t, chat.prompts[1], "User: hi\nAssistant: hello there\n")
	assert.Contains(t, chat.prompts[1], "respond naturally to the user's latest message")
}

// TestDocQAService_Chat_RoutesDocument 测试文档意图走检索增强分支。
func TestDocQAService_Chat_RoutesDocument(t *testing.T) {
	chat := &mockChatProvider{response: "documented answer"}
	svc := newTestService(t, &mockClassifier{intent: model.IntentDocument}, chat)

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "what does the report say"})
	require.NoError(t, err)
	assert.Equal(t, model.IntentDocument, resp.Intent)
	assert.Equal(t, "documented answer", resp.Response)

	// 向量库为空，提示词应退化为通用知识提示词
	require.Len(t, chat.prompts, 1)
	assert.Equal(t, GeneralKnowledgePrompt+"what does the report say", chat.prompts[0])
}

// TestDocQAService_Chat_UnknownIntent 测试未知意图直接返回澄清文案，不再调用模型。
func TestDocQAService_Chat_UnknownIntent(t *testing.T) {
	chat := &mockChatProvider{response: "should not be used"}
	svc := newTestService(t, &mockClassifier{intent: model.IntentUnknown}, chat)

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "???"})
	require.NoError(t, err)
	assert.Equal(t, model.IntentUnknown, resp.Intent)
	assert.Equal(t, ClarificationMessage, resp.Response)
	assert.Empty(t, chat.prompts)
}

// TestDocQAService_Chat_ClassifierError 测试分类失败降级为澄清文案。
func TestDocQAService_Chat_ClassifierError(t *testing.T) {
	chat := &mockChatProvider{response: "should not be used"}
	svc := newTestService(t, &mockClassifier{err: errors.New("provider down")}, chat)

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, model.IntentUnknown, resp.Intent)
	assert.Equal(t, ClarificationMessage, resp.Response)
	assert.Empty(t, chat.prompts)
}

// TestDocQAService_Infer_GenerationFailure 测试生成失败转换为固定文案而非错误。
func TestDocQAService_Infer_GenerationFailure(t *testing.T) {
	chat := &mockChatProvider{err: errors.New("upstream 500")}
	svc := newTestService(t, &mockClassifier{}, chat)

	resp, err := svc.Infer(context.Background(), &model.InferenceRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, GenerationFailedMessage, resp.Response)
}

// TestDocQAService_Infer_EmptyModelResponse 测试空白回复转换为固定文案。
func TestDocQAService_Infer_EmptyModelResponse(t *testing.T) {
	chat := &mockChatProvider{response: "   \n"}
	svc := newTestService(t, &mockClassifier{}, chat)

	resp, err := svc.Infer(context.Background(), &model.InferenceRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, EmptyModelResponseMessage, resp.Response)
}

// TestDocQAService_Infer_SamplingOverride 测试请求级采样参数覆盖默认值。
func TestDocQAService_Infer_SamplingOverride(t *testing.T) {
	chat := &mockChatProvider{response: "ok"}
	svc := newTestService(t, &mockClassifier{}, chat)

	temp := 0.9
	maxTokens := 100
	_, err := svc.Infer(context.Background(), &model.InferenceRequest{
		Query: "q",
		AIModelParameters: &model.AIModelParameters{
			Temperature: &temp,
			MaxTokens:   &maxTokens,
		},
	})
	require.NoError(t, err)

	require.Len(t, chat.params, 1)
	assert.Equal(t, 0.9, chat.params[0].Temperature)
	assert.Equal(t, 100, chat.params[0].MaxTokens)
	// 未覆盖的字段保持默认值
	assert.Equal(t, 1.0, chat.params[0].TopP)
}

// TestDocQAService_DirectInfer 测试直接问答原样透传问题，错误向上返回。
func TestDocQAService_DirectInfer(t *testing.T) {
	chat := &mockChatProvider{response: "direct answer"}
	svc := newTestService(t, &mockClassifier{}, chat)

	resp, err := svc.DirectInfer(context.Background(), &model.InferenceRequest{Query: "raw question"})
	require.NoError(t, err)
	assert.Equal(t, "direct answer", resp.Response)
	require.Len(t, chat.prompts, 1)
	assert.Equal(t, "raw question", chat.prompts[0])

	failing := &mockChatProvider{err: errors.New("upstream 500")}
	svc2 := newTestService(t, &mockClassifier{}, failing)
	_, err = svc2.DirectInfer(context.Background(), &model.InferenceRequest{Query: "q"})
	require.Error(t, err)
}

// TestDocQAService_Stats 测试空库的统计信息。
func TestDocQAService_Stats(t *testing.T) {
	svc := newTestService(t, &mockClassifier{}, &mockChatProvider{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.IndexedVectors)
	assert.Equal(t, 0, stats.PendingFiles)
	assert.Equal(t, 0, stats.IngestedFiles)
	assert.NotEmpty(t, stats.VectorStore)
}
