package biz

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/docqa/internal/docqa/store"
	"github.com/kart-io/docqa/internal/model"
	"github.com/kart-io/docqa/pkg/llm"
)

// 固定的用户可见回退文案，与响应对象一并返回而非抛出错误。
const (
	// GenerationFailedMessage 生成调用失败时返回的固定文案。
	GenerationFailedMessage = "An error occurred while generating the response."
	// EmptyModelResponseMessage 模型返回空内容时的固定文案。
	EmptyModelResponseMessage = "No response from the model."
	// ClarificationMessage 意图无法识别时请求用户澄清的固定文案。
	ClarificationMessage = "I'm sorry, I couldn't determine the type of your message. " +
		"Please rephrase or ask your document-related question again."
)

// defaultSessionID 未携带会话 ID 的请求共享的会话。
const defaultSessionID = "default"

// Service 定义文档问答服务接口。
type Service interface {
	// Infer 检索增强问答：检索相关文档块并组装提示词后生成回答。
	Infer(ctx context.Context, req *model.InferenceRequest) (*model.InferenceResponse, error)

	// DirectInfer 直接问答：跳过检索，原样把问题交给模型。
	DirectInfer(ctx context.Context, req *model.InferenceRequest) (*model.InferenceResponse, error)

	// Chat 路由式对话：按意图分类结果分发到闲聊或文档问答分支。
	Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error)

	// Ingest 执行一次文档摄取。
	Ingest(ctx context.Context) (*model.IngestionOutcome, error)

	// Stats 返回索引与数据目录的统计信息。
	Stats(ctx context.Context) (*model.StatsResponse, error)
}

// ServiceConfig 定义服务级配置。
type ServiceConfig struct {
	// DataDir 原始文档目录。
	DataDir string
	// HistoryLimit 每个会话保留的最大历史轮数。
	HistoryLimit int
	// DefaultSampling 请求未覆盖时使用的采样参数。
	DefaultSampling llm.SamplingParams
}

// DocQAService 组合摄取、检索、提示词组装与意图分类，实现 Service。
type DocQAService struct {
	ingestor     *Ingestor
	retriever    *Retriever
	assembler    *PromptAssembler
	classifier   Classifier
	chatProvider llm.ChatProvider
	manager      *store.Manager
	cache        *AnswerCache
	config       *ServiceConfig

	sessionsMu sync.Mutex
	sessions   map[string]*Conversation
}

// NewDocQAService 创建文档问答服务。cache 可为 nil 表示禁用回答缓存。
func NewDocQAService(
	ingestor *Ingestor,
	retriever *Retriever,
	assembler *PromptAssembler,
	classifier Classifier,
	chatProvider llm.ChatProvider,
	manager *store.Manager,
	cache *AnswerCache,
	config *ServiceConfig,
) *DocQAService {
	return &DocQAService{
		ingestor:     ingestor,
		retriever:    retriever,
		assembler:    assembler,
		classifier:   classifier,
		chatProvider: chatProvider,
		manager:      manager,
		cache:        cache,
		config:       config,
		sessions:     make(map[string]*Conversation),
	}
}

// session 返回会话历史，按需创建。
func (s *DocQAService) session(id string) *Conversation {
	if id == "" {
		id = defaultSessionID
	}
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	conv, ok := s.sessions[id]
	if !ok {
		conv = NewConversation(s.config.HistoryLimit)
		s.sessions[id] = conv
	}
	return conv
}

// generate 执行一次生成调用并把失败归一化为固定文案。
// 返回值 cacheable 表示回答是真实生成结果，可以写入缓存。
func (s *DocQAService) generate(ctx context.Context, prompt string, params llm.SamplingParams) (answer string, cacheable bool) {
	resp, err := s.chatProvider.Generate(ctx, prompt, "", params)
	if err != nil {
		logger.Errorw("generation call failed", "error", err.Error())
		return GenerationFailedMessage, false
	}
	if strings.TrimSpace(resp.Content) == "" {
		return EmptyModelResponseMessage, false
	}
	return resp.Content, true
}

// Infer 检索增强问答。
//
// 检索失败不会中断请求：记录日志后以空上下文继续，提示词组装器
// 会退化为通用知识提示词。生成阶段的任何失败都被转换为固定文案，
// 调用方始终拿到结构完整的响应对象。
func (s *DocQAService) Infer(ctx context.Context, req *model.InferenceRequest) (*model.InferenceResponse, error) {
	params := req.ResolveSampling(s.config.DefaultSampling)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, req.Query, req.History); err != nil {
			logger.Warnw("answer cache lookup failed", "error", err.Error())
		} else if cached != nil {
			return cached, nil
		}
	}

	chunks, err := s.retriever.Retrieve(ctx, req.Query)
	if err != nil {
		logger.Warnw("retrieval failed, answering without context", "error", err.Error())
		chunks = nil
	}

	prompt := s.assembler.Assemble(req.Query, req.History, chunks)
	answer, cacheable := s.generate(ctx, prompt, params)

	resp := &model.InferenceResponse{Response: answer}
	if cacheable && s.cache != nil {
		s.cache.Set(ctx, req.Query, req.History, resp)
	}
	return resp, nil
}

// DirectInfer 直接问答，问题原样作为提示词。
// 生成失败向上返回错误，由传输层包装为标准错误响应。
func (s *DocQAService) DirectInfer(ctx context.Context, req *model.InferenceRequest) (*model.InferenceResponse, error) {
	params := req.ResolveSampling(s.config.DefaultSampling)

	resp, err := s.chatProvider.Generate(ctx, req.Query, "", params)
	if err != nil {
		return nil, err
	}
	answer := resp.Content
	if strings.TrimSpace(answer) == "" {
		answer = EmptyModelResponseMessage
	}
	return &model.InferenceResponse{Response: answer}, nil
}

// Chat 路由式对话。
//
// 意图分类失败或结果无法识别时，直接返回澄清文案，
// 不再发起第二次生成调用。
func (s *DocQAService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	conv := s.session(req.SessionID)
	history := conv.RenderHistory()

	intent, err := s.classifier.Classify(ctx, req.Message)
	if err != nil {
		logger.Warnw("intent classification failed", "error", err.Error())
		intent = model.IntentUnknown
	}

	var answer string
	switch intent {
	case model.IntentConversation:
		prompt := BuildConversationPrompt(history, req.Message)
		answer, _ = s.generate(ctx, prompt, s.config.DefaultSampling)

	case model.IntentDocument:
		resp, ierr := s.Infer(ctx, &model.InferenceRequest{Query: req.Message, History: history})
		if ierr != nil {
			return nil, ierr
		}
		answer = resp.Response

	default:
		answer = ClarificationMessage
	}

	conv.Append(req.Message, answer)
	return &model.ChatResponse{Response: answer, Intent: intent}, nil
}

// Ingest 执行一次文档摄取。
func (s *DocQAService) Ingest(ctx context.Context) (*model.IngestionOutcome, error) {
	return s.ingestor.Run(ctx)
}

// Stats 返回索引向量数与数据目录中待处理、已消费文件数。
func (s *DocQAService) Stats(ctx context.Context) (*model.StatsResponse, error) {
	var indexed int64
	err := s.manager.View(ctx, func(vs store.VectorStore) error {
		var cerr error
		indexed, cerr = vs.Count(ctx)
		return cerr
	})
	if err != nil {
		return nil, err
	}

	pending, ingested := 0, 0
	entries, err := os.ReadDir(s.config.DataDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, model.IngestedSuffix) {
			ingested++
			continue
		}
		if _, ok := model.FileTypeFromExt(strings.ToLower(filepath.Ext(name))); ok {
			pending++
		}
	}

	return &model.StatsResponse{
		IndexedVectors: int(indexed),
		PendingFiles:   pending,
		IngestedFiles:  ingested,
		VectorStore:    s.manager.Path(),
	}, nil
}
