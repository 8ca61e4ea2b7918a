package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/docqa/internal/model"
	"github.com/kart-io/docqa/pkg/llm"
)

// intentPromptPrefix 是意图分类提示词。模型只应回复单个标签。
const intentPromptPrefix = "Classify the following user message as either 'conversation' or 'document'. " +
	"Only respond with 'conversation' or 'document', nothing else.\n\nUser message: "

// Classifier 将用户消息分类为对话意图或文档意图。
type Classifier interface {
	Classify(ctx context.Context, message string) (model.Intent, error)
}

// LLMClassifier 通过一次聊天补全调用完成意图分类。
type LLMClassifier struct {
	chatProvider llm.ChatProvider
	params       llm.SamplingParams
}

// NewLLMClassifier 创建基于大模型的意图分类器。
func NewLLMClassifier(chatProvider llm.ChatProvider, params llm.SamplingParams) *LLMClassifier {
	return &LLMClassifier{
		chatProvider: chatProvider,
		params:       params,
	}
}

// Classify 对用户消息进行意图分类。
//
// 模型输出经过 trim + 小写归一化后与已知标签比对；
// 无法识别的标签返回 IntentUnknown 而非错误，由调用方决定降级策略。
func (c *LLMClassifier) Classify(ctx context.Context, message string) (model.Intent, error) {
	resp, err := c.chatProvider.Generate(ctx, intentPromptPrefix+message, "", c.params)
	if err != nil {
		return model.IntentUnknown, fmt.Errorf("classify intent: %w", err)
	}

	label := strings.ToLower(strings.TrimSpace(resp.Content))
	switch label {
	case "conversation":
		return model.IntentConversation, nil
	case "document":
		return model.IntentDocument, nil
	default:
		return model.IntentUnknown, nil
	}
}
