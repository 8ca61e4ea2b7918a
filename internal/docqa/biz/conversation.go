package biz

import (
	"strings"
	"sync"
	"time"

	"github.com/kart-io/docqa/internal/model"
)

// conversationPromptHeader 是闲聊分支使用的提示词模板头部。
const conversationPromptHeader = "You are a friendly, helpful AI assistant having an ongoing conversation. " +
	"Here is the conversation so far:\n\n"

// Conversation 保存单个会话的历史轮次，只保留最近 limit 轮。
type Conversation struct {
	mu    sync.Mutex
	turns []model.ConversationTurn
	limit int
}

// NewConversation 创建会话历史，limit 为保留的最大轮数。
func NewConversation(limit int) *Conversation {
	return &Conversation{limit: limit}
}

// Append 追加一轮完整的（用户、助手）交互。
func (c *Conversation) Append(user, assistant string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, model.ConversationTurn{
		User:      user,
		Assistant: assistant,
		CreatedAt: time.Now(),
	})
	if len(c.turns) > c.limit {
		c.turns = c.turns[len(c.turns)-c.limit:]
	}
}

// Len 返回当前保留的轮数。
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.turns)
}

// RenderHistory 将保留的轮次渲染为行式文本，
// 每轮两行："User: ..." 与 "Assistant: ..."。
func (c *Conversation) RenderHistory() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sb strings.Builder
	for _, t := range c.turns {
		sb.WriteString("User: ")
		sb.WriteString(t.User)
		sb.WriteString("\n")
		sb.WriteString("Assistant: ")
		sb.WriteString(t.Assistant)
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildConversationPrompt 为闲聊意图构造提示词：注入已有历史，
// 并要求模型自然地回应用户的最新消息。
func BuildConversationPrompt(history, message string) string {
	var sb strings.Builder
	sb.WriteString(conversationPromptHeader)
	sb.WriteString(history)
	sb.WriteString("\nNow, respond naturally to the user's latest message:\n\n")
	sb.WriteString(message)
	return sb.String()
}
