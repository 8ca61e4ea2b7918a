package biz

import (
	"strings"

	"github.com/kart-io/docqa/internal/model"
)

// GeneralKnowledgePrompt 是没有任何可用上下文时使用的回退提示词前缀。
const GeneralKnowledgePrompt = "Answer the following question based on your general knowledge:\n\nQuestion: "

// PromptAssembler 将检索到的文档片段、对话历史与用户问题组装成最终提示词。
type PromptAssembler struct {
	template string
}

// NewPromptAssembler 创建提示词组装器。
func NewPromptAssembler(template string) *PromptAssembler {
	return &PromptAssembler{template: template}
}

// Assemble 组装提示词。
//
// 当至少有一个片段包含非空白文本时，使用模板填充上下文；
// 否则退化为通用知识提示词，不再引用任何文档内容。
func (a *PromptAssembler) Assemble(query, history string, chunks []*model.Chunk) string {
	context := renderContext(chunks)
	if context == "" {
		return GeneralKnowledgePrompt + query
	}

	prompt := a.template
	prompt = strings.ReplaceAll(prompt, "{context}", context)
	prompt = strings.ReplaceAll(prompt, "{history}", history)
	prompt = strings.ReplaceAll(prompt, "{query}", query)
	return prompt
}

// renderContext 将片段内容以空行连接。全部为空白时返回空串。
func renderContext(chunks []*model.Chunk) string {
	hasText := false
	contents := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) != "" {
			hasText = true
		}
		contents = append(contents, c.Content)
	}
	if !hasText {
		return ""
	}
	return strings.Join(contents, "\n\n")
}
