// Package store 提供文档块向量的持久化存储。
package store

import (
	"context"
)

// Record 表示待入库的文档块及其嵌入向量。
type Record struct {
	// ID 文档块 ID。
	ID string
	// Source 来源文件路径。
	Source string
	// Content 文档块内容。
	Content string
	// StartOffset 在原文中的起始偏移（Unicode 字符数）。
	StartOffset int
	// Page 页码（无分页格式为 0）。
	Page int
	// Embedding 嵌入向量。
	Embedding []float32
}

// SearchResult 表示检索结果。
type SearchResult struct {
	// ID 文档块 ID。
	ID string
	// Source 来源文件路径。
	Source string
	// Content 文档块内容。
	Content string
	// StartOffset 在原文中的起始偏移。
	StartOffset int
	// Page 页码。
	Page int
	// Score 相似度分数。
	Score float64
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// Upsert 批量写入文档块，已存在的 ID 被覆盖。
	Upsert(ctx context.Context, records []*Record) error

	// Search 向量相似度搜索，按分数降序返回至多 topK 条结果。
	Search(ctx context.Context, embedding []float32, topK int) ([]*SearchResult, error)

	// Count 返回已索引的向量数。
	Count(ctx context.Context) (int64, error)

	// Close 关闭存储句柄。
	Close() error
}
