package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/docqa/internal/docqa/store"
	"github.com/kart-io/docqa/internal/model"
	"github.com/kart-io/docqa/pkg/llm"
)

// RetrieverConfig 定义检索器配置。
type RetrieverConfig struct {
	// TopK 向量搜索返回的候选数。
	TopK int
	// RelevanceThreshold 相关性阈值，低于阈值的候选被过滤。
	RelevanceThreshold float64
	// FallbackTopK 全部候选低于阈值时兜底保留的条数。
	FallbackTopK int
}

// Retriever 负责将查询嵌入为向量并从存储中检索相关文档块。
type Retriever struct {
	manager       *store.Manager
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
}

// NewRetriever 创建检索器。
func NewRetriever(manager *store.Manager, embedProvider llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{
		manager:       manager,
		embedProvider: embedProvider,
		config:        config,
	}
}

// Retrieve 检索与查询相关的文档块。
//
// 先取相似度最高的 TopK 条候选，保留分数不低于阈值的条目；
// 若全部低于阈值，则退而保留原始排序的前 FallbackTopK 条，
// 保证有索引数据时检索结果永不为空。
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]*model.Chunk, error) {
	embedding, err := r.embedProvider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var results []*store.SearchResult
	err = r.manager.View(ctx, func(s store.VectorStore) error {
		var serr error
		results, serr = s.Search(ctx, embedding, r.config.TopK)
		return serr
	})
	if err != nil {
		return nil, fmt.Errorf("search vector store: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	relevant := make([]*store.SearchResult, 0, len(results))
	for _, res := range results {
		if res.Score >= r.config.RelevanceThreshold {
			relevant = append(relevant, res)
		}
	}

	if len(relevant) == 0 {
		// 兜底：保留原始排序的前几条，避免空上下文
		n := r.config.FallbackTopK
		if n > len(results) {
			n = len(results)
		}
		relevant = results[:n]
		logger.Warnw("no chunks above relevance threshold, falling back to top results",
			"threshold", r.config.RelevanceThreshold,
			"fallback", len(relevant))
	}

	chunks := make([]*model.Chunk, 0, len(relevant))
	for _, res := range relevant {
		chunks = append(chunks, &model.Chunk{
			ID:          res.ID,
			Content:     res.Content,
			StartOffset: res.StartOffset,
			Source:      res.Source,
			Page:        res.Page,
			Score:       res.Score,
		})
	}
	return chunks, nil
}
