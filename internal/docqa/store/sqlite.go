package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/kart-io/docqa/internal/pkg/textutil"
	"github.com/kart-io/docqa/pkg/utils/json"
)

// SQLiteStore 基于 SQLite 的持久化向量存储。
// 向量以 JSON BLOB 存储，检索时在内存中做暴力余弦相似度计算。
// 底层数据库文件不支持并发写句柄，写入方必须独占打开。
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

var _ VectorStore = (*SQLiteStore)(nil)

// NewSQLiteStore 打开（必要时创建）指定路径的向量存储。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("向量存储路径不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}

	return s, nil
}

// initSchema 创建数据表。
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		page INTEGER NOT NULL DEFAULT 0,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path 返回存储文件路径。
func (s *SQLiteStore) Path() string {
	return s.path
}

// Upsert 批量写入文档块，单个事务提交。
func (s *SQLiteStore) Upsert(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, source, content, start_offset, page, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		embeddingJSON, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("序列化向量失败: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.Source, rec.Content, rec.StartOffset, rec.Page, embeddingJSON,
		); err != nil {
			return fmt.Errorf("写入文档块失败: %w", err)
		}
	}

	return tx.Commit()
}

// Search 暴力余弦相似度搜索，按分数降序返回至多 topK 条。
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, topK int) ([]*SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, content, start_offset, page, embedding
		FROM chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("查询文档块失败: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		var (
			r             SearchResult
			embeddingJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.Content, &r.StartOffset, &r.Page, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("扫描行失败: %w", err)
		}

		var vec []float32
		if err := json.Unmarshal(embeddingJSON, &vec); err != nil {
			continue // 跳过损坏的向量
		}

		r.Score = textutil.CosineSimilarity(embedding, vec)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Count 返回已索引的向量数。
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, err
}

// Close 关闭数据库连接。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
