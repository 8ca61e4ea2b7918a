package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"

	"github.com/kart-io/docqa/internal/docqa/loader"
	"github.com/kart-io/docqa/internal/docqa/store"
	"github.com/kart-io/docqa/internal/model"
	"github.com/kart-io/docqa/internal/pkg/textutil"
	"github.com/kart-io/docqa/pkg/llm"
)

// IngestorConfig 定义摄取器配置。
type IngestorConfig struct {
	// DataDir 原始文档目录。
	DataDir string
	// ChunkSize 分块大小（Unicode 字符数）。
	ChunkSize int
	// ChunkOverlap 相邻分块的重叠字符数。
	ChunkOverlap int
}

// Ingestor 执行一次完整的摄取流水线：
// 枚举待处理文件、加载为文本单元、分块、嵌入、批量入库，
// 最后将成功入库的源文件重命名加上已消费后缀。
type Ingestor struct {
	manager       *store.Manager
	embedProvider llm.EmbeddingProvider
	config        *IngestorConfig
}

// NewIngestor 创建摄取器。
func NewIngestor(manager *store.Manager, embedProvider llm.EmbeddingProvider, config *IngestorConfig) *Ingestor {
	return &Ingestor{
		manager:       manager,
		embedProvider: embedProvider,
		config:        config,
	}
}

// pendingFiles 枚举数据目录中待处理的源文件。
// 已带消费后缀的文件与不支持的格式被跳过，目录不存在视为无输入。
func (i *Ingestor) pendingFiles() ([]*model.SourceFile, int, error) {
	entries, err := os.ReadDir(i.config.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read data dir %s: %w", i.config.DataDir, err)
	}

	skipped := 0
	files := make([]*model.SourceFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, model.IngestedSuffix) {
			continue
		}
		ftype, ok := model.FileTypeFromExt(strings.ToLower(filepath.Ext(name)))
		if !ok {
			skipped++
			continue
		}
		files = append(files, &model.SourceFile{
			Path:  filepath.Join(i.config.DataDir, name),
			Type:  ftype,
			State: model.StatePending,
		})
	}
	return files, skipped, nil
}

// Run 执行一次摄取。
//
// 单个文件加载失败只影响该文件：记录日志后跳过，文件保持待处理状态，
// 留待下次运行重试。消费标记只在文件的分块全部入库之后写入，
// 嵌入或入库阶段失败时不会有任何文件被标记。
func (i *Ingestor) Run(ctx context.Context) (*model.IngestionOutcome, error) {
	start := time.Now()

	files, skipped, err := i.pendingFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &model.IngestionOutcome{
			Kind:         model.OutcomeNoInputFiles,
			FilesSkipped: skipped,
			Duration:     time.Since(start),
		}, nil
	}

	// 加载阶段：pending → loaded
	type fileUnits struct {
		file  *model.SourceFile
		units []*model.DocumentUnit
	}
	loaded := make([]*fileUnits, 0, len(files))
	for _, f := range files {
		l, ok := loader.ForFile(f.Path)
		if !ok {
			skipped++
			continue
		}
		units, lerr := l.Load(ctx, f.Path)
		if lerr != nil {
			logger.Warnw("failed to load document, leaving file pending",
				"path", f.Path, "error", lerr.Error())
			f.State = model.StateFailed
			skipped++
			continue
		}
		f.State = model.StateLoaded
		loaded = append(loaded, &fileUnits{file: f, units: units})
	}

	totalUnits := 0
	for _, fu := range loaded {
		totalUnits += len(fu.units)
	}
	if totalUnits == 0 {
		return &model.IngestionOutcome{
			Kind:         model.OutcomeNoExtractableDocuments,
			FilesSkipped: skipped,
			Duration:     time.Since(start),
		}, nil
	}

	// 分块阶段：loaded → chunked
	records := make([]*store.Record, 0, totalUnits)
	contents := make([]string, 0, totalUnits)
	for _, fu := range loaded {
		for _, unit := range fu.units {
			if strings.TrimSpace(unit.Content) == "" {
				continue
			}
			for _, span := range textutil.SplitIntoSpans(unit.Content, i.config.ChunkSize, i.config.ChunkOverlap) {
				records = append(records, &store.Record{
					ID:          ulid.Make().String(),
					Source:      fu.file.Path,
					Content:     span.Text,
					StartOffset: span.Start,
					Page:        unit.Page,
				})
				contents = append(contents, span.Text)
			}
		}
		fu.file.State = model.StateChunked
	}
	if len(records) == 0 {
		return &model.IngestionOutcome{
			Kind:         model.OutcomeNoChunksProduced,
			FilesLoaded:  len(loaded),
			FilesSkipped: skipped,
			Duration:     time.Since(start),
		}, nil
	}

	// 嵌入阶段：单次批量调用
	embeddings, err := i.embedProvider.Embed(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(records), err)
	}
	if len(embeddings) != len(records) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(records))
	}
	for idx, emb := range embeddings {
		records[idx].Embedding = emb
	}

	// 入库阶段：独占句柄一次性写入
	err = i.manager.WithExclusive(ctx, func(s store.VectorStore) error {
		return s.Upsert(ctx, records)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert %d records: %w", len(records), err)
	}

	// 标记阶段：chunked → indexed，仅此刻写入消费标记
	for _, fu := range loaded {
		fu.file.State = model.StateIndexed
		marked := fu.file.Path + model.IngestedSuffix
		if rerr := os.Rename(fu.file.Path, marked); rerr != nil {
			logger.Errorw("failed to mark ingested file",
				"path", fu.file.Path, "error", rerr.Error())
		}
	}

	outcome := &model.IngestionOutcome{
		Kind:         model.OutcomeSuccess,
		IndexedCount: len(records),
		FilesLoaded:  len(loaded),
		FilesSkipped: skipped,
		Duration:     time.Since(start),
	}
	logger.Infof("ingestion finished: %d chunks from %d files in %v",
		outcome.IndexedCount, outcome.FilesLoaded, outcome.Duration)
	return outcome, nil
}
