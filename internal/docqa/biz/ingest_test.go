package biz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docqa/internal/docqa/store"
	"github.com/kart-io/docqa/internal/model"
)

// newTestIngestor 构造接入临时目录与向量库的摄取器。
func newTestIngestor(t *testing.T) (*Ingestor, string, *store.Manager) {
	t.Helper()

	base := t.TempDir()
	dataDir := filepath.Join(base, "raw")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	manager := store.NewManager(filepath.Join(base, "chunks.db"))
	t.Cleanup(func() { _ = manager.Close() })

	ingestor := NewIngestor(manager, &mockEmbeddingProvider{embedding: []float32{1, 0}}, &IngestorConfig{
		DataDir:      dataDir,
		ChunkSize:    500,
		ChunkOverlap: 200,
	})
	return ingestor, dataDir, manager
}

func storeCount(t *testing.T, manager *store.Manager) int64 {
	t.Helper()
	var count int64
	err := manager.View(context.Background(), func(s store.VectorStore) error {
		var cerr error
		count, cerr = s.Count(context.Background())
		return cerr
	})
	require.NoError(t, err)
	return count
}

// TestIngestor_Run_Success 测试完整摄取流程：入库、计数、消费标记。
func TestIngestor_Run_Success(t *testing.T) {
	ingestor, dataDir, manager := newTestIngestor(t)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "a.txt"), []byte("alpha document body"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "b.txt"), []byte("beta document body"), 0o644))

	outcome, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 2, outcome.FilesLoaded)
	assert.Equal(t, 2, outcome.IndexedCount)
	assert.True(t, outcome.Success())

	assert.Equal(t, int64(2), storeCount(t, manager))

	// 源文件被重命名为已消费标记
	_, err = os.Stat(filepath.Join(dataDir, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dataDir, "a.txt"+model.IngestedSuffix))
	assert.NoError(t, err)
}

// TestIngestor_Run_Idempotent 测试重复运行不会重复摄取已标记文件。
func TestIngestor_Run_Idempotent(t *testing.T) {
	ingestor, dataDir, manager := newTestIngestor(t)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "a.txt"), []byte("alpha document body"), 0o644))

	first, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.OutcomeSuccess, first.Kind)

	second, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoInputFiles, second.Kind)
	assert.Equal(t, int64(1), storeCount(t, manager))
}

// TestIngestor_Run_EmptyDir 测试空目录与不存在的目录均返回无输入。
func TestIngestor_Run_EmptyDir(t *testing.T) {
	ingestor, _, _ := newTestIngestor(t)

	outcome, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoInputFiles, outcome.Kind)
	assert.False(t, outcome.Success())
}

// TestIngestor_Run_NoChunksProduced 测试仅含空白内容时不产生任何分块。
func TestIngestor_Run_NoChunksProduced(t *testing.T) {
	ingestor, dataDir, manager := newTestIngestor(t)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "blank.txt"), []byte("   \n\t\n"), 0o644))

	outcome, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoChunksProduced, outcome.Kind)
	assert.Equal(t, int64(0), storeCount(t, manager))

	// 未成功入库的文件不得写入消费标记
	_, serr := os.Stat(filepath.Join(dataDir, "blank.txt"))
	assert.NoError(t, serr)
}

// TestIngestor_Run_LoaderFailureLeavesFilePending 测试单文件加载失败不影响其余文件。
func TestIngestor_Run_LoaderFailureLeavesFilePending(t *testing.T) {
	ingestor, dataDir, manager := newTestIngestor(t)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "good.txt"), []byte("valid body"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "broken.pdf"), []byte("not a real pdf"), 0o644))

	outcome, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 1, outcome.FilesLoaded)
	assert.Equal(t, 1, outcome.FilesSkipped)
	assert.Equal(t, int64(1), storeCount(t, manager))

	// 损坏的文件保持待处理，等待下次运行重试
	_, serr := os.Stat(filepath.Join(dataDir, "broken.pdf"))
	assert.NoError(t, serr)
	_, serr = os.Stat(filepath.Join(dataDir, "good.txt"+model.IngestedSuffix))
	assert.NoError(t, serr)
}

// TestIngestor_Run_UnsupportedExtensionSkipped 测试不支持的格式被跳过且不计入加载。
func TestIngestor_Run_UnsupportedExtensionSkipped(t *testing.T) {
	ingestor, dataDir, _ := newTestIngestor(t)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "image.png"), []byte{0x89, 0x50}, 0o644))

	outcome, err := ingestor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoInputFiles, outcome.Kind)
	assert.Equal(t, 1, outcome.FilesSkipped)
}
