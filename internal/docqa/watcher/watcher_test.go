package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docqa/internal/model"
)

// stubService 只实现测试所需的 Ingest 计数。
type stubService struct {
	ingestCalls atomic.Int32
}

func (s *stubService) Infer(ctx context.Context, req *model.InferenceRequest) (*model.InferenceResponse, error) {
	return &model.InferenceResponse{}, nil
}

func (s *stubService) DirectInfer(ctx context.Context, req *model.InferenceRequest) (*model.InferenceResponse, error) {
	return &model.InferenceResponse{}, nil
}

func (s *stubService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	return &model.ChatResponse{}, nil
}

func (s *stubService) Ingest(ctx context.Context) (*model.IngestionOutcome, error) {
	s.ingestCalls.Add(1)
	return &model.IngestionOutcome{Kind: model.OutcomeNoInputFiles}, nil
}

func (s *stubService) Stats(ctx context.Context) (*model.StatsResponse, error) {
	return &model.StatsResponse{}, nil
}

// TestRelevant 测试事件过滤规则。
func TestRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"新建受支持文件", fsnotify.Event{Name: "/data/a.txt", Op: fsnotify.Create}, true},
		{"写入 PDF 文件", fsnotify.Event{Name: "/data/a.pdf", Op: fsnotify.Write}, true},
		{"扩展名大小写不敏感", fsnotify.Event{Name: "/data/A.DOCX", Op: fsnotify.Create}, true},
		{"已消费标记文件被忽略", fsnotify.Event{Name: "/data/a.txt.ingested", Op: fsnotify.Create}, false},
		{"不支持的格式被忽略", fsnotify.Event{Name: "/data/a.png", Op: fsnotify.Create}, false},
		{"删除事件被忽略", fsnotify.Event{Name: "/data/a.txt", Op: fsnotify.Remove}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event))
		})
	}
}

// TestWatcher_TriggersIngestOnNewFile 测试新文件事件触发一次后台摄取。
func TestWatcher_TriggersIngestOnNewFile(t *testing.T) {
	dir := t.TempDir()
	svc := &stubService{}

	w, err := New(svc, dir)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("hello"), 0o644))

	assert.Eventually(t, func() bool {
		return svc.ingestCalls.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

// TestWatcher_ManualTrigger 测试手动触发与事件触发共用同一队列。
func TestWatcher_ManualTrigger(t *testing.T) {
	dir := t.TempDir()
	svc := &stubService{}

	w, err := New(svc, dir)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))

	w.Trigger()

	assert.Eventually(t, func() bool {
		return svc.ingestCalls.Load() == 1
	}, 2*time.Second, 20*time.Millisecond)
}
