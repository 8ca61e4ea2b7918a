// Package watcher 监视原始文档目录，在新文件落盘后自动触发摄取。
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/docqa/internal/docqa/biz"
	"github.com/kart-io/docqa/internal/model"
)

// defaultDebounce 事件去抖窗口，等待写入方完成落盘。
const defaultDebounce = 2 * time.Second

// Watcher 监视数据目录的文件事件并串行触发后台摄取。
// 摄取任务提交到容量为 1 的协程池，保证同一时刻至多一次摄取在运行。
type Watcher struct {
	svc      biz.Service
	dir      string
	debounce time.Duration

	fsw     *fsnotify.Watcher
	pool    *ants.Pool
	trigger chan struct{}
}

// New 创建目录监视器。
func New(svc biz.Service, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("create ingestion pool: %w", err)
	}

	return &Watcher{
		svc:      svc,
		dir:      dir,
		debounce: defaultDebounce,
		fsw:      fsw,
		pool:     pool,
		trigger:  make(chan struct{}, 1),
	}, nil
}

// relevant 判断事件是否对应一个新的待摄取文件。
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := event.Name
	if strings.HasSuffix(name, model.IngestedSuffix) {
		return false
	}
	_, ok := model.FileTypeFromExt(strings.ToLower(filepath.Ext(name)))
	return ok
}

// Start 启动监视。事件循环与摄取工作者都随 ctx 取消而退出。
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Infof("watching %s for new documents", w.dir)

	// 摄取工作者：独占协程池中唯一的 worker，消费触发信号
	err := w.pool.Submit(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.trigger:
			}

			// 去抖：等待写入完成，并吸收窗口内的后续触发
			timer := time.NewTimer(w.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			select {
			case <-w.trigger:
			default:
			}

			outcome, rerr := w.svc.Ingest(ctx)
			if rerr != nil {
				logger.Errorw("background ingestion failed", "error", rerr.Error())
				continue
			}
			if outcome.Kind != model.OutcomeNoInputFiles {
				logger.Infow("background ingestion finished",
					"kind", string(outcome.Kind),
					"indexed", outcome.IndexedCount,
					"files", outcome.FilesLoaded)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("start ingestion worker: %w", err)
	}

	// 事件循环
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if !relevant(event) {
					continue
				}
				select {
				case w.trigger <- struct{}{}:
				default:
				}
			case werr, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				logger.Warnw("file watcher error", "error", werr.Error())
			}
		}
	}()

	return nil
}

// Trigger 手动触发一次后台摄取，与文件事件共用同一串行队列。
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Close 停止监视并释放协程池。
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	w.pool.Release()
	return err
}
