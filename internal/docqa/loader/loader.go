// Package loader 提供按扩展名分发的文档加载器。
// 每种受支持的格式注册一个 Loader，把原始文件解析为文本单元。
package loader

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kart-io/docqa/internal/model"
)

// Loader 定义单一格式的文档加载器。
type Loader interface {
	// Load 读取文件并返回文本单元，分页格式每页一个单元。
	Load(ctx context.Context, path string) ([]*model.DocumentUnit, error)

	// Type 返回加载器处理的文件类型。
	Type() model.FileType
}

// registry 按扩展名注册的加载器表。
var (
	registryMu sync.RWMutex
	registered = make(map[string]Loader)
)

// Register 注册一个加载器处理给定扩展名（带点，小写）。
func Register(ext string, l Loader) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registered[strings.ToLower(ext)] = l
}

// ForFile 返回处理该文件的加载器，未注册的扩展名返回 false。
func ForFile(path string) (Loader, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	registryMu.RLock()
	defer registryMu.RUnlock()
	l, ok := registered[ext]
	return l, ok
}

// SupportedExtensions 返回所有已注册的扩展名。
func SupportedExtensions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	exts := make([]string, 0, len(registered))
	for ext := range registered {
		exts = append(exts, ext)
	}
	return exts
}

func init() {
	Register(".txt", NewTextLoader())
	Register(".pdf", NewPDFLoader())
	Register(".docx", NewDocxLoader())
}
