package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/kart-io/docqa/internal/model"
)

// TextLoader 加载纯文本文件。
type TextLoader struct{}

// NewTextLoader 创建纯文本加载器。
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Type 返回文件类型。
func (l *TextLoader) Type() model.FileType {
	return model.FileTypeText
}

// Load 读取整个文件作为单个文本单元。
func (l *TextLoader) Load(_ context.Context, path string) ([]*model.DocumentUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文本文件失败: %w", err)
	}

	return []*model.DocumentUnit{
		{
			Content: string(content),
			Source:  &model.SourceFile{Path: path, Type: model.FileTypeText, State: model.StateLoaded},
		},
	}, nil
}
