package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/kart-io/docqa/internal/model"
)

// PDFLoader 加载 PDF 文件，每页产出一个文本单元。
type PDFLoader struct{}

// NewPDFLoader 创建 PDF 加载器。
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Type 返回文件类型。
func (l *PDFLoader) Type() model.FileType {
	return model.FileTypePDF
}

// Load 解析 PDF 并提取每页的纯文本。
// 单页提取失败仅跳过该页，整个文件无法打开才返回错误。
func (l *PDFLoader) Load(_ context.Context, path string) ([]*model.DocumentUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 PDF 文件失败: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("读取文件信息失败: %w", err)
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("解析 PDF 失败: %w", err)
	}

	source := &model.SourceFile{Path: path, Type: model.FileTypePDF, State: model.StateLoaded}

	var units []*model.DocumentUnit
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text == "" {
			continue
		}

		units = append(units, &model.DocumentUnit{
			Content: text,
			Source:  source,
			Page:    i,
		})
	}

	return units, nil
}
