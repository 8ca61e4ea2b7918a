package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/kart-io/docqa/internal/model"
)

// DocxLoader 加载 DOCX 文件。
// DOCX 是 OOXML 压缩包，正文位于 word/document.xml，
// 逐段提取 <w:t> 文本节点，段落之间以换行分隔。
type DocxLoader struct{}

// NewDocxLoader 创建 DOCX 加载器。
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Type 返回文件类型。
func (l *DocxLoader) Type() model.FileType {
	return model.FileTypeDOCX
}

// Load 解压并解析 DOCX 正文。
func (l *DocxLoader) Load(_ context.Context, path string) ([]*model.DocumentUnit, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("打开 DOCX 文件失败: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("DOCX 文件缺少 word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("读取 document.xml 失败: %w", err)
	}
	defer rc.Close()

	text, err := extractDocxText(rc)
	if err != nil {
		return nil, fmt.Errorf("解析 document.xml 失败: %w", err)
	}

	return []*model.DocumentUnit{
		{
			Content: text,
			Source:  &model.SourceFile{Path: path, Type: model.FileTypeDOCX, State: model.StateLoaded},
		},
	}, nil
}

// extractDocxText 遍历 XML token 流，收集 w:t 文本并在段落边界换行。
func extractDocxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		sb     strings.Builder
		inText bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
