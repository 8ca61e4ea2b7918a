// Package textutil 提供文档问答相关的文本处理工具函数。
package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strings"
	"unicode/utf8"
)

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]，1 表示完全相同，-1 表示完全相反。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeCosineSimilarity 将余弦相似度归一化到 [0, 1] 范围。
func NormalizeCosineSimilarity(similarity float64) float64 {
	return (similarity + 1) / 2
}

// HashString 计算字符串的 MD5 哈希值。
func HashString(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// IsBlank 判断字符串是否为空或仅含空白字符。
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Span 表示从原文切出的一段文本及其起始偏移（Unicode 字符数）。
type Span struct {
	Text  string
	Start int
}

// SplitIntoSpans 将文本分割成带起始偏移的重叠块。
// chunkSize 是每个块的大小（Unicode 字符数），overlap 是块之间的重叠大小。
// 相邻块起点间隔固定为 chunkSize-overlap，最后一块可能不足 chunkSize。
func SplitIntoSpans(text string, chunkSize, overlap int) []Span {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= chunkSize {
		return []Span{{Text: text, Start: 0}}
	}

	var spans []Span
	step := chunkSize - overlap

	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, Span{Text: string(runes[i:end]), Start: i})
		if end == len(runes) {
			break
		}
	}

	return spans
}

// SplitIntoChunks 将文本分割成重叠的块，仅返回文本内容。
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	spans := SplitIntoSpans(text, chunkSize, overlap)
	if spans == nil {
		return nil
	}
	chunks := make([]string, len(spans))
	for i, s := range spans {
		chunks[i] = s.Text
	}
	return chunks
}
