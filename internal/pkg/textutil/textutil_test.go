package textutil_test

import (
	"strings"
	"testing"

	"github.com/kart-io/docqa/internal/pkg/textutil"
	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "相同向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "正交向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "相反向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
		},
		{
			name:     "空向量",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
		{
			name:     "长度不匹配",
			a:        []float32{1.0, 2.0},
			b:        []float32{1.0},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}

func TestHashString(t *testing.T) {
	// 相同输入应产生相同输出
	hash1 := textutil.HashString("test")
	hash2 := textutil.HashString("test")
	assert.Equal(t, hash1, hash2)

	// 不同输入应产生不同输出
	hash3 := textutil.HashString("different")
	assert.NotEqual(t, hash1, hash3)

	// 哈希应为32字符的十六进制字符串
	assert.Len(t, hash1, 32)
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"短于限制", "hello", 10, "hello"},
		{"等于限制", "hello", 5, "hello"},
		{"超过限制", "hello world", 5, "hello"},
		{"中文字符", "你好世界", 2, "你好"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.TruncateString(tt.input, tt.maxLen)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, textutil.IsBlank(""))
	assert.True(t, textutil.IsBlank("   \t\n "))
	assert.False(t, textutil.IsBlank(" x "))
}

func TestSplitIntoChunks(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chunkSize int
		overlap   int
		expected  int // 期望的块数
	}{
		{
			name:      "短文本无需分割",
			text:      "hello",
			chunkSize: 10,
			overlap:   2,
			expected:  1,
		},
		{
			name:      "正常分割",
			text:      "hello world test",
			chunkSize: 5,
			overlap:   2,
			expected:  5,
		},
		{
			name:      "无重叠分割",
			text:      "abcdefghij",
			chunkSize: 5,
			overlap:   0,
			expected:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := textutil.SplitIntoChunks(tt.text, tt.chunkSize, tt.overlap)
			assert.Len(t, chunks, tt.expected)
		})
	}
}

func TestSplitIntoSpansOffsets(t *testing.T) {
	// 1100 个字符，chunkSize=500，overlap=200：
	// 起点步长 300，期望偏移 0, 300, 600
	text := strings.Repeat("a", 1100)
	spans := textutil.SplitIntoSpans(text, 500, 200)

	assert.Len(t, spans, 3)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 300, spans[1].Start)
	assert.Equal(t, 600, spans[2].Start)
	assert.Len(t, spans[0].Text, 500)
	assert.Len(t, spans[2].Text, 500)
}

func TestSplitIntoSpansOverlapLaw(t *testing.T) {
	// 块数 = ceil((L-O)/(S-O))，相邻块重叠恰为 O 个字符
	const (
		length    = 1200
		chunkSize = 500
		overlap   = 200
	)
	text := strings.Repeat("x", length)
	spans := textutil.SplitIntoSpans(text, chunkSize, overlap)

	step := chunkSize - overlap
	wantCount := (length - overlap + step - 1) / step
	assert.Len(t, spans, wantCount)

	for i := 1; i < len(spans); i++ {
		assert.Equal(t, spans[i-1].Start+step, spans[i].Start)

		// 相邻块共享 overlap 个字符（最后一块可能更短）
		prevEnd := spans[i-1].Start + len([]rune(spans[i-1].Text))
		shared := prevEnd - spans[i].Start
		if i < len(spans)-1 {
			assert.Equal(t, overlap, shared)
		}
	}

	// 最后一块覆盖到文本末尾
	last := spans[len(spans)-1]
	assert.Equal(t, length, last.Start+len([]rune(last.Text)))
}

func TestSplitIntoSpansEmpty(t *testing.T) {
	assert.Nil(t, textutil.SplitIntoSpans("", 500, 200))
	assert.Nil(t, textutil.SplitIntoSpans("abc", 0, 0))
}
