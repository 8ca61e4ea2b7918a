// Package docqa provides document QA pipeline configuration options.
package docqa

import (
	"fmt"

	"github.com/kart-io/docqa/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains document QA pipeline configuration.
type Options struct {
	// ChunkSize is the size of text chunks in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the number of results to return from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// RelevanceThreshold 相似度过滤阈值，低于该值的检索结果被丢弃。
	RelevanceThreshold float64 `json:"relevance-threshold" mapstructure:"relevance-threshold"`

	// FallbackTopK 阈值过滤为空时回退保留的原始结果数。
	FallbackTopK int `json:"fallback-top-k" mapstructure:"fallback-top-k"`

	// DataDir is the directory holding raw source documents.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// VectorStorePath is the path of the persisted vector store.
	VectorStorePath string `json:"vector-store-path" mapstructure:"vector-store-path"`

	// PromptTemplate is the grounded prompt template. Recognized
	// placeholders: {context}, {query}, {history}.
	PromptTemplate string `json:"prompt-template" mapstructure:"prompt-template"`

	// HistoryLimit 进入提示词的最近对话轮数。
	HistoryLimit int `json:"history-limit" mapstructure:"history-limit"`

	// Watch enables filesystem watching of DataDir for automatic ingestion.
	Watch bool `json:"watch" mapstructure:"watch"`

	// Sampling 默认采样参数。
	Sampling *SamplingOptions `json:"sampling" mapstructure:"sampling"`
}

// SamplingOptions 生成调用的默认采样参数。
type SamplingOptions struct {
	Temperature      float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens        int     `json:"max-tokens" mapstructure:"max-tokens"`
	TopP             float64 `json:"top-p" mapstructure:"top-p"`
	FrequencyPenalty float64 `json:"frequency-penalty" mapstructure:"frequency-penalty"`
	PresencePenalty  float64 `json:"presence-penalty" mapstructure:"presence-penalty"`
}

// DefaultPromptTemplate is the default grounded prompt template.
const DefaultPromptTemplate = `You are a helpful assistant that answers questions based on the provided context.
Use only the context below and the conversation history to answer the question.
If the context does not contain the answer, say so.

Context:
{context}

Conversation history:
{history}

Question: {query}

Answer:`

// NewSamplingOptions 创建默认采样参数。
func NewSamplingOptions() *SamplingOptions {
	return &SamplingOptions{
		Temperature:      0.0,
		MaxTokens:        750,
		TopP:             1.0,
		FrequencyPenalty: 0.0,
		PresencePenalty:  0.0,
	}
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:          500,
		ChunkOverlap:       200,
		TopK:               5,
		RelevanceThreshold: 0.6,
		FallbackTopK:       2,
		DataDir:            "_output/docqa-data/raw",
		VectorStorePath:    "_output/docqa-data/vector_store/chunks.db",
		PromptTemplate:     DefaultPromptTemplate,
		HistoryLimit:       10,
		Watch:              false,
		Sampling:           NewSamplingOptions(),
	}
}

// AddFlags adds flags for docqa options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"docqa.chunk-size", o.ChunkSize, "Size of text chunks in characters.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"docqa.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"docqa.top-k", o.TopK, "Number of results from similarity search.")
	fs.Float64Var(&o.RelevanceThreshold, options.Join(prefixes...)+"docqa.relevance-threshold", o.RelevanceThreshold, "Minimum similarity score for retrieved chunks.")
	fs.IntVar(&o.FallbackTopK, options.Join(prefixes...)+"docqa.fallback-top-k", o.FallbackTopK, "Raw results kept when nothing passes the threshold.")
	fs.StringVar(&o.DataDir, options.Join(prefixes...)+"docqa.data-dir", o.DataDir, "Directory holding raw source documents.")
	fs.StringVar(&o.VectorStorePath, options.Join(prefixes...)+"docqa.vector-store-path", o.VectorStorePath, "Path of the persisted vector store.")
	fs.StringVar(&o.PromptTemplate, options.Join(prefixes...)+"docqa.prompt-template", o.PromptTemplate, "Grounded prompt template ({context}, {query}, {history}).")
	fs.IntVar(&o.HistoryLimit, options.Join(prefixes...)+"docqa.history-limit", o.HistoryLimit, "Number of recent conversation turns kept in the prompt.")
	fs.BoolVar(&o.Watch, options.Join(prefixes...)+"docqa.watch", o.Watch, "Watch the data directory and ingest new files automatically.")

	// 采样参数
	if o.Sampling == nil {
		o.Sampling = NewSamplingOptions()
	}
	fs.Float64Var(&o.Sampling.Temperature, options.Join(prefixes...)+"docqa.sampling.temperature", o.Sampling.Temperature, "Default sampling temperature.")
	fs.IntVar(&o.Sampling.MaxTokens, options.Join(prefixes...)+"docqa.sampling.max-tokens", o.Sampling.MaxTokens, "Default maximum tokens to generate.")
	fs.Float64Var(&o.Sampling.TopP, options.Join(prefixes...)+"docqa.sampling.top-p", o.Sampling.TopP, "Default nucleus sampling parameter.")
	fs.Float64Var(&o.Sampling.FrequencyPenalty, options.Join(prefixes...)+"docqa.sampling.frequency-penalty", o.Sampling.FrequencyPenalty, "Default frequency penalty.")
	fs.Float64Var(&o.Sampling.PresencePenalty, options.Join(prefixes...)+"docqa.sampling.presence-penalty", o.Sampling.PresencePenalty, "Default presence penalty.")
}

// Validate validates the docqa options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("chunk-overlap cannot be negative"))
	}
	if o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap (%d) must be smaller than chunk-size (%d)", o.ChunkOverlap, o.ChunkSize))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.RelevanceThreshold < 0 || o.RelevanceThreshold > 1 {
		errs = append(errs, fmt.Errorf("relevance-threshold must be in [0, 1]"))
	}
	if o.FallbackTopK <= 0 {
		errs = append(errs, fmt.Errorf("fallback-top-k must be positive"))
	}
	if o.DataDir == "" {
		errs = append(errs, fmt.Errorf("data-dir is required"))
	}
	if o.VectorStorePath == "" {
		errs = append(errs, fmt.Errorf("vector-store-path is required"))
	}
	if o.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("history-limit must be positive"))
	}
	return errs
}

// Complete completes the docqa options with defaults.
func (o *Options) Complete() error {
	if o.Sampling == nil {
		o.Sampling = NewSamplingOptions()
	}
	if o.PromptTemplate == "" {
		o.PromptTemplate = DefaultPromptTemplate
	}
	return nil
}
