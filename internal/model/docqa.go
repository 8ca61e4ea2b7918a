// Package model provides data models for the docqa service.
package model

import (
	"time"

	"github.com/kart-io/docqa/pkg/llm"
)

// FileType identifies a supported source document format.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeText FileType = "txt"
)

// IngestState tracks the progress of a source file through ingestion.
// Transitions: pending → loaded → chunked → indexed, or failed.
// The durable "consumed" marker is only written once a file reaches
// StateIndexed; a file that fails earlier stays eligible for the next run.
type IngestState string

const (
	StatePending IngestState = "pending"
	StateLoaded  IngestState = "loaded"
	StateChunked IngestState = "chunked"
	StateIndexed IngestState = "indexed"
	StateFailed  IngestState = "failed"
)

// IngestedSuffix is the filename suffix marking a consumed source file.
const IngestedSuffix = ".ingested"

// SourceFile identifies a raw uploaded file and its ingestion state.
type SourceFile struct {
	Path  string      `json:"path"`
	Type  FileType    `json:"type"`
	State IngestState `json:"state"`
}

// DocumentUnit is a loaded, unchunked unit of text plus its
// originating SourceFile reference. Produced by a document loader,
// consumed by the chunker; never persisted.
type DocumentUnit struct {
	Content string
	Source  *SourceFile
	// Page is the 1-based page number for paginated formats (0 otherwise).
	Page int
}

// Chunk is a bounded substring of a DocumentUnit with a recorded
// start offset (Unicode characters) and a back-reference to its unit.
type Chunk struct {
	ID          string  `json:"id"`
	Content     string  `json:"content"`
	StartOffset int     `json:"start_offset"`
	Source      string  `json:"source"`
	Page        int     `json:"page,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// ConversationTurn is a single (user, assistant) exchange.
type ConversationTurn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	CreatedAt time.Time `json:"created_at"`
}

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentConversation Intent = "conversation"
	IntentDocument     Intent = "document"
	IntentUnknown      Intent = "unknown"
)

// AIModelParameters carries optional per-request sampling overrides.
// Nil fields fall back to configured defaults.
type AIModelParameters struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
}

// InferenceRequest carries a query plus optional history and sampling
// overrides. Resolution happens once at the request boundary.
type InferenceRequest struct {
	Query             string             `json:"query" binding:"required"`
	History           string             `json:"history,omitempty"`
	AIModelParameters *AIModelParameters `json:"ai_model_parameters,omitempty"`
}

// ResolveSampling merges the request's optional overrides onto the
// given defaults, producing the explicit parameter set used for every
// downstream generation call in this request.
func (r *InferenceRequest) ResolveSampling(defaults llm.SamplingParams) llm.SamplingParams {
	params := defaults
	p := r.AIModelParameters
	if p == nil {
		return params
	}
	if p.Temperature != nil {
		params.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		params.MaxTokens = *p.MaxTokens
	}
	if p.TopP != nil {
		params.TopP = *p.TopP
	}
	if p.FrequencyPenalty != nil {
		params.FrequencyPenalty = *p.FrequencyPenalty
	}
	if p.PresencePenalty != nil {
		params.PresencePenalty = *p.PresencePenalty
	}
	return params
}

// InferenceResponse is the single response string for an inference call.
type InferenceResponse struct {
	Response string `json:"response"`
}

// ChatRequest is a routed conversational turn.
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse carries the routed answer and the decided intent.
type ChatResponse struct {
	Response string `json:"response"`
	Intent   Intent `json:"intent"`
}

// IngestionOutcomeKind enumerates the terminal outcomes of an ingestion run.
type IngestionOutcomeKind string

const (
	OutcomeNoInputFiles           IngestionOutcomeKind = "no_input_files"
	OutcomeNoExtractableDocuments IngestionOutcomeKind = "no_extractable_documents"
	OutcomeNoChunksProduced       IngestionOutcomeKind = "no_chunks_produced"
	OutcomeSuccess                IngestionOutcomeKind = "success"
)

// IngestionOutcome is the result of one ingestion run. The empty-input
// kinds are "nothing to do" signals, not errors; no vectors are written
// unless Kind is OutcomeSuccess.
type IngestionOutcome struct {
	Kind         IngestionOutcomeKind `json:"kind"`
	IndexedCount int                  `json:"indexed_count"`
	FilesLoaded  int                  `json:"files_loaded"`
	FilesSkipped int                  `json:"files_skipped"`
	Duration     time.Duration        `json:"duration"`
}

// Success reports whether the run indexed any vectors.
func (o *IngestionOutcome) Success() bool {
	return o.Kind == OutcomeSuccess
}

// StatsResponse summarizes the state of the index and source directory.
type StatsResponse struct {
	IndexedVectors int    `json:"indexed_vectors"`
	PendingFiles   int    `json:"pending_files"`
	IngestedFiles  int    `json:"ingested_files"`
	VectorStore    string `json:"vector_store"`
}

// FileTypeFromExt maps a lowercase filename extension (with dot) to a
// supported FileType. The second return is false for unknown types.
func FileTypeFromExt(ext string) (FileType, bool) {
	switch ext {
	case ".pdf":
		return FileTypePDF, true
	case ".docx":
		return FileTypeDOCX, true
	case ".txt":
		return FileTypeText, true
	default:
		return "", false
	}
}
