package models

import (
	"encoding/json"
	"errors"
)

var (
	// ErrRefused is returned when the model declines to answer.
	ErrRefused = errors.New("model refused the request")
	// ErrTruncated is returned when the output hit the token limit.
	ErrTruncated = errors.New("model output truncated")
	// ErrNoStructuredOutput is returned when the response carries no schema payload.
	ErrNoStructuredOutput = errors.New("model returned no structured output")
)

// StructuredRequest asks a model for a single JSON value conforming to Schema.
type StructuredRequest struct {
	Model             string
	System            string
	Prompt            string
	SchemaName        string
	SchemaDescription string
	Schema            map[string]any
	Temperature       float64
	MaxTokens         int
}

// StructuredResponse carries the raw JSON the model produced.
type StructuredResponse struct {
	ID         string          `json:"id"`
	Model      string          `json:"model"`
	Content    json.RawMessage `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      Usage           `json:"usage"`
}

type Usage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}
