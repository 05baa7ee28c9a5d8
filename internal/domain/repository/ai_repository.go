package repository

import (
	"context"
)

// AIRequest is one structured-output call to the language model
type AIRequest struct {
	Prompt string
	// Text is sent after the prompt when non-empty
	Text string
	// Blob is sent as inline document data when non-empty
	Blob     []byte
	MimeType string
}

// AIRepository is the language-model capability. It returns the raw model
// text, which callers must treat as untrusted JSON.
type AIRepository interface {
	GenerateJSON(ctx context.Context, req AIRequest) (string, error)
}
