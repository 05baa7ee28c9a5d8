package usecase

import (
	"context"
	"errors"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/logger"
)

// Extraction is a successful or failed extraction attempt. Prompt and
// Response are kept for the upload log either way.
type Extraction struct {
	Draft    *entity.TripDraft
	Prompt   string
	Response string
}

// ExtractionEngine turns a document into an untrusted TripDraft
type ExtractionEngine struct {
	ai     repository.AIRepository
	logger logger.Logger
}

// NewExtractionEngine creates a new extraction engine
func NewExtractionEngine(ai repository.AIRepository, logger logger.Logger) *ExtractionEngine {
	return &ExtractionEngine{
		ai:     ai,
		logger: logger,
	}
}

// Extract sends the document to the model and unwraps the response. The
// returned Extraction is never nil; the error is always an *ExtractionError.
func (e *ExtractionEngine) Extract(ctx context.Context, doc *entity.InboundDocument) (*Extraction, error) {
	return e.extractContent(ctx, readDocument(doc))
}

func (e *ExtractionEngine) extractContent(ctx context.Context, content documentContent) (*Extraction, error) {
	req := repository.AIRequest{Prompt: extractionPrompt}
	if content.PDF != nil {
		req.Blob = content.PDF.Data
		req.MimeType = "application/pdf"
		if content.Subject != "" {
			req.Text = "Subject: " + content.Subject
		}
	} else {
		req.Text = buildScoringText(content.Subject, content.Text)
	}

	result := &Extraction{Prompt: req.Prompt + "\n\n" + req.Text}

	raw, err := e.ai.GenerateJSON(ctx, req)
	result.Response = raw
	if err != nil {
		reason := "model call failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "model call timed out"
		}
		return result, &ExtractionError{Reason: reason, Err: err}
	}

	obj, err := UnwrapTripPayload(raw)
	if err != nil {
		return result, err
	}
	draft, err := decodeDraft(obj, raw)
	if err != nil {
		return result, err
	}

	e.logger.Debug("Extracted trip draft",
		"destination", draft.Destination,
		"flights", len(draft.Flights),
		"hotels", len(draft.Hotels))

	result.Draft = draft
	return result, nil
}
