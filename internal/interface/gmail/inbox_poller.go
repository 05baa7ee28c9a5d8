package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/internal/usecase"
	"tripmail-service/pkg/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Ingester runs one inbound document through the pipeline
type Ingester interface {
	Ingest(ctx context.Context, doc *entity.InboundDocument) (*usecase.IngestResult, error)
}

// InboxPoller forwards messages of a Gmail mailbox into the pipeline
type InboxPoller struct {
	gmailService *gmail.Service
	uploadLogs   repository.UploadLogRepository
	ingester     Ingester
	logger       logger.Logger
	pollInterval time.Duration
	query        string
}

// NewInboxPoller creates a new Gmail inbox poller
func NewInboxPoller(
	ctx context.Context,
	tokenSource oauth2.TokenSource,
	uploadLogs repository.UploadLogRepository,
	ingester Ingester,
	logger logger.Logger,
	pollInterval time.Duration,
	query string,
) (*InboxPoller, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &InboxPoller{
		gmailService: service,
		uploadLogs:   uploadLogs,
		ingester:     ingester,
		logger:       logger,
		pollInterval: pollInterval,
		query:        query,
	}, nil
}

// StartPolling polls until ctx is cancelled
func (p *InboxPoller) StartPolling(ctx context.Context) {
	if err := p.Poll(ctx); err != nil {
		p.logger.Error("Error polling Gmail", "error", err)
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Gmail polling stopped")
			return
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				p.logger.Error("Error polling Gmail", "error", err)
			}
		}
	}
}

// Poll ingests every listed message that has no upload log yet
func (p *InboxPoller) Poll(ctx context.Context) error {
	resp, err := p.gmailService.Users.Messages.List("me").Q(p.query).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	ingested := 0
	for _, msg := range resp.Messages {
		sourceRef := SourceRef(msg.Id)
		seen, err := p.uploadLogs.ExistsBySourceRef(ctx, sourceRef)
		if err != nil {
			p.logger.Error("Failed to check upload log", "msgId", msg.Id, "error", err)
			continue
		}
		if seen {
			continue
		}

		full, err := p.gmailService.Users.Messages.Get("me", msg.Id).Format("full").Context(ctx).Do()
		if err != nil {
			p.logger.Error("Failed to get message", "msgId", msg.Id, "error", err)
			continue
		}

		doc, err := MessageToDocument(full, p.attachmentFetcher(ctx, msg.Id))
		if err != nil {
			p.logger.Error("Failed to convert message", "msgId", msg.Id, "error", err)
			continue
		}

		result, err := p.ingester.Ingest(ctx, doc)
		if err != nil {
			p.logger.Error("Failed to ingest message", "msgId", msg.Id, "error", err)
			continue
		}
		ingested++
		p.logger.Info("Ingested Gmail message",
			"msgId", msg.Id,
			"state", result.State,
			"tripID", result.TripID)
	}

	p.logger.Info("Gmail poll completed",
		"listed", len(resp.Messages),
		"ingested", ingested)
	return nil
}

func (p *InboxPoller) attachmentFetcher(ctx context.Context, messageID string) AttachmentFetcher {
	return func(attachmentID string) ([]byte, error) {
		body, err := p.gmailService.Users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return decodeBase64URL(body.Data)
	}
}

// SourceRef is the upload-log source reference of a Gmail message
func SourceRef(messageID string) string {
	return "gmail:" + messageID
}

// AttachmentFetcher loads an attachment body that is not inlined in the message
type AttachmentFetcher func(attachmentID string) ([]byte, error)

// MessageToDocument converts a full-format Gmail message
func MessageToDocument(msg *gmail.Message, fetch AttachmentFetcher) (*entity.InboundDocument, error) {
	if msg.Payload == nil {
		return nil, fmt.Errorf("message %s has no payload", msg.Id)
	}

	doc := &entity.InboundDocument{
		Source:     entity.SourceGmail,
		SourceRef:  SourceRef(msg.Id),
		ReceivedAt: time.UnixMilli(msg.InternalDate),
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "from":
			doc.From = header.Value
		case "to":
			doc.To = header.Value
		case "subject":
			doc.Subject = header.Value
		}
	}

	if err := collectPart(doc, msg.Payload, fetch); err != nil {
		return nil, err
	}
	return doc, nil
}

func collectPart(doc *entity.InboundDocument, part *gmail.MessagePart, fetch AttachmentFetcher) error {
	if part.Filename != "" && part.Body != nil {
		data, err := partData(part.Body, fetch)
		if err != nil {
			return fmt.Errorf("attachment %s: %w", part.Filename, err)
		}
		doc.Attachments = append(doc.Attachments, entity.Attachment{
			Filename:    part.Filename,
			ContentType: part.MimeType,
			Size:        len(data),
			Data:        data,
		})
		return nil
	}

	if part.Body != nil && part.Body.Data != "" {
		data, err := decodeBase64URL(part.Body.Data)
		if err != nil {
			return err
		}
		switch part.MimeType {
		case "text/plain":
			if doc.Text == "" {
				doc.Text = string(data)
			}
		case "text/html":
			if doc.HTML == "" {
				doc.HTML = string(data)
			}
		}
	}

	for _, child := range part.Parts {
		if err := collectPart(doc, child, fetch); err != nil {
			return err
		}
	}
	return nil
}

func partData(body *gmail.MessagePartBody, fetch AttachmentFetcher) ([]byte, error) {
	if body.Data != "" {
		return decodeBase64URL(body.Data)
	}
	if body.AttachmentId != "" && fetch != nil {
		return fetch(body.AttachmentId)
	}
	return nil, nil
}

// decodeBase64URL accepts padded and unpadded URL-safe base64
func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
