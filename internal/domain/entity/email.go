package entity

import (
	"strings"
	"time"
)

// Inbound document sources
const (
	SourceWebhook = "webhook"
	SourceUpload  = "upload"
	SourceGmail   = "gmail"
	SourceReplay  = "replay"
)

// InboundDocument is one email or uploaded file entering the pipeline
type InboundDocument struct {
	From        string
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
	ReceivedAt  time.Time
	Source      string
	// SourceRef identifies the document at its source, e.g. "gmail:{messageId}"
	SourceRef string
}

// Attachment represents an email attachment or uploaded file
type Attachment struct {
	Filename    string `json:"filename" bson:"filename"`
	ContentType string `json:"contentType" bson:"contentType"`
	Size        int    `json:"size" bson:"size"`
	Data        []byte `json:"-" bson:"data,omitempty"`
}

// IsPDF reports whether the attachment is a PDF file
func (a Attachment) IsPDF() bool {
	return strings.EqualFold(a.ContentType, "application/pdf") ||
		strings.HasSuffix(strings.ToLower(a.Filename), ".pdf")
}

// IsEML reports whether the attachment is an RFC 822 message
func (a Attachment) IsEML() bool {
	return strings.EqualFold(a.ContentType, "message/rfc822") ||
		strings.HasSuffix(strings.ToLower(a.Filename), ".eml")
}

// RawPayload snapshots the document for quarantine storage. Attachment bytes
// are kept while their total stays within maxAttachmentBytes.
func (d *InboundDocument) RawPayload(maxAttachmentBytes int) RawPayload {
	payload := RawPayload{
		From:     d.From,
		Subject:  d.Subject,
		TextBody: d.Text,
		HTMLBody: d.HTML,
	}

	budget := maxAttachmentBytes
	for _, a := range d.Attachments {
		kept := Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        len(a.Data),
		}
		if len(a.Data) <= budget {
			kept.Data = a.Data
			budget -= len(a.Data)
		}
		payload.Attachments = append(payload.Attachments, kept)
	}
	return payload
}

// DocumentFromRawPayload rebuilds an inbound document from a quarantined payload
func DocumentFromRawPayload(p RawPayload, receivedAt time.Time) *InboundDocument {
	return &InboundDocument{
		From:        p.From,
		Subject:     p.Subject,
		Text:        p.TextBody,
		HTML:        p.HTMLBody,
		Attachments: p.Attachments,
		ReceivedAt:  receivedAt,
		Source:      SourceReplay,
	}
}
