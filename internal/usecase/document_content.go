package usecase

import (
	"strings"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/pkg/utils"
)

// documentContent is what the model sees of an inbound document
type documentContent struct {
	Subject string
	Text    string
	// PDF is set when the document carries a PDF; its bytes are sent inline
	PDF *entity.Attachment
}

// readDocument picks the content to score and extract. A PDF attachment
// wins over an attached .eml, which wins over the email body.
func readDocument(doc *entity.InboundDocument) documentContent {
	content := documentContent{
		Subject: doc.Subject,
		Text:    bodyText(doc.Text, doc.HTML),
	}

	for i := range doc.Attachments {
		a := &doc.Attachments[i]
		if len(a.Data) == 0 {
			continue
		}
		if a.IsPDF() {
			content.PDF = a
			if text, err := utils.PDFText(a.Data); err == nil && text != "" {
				content.Text = joinText(content.Text, text)
			}
			return content
		}
	}

	for i := range doc.Attachments {
		a := &doc.Attachments[i]
		if len(a.Data) == 0 || !a.IsEML() {
			continue
		}
		parsed, err := utils.ParseEML(a.Data)
		if err != nil {
			continue
		}
		if content.Subject == "" {
			content.Subject = parsed.Subject
		}
		content.Text = joinText(content.Text, bodyText(parsed.Text, parsed.HTML))
		return content
	}

	return content
}

func bodyText(text, html string) string {
	if strings.TrimSpace(text) != "" {
		return utils.CleanText(text)
	}
	return utils.HTMLToText(html)
}

func joinText(a, b string) string {
	switch {
	case strings.TrimSpace(a) == "":
		return b
	case strings.TrimSpace(b) == "":
		return a
	default:
		return a + "\n\n" + b
	}
}
