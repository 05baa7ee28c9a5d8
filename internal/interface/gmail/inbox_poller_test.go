package gmail

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"

	"tripmail-service/internal/domain/entity"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func rawB64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestMessageToDocument(t *testing.T) {
	received := time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)
	msg := &gmail.Message{
		Id:           "18c0ffee",
		InternalDate: received.UnixMilli(),
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "United <receipts@united.com>"},
				{Name: "to", Value: "ann@example.com"},
				{Name: "Subject", Value: "eTicket Itinerary"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: rawB64("UA 84 EWR-TLV?")}},
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>UA 84</p>")}},
					},
				},
				{
					MimeType: "application/pdf",
					Filename: "receipt.pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 9},
				},
			},
		},
	}

	var fetched []string
	fetch := func(id string) ([]byte, error) {
		fetched = append(fetched, id)
		return []byte("%PDF-1.4\n"), nil
	}

	doc, err := MessageToDocument(msg, fetch)
	if err != nil {
		t.Fatalf("MessageToDocument: %v", err)
	}

	if doc.From != "United <receipts@united.com>" || doc.To != "ann@example.com" || doc.Subject != "eTicket Itinerary" {
		t.Errorf("headers = %q / %q / %q", doc.From, doc.To, doc.Subject)
	}
	if doc.Text != "UA 84 EWR-TLV?" || doc.HTML != "<p>UA 84</p>" {
		t.Errorf("bodies = %q / %q", doc.Text, doc.HTML)
	}
	if doc.Source != entity.SourceGmail || doc.SourceRef != "gmail:18c0ffee" || !doc.ReceivedAt.Equal(received) {
		t.Errorf("source = %q %q %v", doc.Source, doc.SourceRef, doc.ReceivedAt)
	}
	if len(fetched) != 1 || fetched[0] != "att-1" {
		t.Errorf("fetched = %v", fetched)
	}
	if len(doc.Attachments) != 1 || !doc.Attachments[0].IsPDF() || doc.Attachments[0].Size != 9 {
		t.Errorf("attachments = %+v", doc.Attachments)
	}
}

func TestMessageToDocumentErrors(t *testing.T) {
	if _, err := MessageToDocument(&gmail.Message{Id: "x"}, nil); err == nil {
		t.Error("message without payload should fail")
	}

	fetchErr := errors.New("quota exceeded")
	msg := &gmail.Message{Id: "y", Payload: &gmail.MessagePart{
		Parts: []*gmail.MessagePart{
			{Filename: "a.pdf", Body: &gmail.MessagePartBody{AttachmentId: "att"}},
		},
	}}
	_, err := MessageToDocument(msg, func(string) ([]byte, error) { return nil, fetchErr })
	if !errors.Is(err, fetchErr) {
		t.Errorf("err = %v, want fetch error", err)
	}

	bad := &gmail.Message{Id: "z", Payload: &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: "!!not base64!!"},
	}}
	if _, err := MessageToDocument(bad, nil); err == nil {
		t.Error("undecodable body should fail")
	}
}

func TestDecodeBase64URL(t *testing.T) {
	for _, in := range []string{b64("ab"), rawB64("ab")} {
		got, err := decodeBase64URL(in)
		if err != nil || string(got) != "ab" {
			t.Errorf("decodeBase64URL(%q) = %q, %v", in, got, err)
		}
	}
}
