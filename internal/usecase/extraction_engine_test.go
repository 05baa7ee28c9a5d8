package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/logger"
)

func TestExtractSendsPDFInline(t *testing.T) {
	ai := newFakeAI()
	var sent repository.AIRequest
	ai.set("extraction", func(req repository.AIRequest) (string, error) {
		sent = req
		return unitedExtraction, nil
	})
	engine := NewExtractionEngine(ai, logger.NewNopLogger())

	pdf := []byte("%PDF-1.4 fake itinerary")
	doc := &entity.InboundDocument{
		Subject: "Itinerary",
		Text:    "See attached",
		Attachments: []entity.Attachment{
			{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("ignored")},
			{Filename: "itinerary.PDF", ContentType: "application/octet-stream", Data: pdf},
		},
	}

	extraction, err := engine.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if sent.MimeType != "application/pdf" || string(sent.Blob) != string(pdf) {
		t.Errorf("request = mime %q blob %d bytes", sent.MimeType, len(sent.Blob))
	}
	if sent.Text != "Subject: Itinerary" {
		t.Errorf("Text = %q", sent.Text)
	}
	if extraction.Draft.Destination != "Tel Aviv" || extraction.Response != unitedExtraction {
		t.Errorf("extraction = %+v", extraction)
	}
}

func TestExtractReadsAttachedEML(t *testing.T) {
	ai := newFakeAI()
	var sent repository.AIRequest
	ai.set("extraction", func(req repository.AIRequest) (string, error) {
		sent = req
		return unitedExtraction, nil
	})
	engine := NewExtractionEngine(ai, logger.NewNopLogger())

	eml := "From: United <c@united.com>\r\nSubject: Booking ABC123\r\nContent-Type: text/plain\r\n\r\nUA 84 EWR-TLV\r\n"
	doc := &entity.InboundDocument{
		Attachments: []entity.Attachment{{Filename: "forwarded.eml", Data: []byte(eml)}},
	}

	if _, err := engine.Extract(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if sent.Blob != nil {
		t.Error("EML content must be sent as text")
	}
	if !strings.HasPrefix(sent.Text, "Subject: Booking ABC123") || !strings.Contains(sent.Text, "UA 84 EWR-TLV") {
		t.Errorf("Text = %q", sent.Text)
	}
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name       string
		response   func(repository.AIRequest) (string, error)
		wantReason string
	}{
		{"model error", fail(errModelDown), "model call failed"},
		{"timeout", fail(context.DeadlineExceeded), "model call timed out"},
		{"missing destination", reply(`{"flights": []}`), "missing destination"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := newFakeAI()
			ai.set("extraction", tt.response)
			engine := NewExtractionEngine(ai, logger.NewNopLogger())

			extraction, err := engine.Extract(context.Background(), unitedEmail())
			var extractionErr *ExtractionError
			if !errors.As(err, &extractionErr) || extractionErr.Reason != tt.wantReason {
				t.Fatalf("err = %v, want reason %q", err, tt.wantReason)
			}
			if extraction == nil || extraction.Prompt == "" || extraction.Draft != nil {
				t.Errorf("extraction = %+v", extraction)
			}
		})
	}
}

func TestDocumentVerifier(t *testing.T) {
	ai := newFakeAI()
	log := logger.NewNopLogger()
	verifier := NewDocumentVerifier(NewExtractionEngine(ai, log), NewNormalizer(nil, nil, log))
	verifier.now = func() time.Time { return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC) }

	trip, err := verifier.Verify(context.Background(), unitedEmail())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if trip.ID != "tel-aviv-2026" || trip.TripTitleDashboard != "Trip to Tel Aviv" || trip.Flights[0].FlightNumber != "UA 84" {
		t.Errorf("trip = %+v", trip)
	}
	if ai.count("titles") != 0 {
		t.Error("verification must not call enrichment")
	}

	ai.set("extraction", reply(`{"destination": "Rome", "dates": "sometime soon"}`))
	trip, err = verifier.Verify(context.Background(), unitedEmail())
	if !errors.Is(err, ErrUnparseableDates) {
		t.Fatalf("err = %v, want ErrUnparseableDates", err)
	}
	if trip == nil || trip.ID != "rome-2025" || !trip.HasWarning(entity.WarningUnparseableDates) {
		t.Errorf("trip = %+v", trip)
	}
}

func TestVerifyTrip(t *testing.T) {
	if err := VerifyTrip(nil); !errors.Is(err, ErrMissingDestination) {
		t.Errorf("nil trip err = %v", err)
	}
	if err := VerifyTrip(&entity.Trip{Dates: "Jan 1, 2026"}); !errors.Is(err, ErrMissingDestination) {
		t.Errorf("err = %v", err)
	}
	if err := VerifyTrip(&entity.Trip{Destination: "Rome", Dates: "Jan 1, 2026"}); err != nil {
		t.Errorf("err = %v", err)
	}
}
