package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/pkg/utils"
)

var (
	// ErrUnparseableDates fails verification of a trip whose range has no start date
	ErrUnparseableDates = errors.New("trip dates are not parseable")
	// ErrMissingDestination fails verification of a trip without destination
	ErrMissingDestination = errors.New("trip has no destination")
)

// VerifyTrip is the strict check used when verifying a single document.
// Unlike persistence, where these are data-quality warnings, it fails hard.
func VerifyTrip(trip *entity.Trip) error {
	if trip == nil || strings.TrimSpace(trip.Destination) == "" {
		return ErrMissingDestination
	}
	if utils.ParseDateRangeStart(trip.Dates) == 0 {
		return fmt.Errorf("%w: %q", ErrUnparseableDates, trip.Dates)
	}
	return nil
}

// DocumentVerifier extracts and normalizes one document without persisting it
type DocumentVerifier struct {
	extractor  *ExtractionEngine
	normalizer *Normalizer
	now        func() time.Time
}

// NewDocumentVerifier creates a new document verifier
func NewDocumentVerifier(extractor *ExtractionEngine, normalizer *Normalizer) *DocumentVerifier {
	return &DocumentVerifier{
		extractor:  extractor,
		normalizer: normalizer,
		now:        time.Now,
	}
}

// Verify returns the trip the document would produce. The trip is returned
// alongside a verification error so callers can show what was extracted.
func (v *DocumentVerifier) Verify(ctx context.Context, doc *entity.InboundDocument) (*entity.Trip, error) {
	extraction, err := v.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	draft := v.normalizer.NormalizeDraft(ctx, extraction.Draft)
	trip := MergeDraft(nil, draft)
	trip.ID = TripID(draft.Destination, draft.Dates, v.now())
	trip.SourceDocument = sourceDocument(doc)
	applyDateQuality(trip)
	applyFallbackTitles(trip)

	return trip, VerifyTrip(trip)
}
