package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/logger"
	"tripmail-service/pkg/metrics"
	"tripmail-service/pkg/utils"
)

// maxPersistAttempts bounds optimistic retries on a contended trip
const maxPersistAttempts = 5

// ErrNoDestination is returned when a draft without destination reaches persistence
var ErrNoDestination = errors.New("draft has no destination")

// Provenance records where a draft came from
type Provenance struct {
	SourceDocument string
	UploadLogID    string
	Prompt         string
	Response       string
}

// PersistResult is the outcome of a successful persist
type PersistResult struct {
	TripID   string
	Created  bool
	Enriched bool
	// Warnings are the data-quality warnings on the saved trip
	Warnings []string
}

// Complete reports whether the saved trip carries no data-quality warning
func (r *PersistResult) Complete() bool {
	return len(r.Warnings) == 0
}

// TripPersister merges drafts into stored trips under optimistic concurrency
type TripPersister struct {
	tripRepo repository.TripRepository
	enricher *TitleEnricher
	metrics  *metrics.Metrics
	logger   logger.Logger
	now      func() time.Time
}

// NewTripPersister creates a new trip persister
func NewTripPersister(
	tripRepo repository.TripRepository,
	enricher *TitleEnricher,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *TripPersister {
	return &TripPersister{
		tripRepo: tripRepo,
		enricher: enricher,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Persist creates or updates the account's trip for the draft. Each attempt
// reads the stored version, merges, enriches and writes conditionally; a
// lost race is retried from the read.
func (p *TripPersister) Persist(ctx context.Context, account *entity.Account, draft *entity.TripDraft, prov Provenance) (*PersistResult, error) {
	if draft == nil || strings.TrimSpace(draft.Destination) == "" {
		return nil, ErrNoDestination
	}

	now := p.now()
	tripID := TripID(draft.Destination, draft.Dates, now)
	resolved := *draft
	resolved.Travelers = ResolveTravelers(account, draft.Travelers)

	for attempt := 1; attempt <= maxPersistAttempts; attempt++ {
		existing, err := p.tripRepo.FindByID(ctx, account.ID, tripID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to read trip %s: %w", tripID, err)
		}
		if errors.Is(err, repository.ErrNotFound) {
			existing = nil
		}

		var expectedVersion int64
		if existing != nil {
			expectedVersion = existing.Version
		}

		trip := MergeDraft(existing, &resolved)
		trip.ID = tripID
		trip.DocID = entity.TripDocID(account.ID, tripID)
		trip.AccountID = account.ID
		trip.UpdatedAt = now
		if existing == nil {
			trip.UploadedAt = now
		}
		trip.SourceDocument = pick(prov.SourceDocument, trip.SourceDocument)
		trip.UploadLogID = pick(prov.UploadLogID, trip.UploadLogID)
		trip.DebugPrompt = pick(prov.Prompt, trip.DebugPrompt)
		trip.DebugResponse = pick(prov.Response, trip.DebugResponse)
		applyDateQuality(trip)

		enriched := p.enricher.Enrich(ctx, trip)
		if !enriched {
			p.metrics.EnrichmentFallbacks.Inc()
		}

		err = p.tripRepo.Save(ctx, trip, expectedVersion)
		if errors.Is(err, repository.ErrVersionConflict) {
			p.metrics.MergeConflicts.Inc()
			p.logger.Info("Trip write conflict, retrying",
				"accountID", account.ID,
				"tripID", tripID,
				"attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save trip %s: %w", tripID, err)
		}

		if len(trip.DataWarnings) > 0 {
			p.logger.Warn("Trip saved with data-quality warnings",
				"accountID", account.ID,
				"tripID", tripID,
				"warnings", trip.DataWarnings)
		}

		return &PersistResult{
			TripID:   tripID,
			Created:  existing == nil,
			Enriched: enriched,
			Warnings: append([]string(nil), trip.DataWarnings...),
		}, nil
	}

	return nil, fmt.Errorf("failed to save trip %s after %d attempts: %w", tripID, maxPersistAttempts, repository.ErrVersionConflict)
}

// applyDateQuality sets StartsAt and keeps the unparseable_dates warning in
// step with the current date range
func applyDateQuality(trip *entity.Trip) {
	trip.StartsAt = utils.ParseDateRangeStart(trip.Dates)

	warnings := trip.DataWarnings[:0]
	for _, w := range trip.DataWarnings {
		if w != entity.WarningUnparseableDates {
			warnings = append(warnings, w)
		}
	}
	if trip.StartsAt == 0 {
		warnings = append(warnings, entity.WarningUnparseableDates)
	}
	if len(warnings) == 0 {
		warnings = nil
	}
	trip.DataWarnings = warnings
}

// TripID derives the trip identity: slug(destination) + "-" + year. The year
// comes from the date range, else the current year.
func TripID(destination, dates string, now time.Time) string {
	year := utils.RangeYear(dates)
	if year == 0 {
		year = now.Year()
	}
	return Slug(destination) + "-" + strconv.Itoa(year)
}

// Slug lowercases s and joins its letter/digit runs with dashes
func Slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if sb.Len() == 0 {
		return "trip"
	}
	return sb.String()
}

// ResolveTravelers attaches family-member ids to travelers whose name or alias
// matches case-insensitively. Unmatched travelers stay name-only.
func ResolveTravelers(account *entity.Account, travelers []entity.Traveler) []entity.Traveler {
	if len(travelers) == 0 {
		return nil
	}

	byName := make(map[string]string)
	if account != nil {
		for _, m := range account.FamilyMembers {
			byName[travelerKey(entity.Traveler{Name: m.Name})] = m.ID
			for _, alias := range m.Aliases {
				byName[travelerKey(entity.Traveler{Name: alias})] = m.ID
			}
		}
	}

	out := make([]entity.Traveler, 0, len(travelers))
	for _, t := range travelers {
		if id, ok := byName[travelerKey(t)]; ok && t.ID == "" {
			t.ID = id
		}
		out = append(out, t)
	}
	return out
}
