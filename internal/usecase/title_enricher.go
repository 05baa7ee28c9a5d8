package usecase

import (
	"context"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/logger"
	"tripmail-service/pkg/utils"
)

// TitleEnricher regenerates display titles and the summary over a merged trip
type TitleEnricher struct {
	ai      repository.AIRepository
	timeout time.Duration
	logger  logger.Logger
}

// NewTitleEnricher creates a new title enricher. A zero timeout leaves the
// call bounded only by ctx.
func NewTitleEnricher(ai repository.AIRepository, timeout time.Duration, logger logger.Logger) *TitleEnricher {
	return &TitleEnricher{
		ai:      ai,
		timeout: timeout,
		logger:  logger,
	}
}

// FallbackTitle is the title used when enrichment is unavailable
func FallbackTitle(destination string) string {
	return "Trip to " + destination
}

// Enrich updates trip titles in place. It reports false when the model call
// failed and the deterministic fallback was applied instead; enrichment
// never fails the caller.
func (e *TitleEnricher) Enrich(ctx context.Context, trip *entity.Trip) bool {
	if e.ai == nil {
		applyFallbackTitles(trip)
		return false
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.ai.GenerateJSON(callCtx, repository.AIRequest{
		Prompt: titlesPrompt,
		Text:   buildTitlesText(trip),
	})
	if err != nil {
		e.logger.Warn("Title enrichment failed, using fallback", "tripID", trip.ID, "error", err)
		applyFallbackTitles(trip)
		return false
	}

	obj, err := UnwrapTripPayload(raw)
	if err == nil {
		var draft *entity.TripDraft
		draft, err = decodeDraft(obj, raw)
		if err == nil {
			applyTitles(trip, draft)
			return true
		}
	}

	e.logger.Warn("Title enrichment response unusable, using fallback", "tripID", trip.ID, "error", err)
	applyFallbackTitles(trip)
	return false
}

func applyTitles(trip *entity.Trip, draft *entity.TripDraft) {
	trip.TripTitleDashboard = pick(draft.TripTitleDashboard, trip.TripTitleDashboard)
	trip.TripTitlePage = pick(draft.TripTitlePage, trip.TripTitlePage)
	trip.AISummary = mergeSummary(trip.AISummary, draft.AISummary)
	if trip.AISummary.Topology == "" {
		trip.AISummary.Topology = utils.ClassifyTopology(trip.Flights).Label()
	}
	fillMissingTitles(trip)
}

// applyFallbackTitles keeps titles already on the trip, fills the rest with
// "Trip to {destination}" and recomputes the topology from the flights
func applyFallbackTitles(trip *entity.Trip) {
	if topology := utils.ClassifyTopology(trip.Flights).Label(); topology != "" {
		trip.AISummary.Topology = topology
	}
	fillMissingTitles(trip)
}

func fillMissingTitles(trip *entity.Trip) {
	title := FallbackTitle(trip.Destination)
	if trip.AISummary.HumanTitle == "" {
		trip.AISummary.HumanTitle = title
	}
	if trip.TripTitleDashboard == "" {
		trip.TripTitleDashboard = title
	}
	if trip.TripTitlePage == "" {
		trip.TripTitlePage = title
	}
}
