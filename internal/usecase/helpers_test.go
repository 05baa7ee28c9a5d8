package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	repo "tripmail-service/internal/interface/repository"
	"tripmail-service/pkg/logger"
	"tripmail-service/pkg/metrics"
)

const (
	scoreValid      = `{"score": 0.92, "reason": "flight_confirmation", "explanation": "United booking"}`
	scoreNewsletter = `{"score": 0.08, "reason": "newsletter", "explanation": "Promotional content"}`

	unitedExtraction = "```json\n" + `{
  "destination": "Tel Aviv",
  "dates": "Jan 08, 2026 - Jan 09, 2026",
  "status": "active",
  "flights": [{
    "airline": "United Airlines",
    "flight_number": 84,
    "date": "Jan 08, 2026",
    "departure": "Newark (EWR)",
    "arrival": "Tel Aviv (TLV)",
    "distance_miles": "5,825 mi",
    "duration": "10h 20m",
    "travelers": [{"name": "Ann Smith"}]
  }],
  "hotels": [],
  "travelers": ["Ann Smith", {"name": "Ben Smith", "role": "child"}]
}` + "\n```"

	unitedTitles = `{"destination": "Tel Aviv", "status": "active",
 "trip_title_dashboard": "Tel Aviv, January 2026", "trip_title_page": "Your trip to Tel Aviv",
 "ai_summary": {"topology": "One-Way", "human_title": "Newark to Tel Aviv", "verbose_description": "Nonstop", "layover_text": ""}}`
)

var errModelDown = errors.New("model unavailable")

// fakeAI answers each prompt kind from a scripted function
type fakeAI struct {
	mu         sync.Mutex
	scoring    func(req repository.AIRequest) (string, error)
	extraction func(req repository.AIRequest) (string, error)
	titles     func(req repository.AIRequest) (string, error)
	calls      map[string]int
}

func reply(raw string) func(repository.AIRequest) (string, error) {
	return func(repository.AIRequest) (string, error) { return raw, nil }
}

func fail(err error) func(repository.AIRequest) (string, error) {
	return func(repository.AIRequest) (string, error) { return "", err }
}

func newFakeAI() *fakeAI {
	return &fakeAI{
		scoring:    reply(scoreValid),
		extraction: reply(unitedExtraction),
		titles:     reply(unitedTitles),
		calls:      make(map[string]int),
	}
}

func (f *fakeAI) GenerateJSON(ctx context.Context, req repository.AIRequest) (string, error) {
	f.mu.Lock()
	var handler func(repository.AIRequest) (string, error)
	var kind string
	switch req.Prompt {
	case scoringPrompt:
		kind, handler = "scoring", f.scoring
	case extractionPrompt:
		kind, handler = "extraction", f.extraction
	case titlesPrompt:
		kind, handler = "titles", f.titles
	default:
		f.mu.Unlock()
		return "", errors.New("unexpected prompt")
	}
	f.calls[kind]++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return handler(req)
}

func (f *fakeAI) set(kind string, fn func(repository.AIRequest) (string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch kind {
	case "scoring":
		f.scoring = fn
	case "extraction":
		f.extraction = fn
	case "titles":
		f.titles = fn
	}
}

func (f *fakeAI) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

// pipeline is a fully wired orchestrator over a memory store
type pipeline struct {
	store        *repo.MemoryStore
	ai           *fakeAI
	metrics      *metrics.Metrics
	persister    *TripPersister
	quarantine   *QuarantineService
	orchestrator *IngestionOrchestrator
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	store := repo.NewMemoryStore()
	store.PutAccount(&entity.Account{
		ID:           "acct-1",
		Email:        "ann@example.com",
		LinkedEmails: []string{"Ann@Example.com", "ann.work@example.com"},
		FamilyMembers: []entity.FamilyMember{
			{ID: "fm-ann", Name: "Ann Smith"},
			{ID: "fm-ben", Name: "Benjamin Smith", Aliases: []string{"Ben Smith"}},
		},
	})

	ai := newFakeAI()
	log := logger.NewNopLogger()
	m := metrics.NewMetrics("test", prometheus.NewRegistry())

	persister := NewTripPersister(store.TripRepository(), NewTitleEnricher(ai, time.Second, log), m, log)
	quarantine := NewQuarantineService(store.QuarantineRepository(), 0, m, log)
	orchestrator := NewIngestionOrchestrator(
		NewSenderResolver(store.Accounts()),
		store.Accounts(),
		NewValidationGate(ai, DefaultValidationThreshold, log),
		NewExtractionEngine(ai, log),
		NewNormalizer(nil, nil, log),
		persister,
		quarantine,
		store.UploadLogRepository(),
		OrchestratorConfig{AICallTimeout: time.Second},
		m,
		log,
	)

	return &pipeline{
		store:        store,
		ai:           ai,
		metrics:      m,
		persister:    persister,
		quarantine:   quarantine,
		orchestrator: orchestrator,
	}
}

func (p *pipeline) uploadLogs(t *testing.T) []*entity.UploadLog {
	t.Helper()
	logs, err := p.store.UploadLogRepository().ListByAccount(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	return logs
}

func unitedEmail() *entity.InboundDocument {
	return &entity.InboundDocument{
		From:    "Ann Smith <ann@example.com>",
		Subject: "Your United itinerary: Newark to Tel Aviv",
		Text:    "Confirmation ABC123. UA 84 Newark (EWR) to Tel Aviv (TLV), Jan 08, 2026.",
		Source:  entity.SourceWebhook,
	}
}

func newsletterEmail() *entity.InboundDocument {
	return &entity.InboundDocument{
		From:    "ann@example.com",
		Subject: "Fare sale: 20% off to Europe",
		HTML:    "<p>Book now and save on summer fares!</p>",
		Source:  entity.SourceWebhook,
	}
}
