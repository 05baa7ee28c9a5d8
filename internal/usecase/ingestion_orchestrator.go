package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/logger"
	"tripmail-service/pkg/metrics"
)

// State is a pipeline state. Every run ends in DONE or one of the
// REJECTED_/FAILED_ states.
type State string

const (
	StateResolving          State = "RESOLVING"
	StateValidating         State = "VALIDATING"
	StateExtracting         State = "EXTRACTING"
	StateNormalizing        State = "NORMALIZING"
	StatePersisting         State = "PERSISTING"
	StateDone               State = "DONE"
	StateRejectedNoSender   State = "REJECTED_NO_SENDER"
	StateRejectedValidation State = "REJECTED_VALIDATION"
	StateFailedExtraction   State = "FAILED_EXTRACTION"
	StateFailedPersistence  State = entity.UploadStateFailedPersistence
)

// Mode selects how a run treats the validation gate
type Mode int

const (
	// ModeNormal runs every stage
	ModeNormal Mode = iota
	// ModeForcedReplay skips validation. Only QuarantineService uses it.
	ModeForcedReplay
)

func (m Mode) String() string {
	if m == ModeForcedReplay {
		return "forced_replay"
	}
	return "normal"
}

// Caller-facing messages for terminal states
const (
	MessageUnknownSender      = "Unknown sender"
	MessageValidationRejected = "Email rejected by validation service"
	MessageExtractionFailed   = "Failed to extract trip details"
	MessagePersistenceFailed  = "Failed to save trip"
)

// IngestResult is the terminal outcome of one pipeline run
type IngestResult struct {
	State        State
	TripID       string
	Created      bool
	QuarantineID string
	UploadLogID  string
	Warnings     []string
	// Detail is the internal failure reason, for logs and the admin UI
	Detail string
}

// Success reports whether the run reached DONE
func (r *IngestResult) Success() bool {
	return r != nil && r.State == StateDone
}

// Message is the caller-facing text for the terminal state
func (r *IngestResult) Message() string {
	switch r.State {
	case StateDone:
		return ""
	case StateRejectedNoSender:
		return MessageUnknownSender
	case StateRejectedValidation:
		return MessageValidationRejected
	case StateFailedExtraction:
		return MessageExtractionFailed
	default:
		return MessagePersistenceFailed
	}
}

// OrchestratorConfig holds pipeline tunables
type OrchestratorConfig struct {
	// AICallTimeout bounds each scoring and extraction call
	AICallTimeout time.Duration
	// RunTimeout bounds a whole run, retries and enrichment included. The
	// upload log is still written after it expires.
	RunTimeout time.Duration
}

// IngestionOrchestrator drives one inbound document through the pipeline
type IngestionOrchestrator struct {
	resolver    *SenderResolver
	accountRepo repository.AccountRepository
	gate        *ValidationGate
	extractor   *ExtractionEngine
	normalizer  *Normalizer
	persister   *TripPersister
	quarantine  *QuarantineService
	uploadLogs  repository.UploadLogRepository
	cfg         OrchestratorConfig
	metrics     *metrics.Metrics
	logger      logger.Logger
	now         func() time.Time
}

// NewIngestionOrchestrator creates a new orchestrator and registers it as
// the replayer of the quarantine service
func NewIngestionOrchestrator(
	resolver *SenderResolver,
	accountRepo repository.AccountRepository,
	gate *ValidationGate,
	extractor *ExtractionEngine,
	normalizer *Normalizer,
	persister *TripPersister,
	quarantine *QuarantineService,
	uploadLogs repository.UploadLogRepository,
	cfg OrchestratorConfig,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *IngestionOrchestrator {
	o := &IngestionOrchestrator{
		resolver:    resolver,
		accountRepo: accountRepo,
		gate:        gate,
		extractor:   extractor,
		normalizer:  normalizer,
		persister:   persister,
		quarantine:  quarantine,
		uploadLogs:  uploadLogs,
		cfg:         cfg,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
	quarantine.orchestrator = o
	return o
}

// Ingest runs an inbound email whose owner is resolved from its sender.
// The error is non-nil only for infrastructure failures.
func (o *IngestionOrchestrator) Ingest(ctx context.Context, doc *entity.InboundDocument) (*IngestResult, error) {
	return o.run(ctx, doc, ModeNormal, "")
}

// IngestForAccount runs a document uploaded by an authenticated account;
// sender resolution is skipped
func (o *IngestionOrchestrator) IngestForAccount(ctx context.Context, accountID string, doc *entity.InboundDocument) (*IngestResult, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	return o.run(ctx, doc, ModeNormal, accountID)
}

// run is the single pipeline implementation. An empty accountID means the
// sender must be resolved.
func (o *IngestionOrchestrator) run(ctx context.Context, doc *entity.InboundDocument, mode Mode, accountID string) (*IngestResult, error) {
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = o.now()
	}
	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	uploadLog := &entity.UploadLog{
		ID:        uuid.NewString(),
		Sender:    doc.From,
		Subject:   doc.Subject,
		Source:    doc.Source,
		SourceRef: doc.SourceRef,
		CreatedAt: doc.ReceivedAt,
	}
	result := &IngestResult{UploadLogID: uploadLog.ID}
	log := o.logger.With("uploadLogID", uploadLog.ID, "source", doc.Source, "mode", mode.String())

	o.metrics.DocumentsReceived.WithLabelValues(doc.Source).Inc()

	// RESOLVING
	stageStart := o.now()
	account, err := o.account(ctx, accountID, doc.From)
	o.observe(StateResolving, stageStart)
	if errors.Is(err, ErrSenderNotFound) {
		log.Info("Rejected document from unknown sender", "from", doc.From)
		return o.finish(ctx, result, uploadLog, StateRejectedNoSender, err.Error(), nil)
	}
	if err != nil {
		log.Error("Sender resolution failed", "error", err)
		return o.finish(ctx, result, uploadLog, StateFailedPersistence, err.Error(), err)
	}
	uploadLog.AccountID = account.ID
	log = log.With("accountID", account.ID)

	content := readDocument(doc)

	// VALIDATING
	if mode != ModeForcedReplay {
		stageStart = o.now()
		verdict := o.validate(ctx, content)
		o.observe(StateValidating, stageStart)

		if !verdict.Valid() {
			quarantineID, err := o.quarantine.Quarantine(ctx, account, doc, verdict, uploadLog.ID)
			if err != nil {
				log.Error("Quarantine write failed", "error", err)
				return o.finish(ctx, result, uploadLog, StateFailedPersistence, err.Error(), err)
			}
			result.QuarantineID = quarantineID
			uploadLog.QuarantineID = quarantineID
			log.Info("Document rejected by validation",
				"score", verdict.Score,
				"reason", verdict.Reason,
				"quarantineID", quarantineID)
			return o.finish(ctx, result, uploadLog, StateRejectedValidation, verdict.Reason, nil)
		}
	}

	// EXTRACTING
	stageStart = o.now()
	extraction, err := o.extract(ctx, content)
	o.observe(StateExtracting, stageStart)
	uploadLog.Prompt = extraction.Prompt
	uploadLog.Response = extraction.Response
	if err != nil {
		log.Warn("Extraction failed", "error", err)
		return o.finish(ctx, result, uploadLog, StateFailedExtraction, err.Error(), nil)
	}

	// NORMALIZING
	stageStart = o.now()
	draft := o.normalizer.NormalizeDraft(ctx, extraction.Draft)
	o.observe(StateNormalizing, stageStart)

	// PERSISTING
	stageStart = o.now()
	persisted, err := o.persister.Persist(ctx, account, draft, Provenance{
		SourceDocument: sourceDocument(doc),
		UploadLogID:    uploadLog.ID,
		Prompt:         extraction.Prompt,
		Response:       extraction.Response,
	})
	o.observe(StatePersisting, stageStart)
	if err != nil {
		log.Error("Trip persistence failed", "error", err)
		return o.finish(ctx, result, uploadLog, StateFailedPersistence, err.Error(), err)
	}

	result.TripID = persisted.TripID
	result.Created = persisted.Created
	result.Warnings = persisted.Warnings
	uploadLog.TripID = persisted.TripID
	uploadLog.Warnings = persisted.Warnings

	log.Info("Trip ingested",
		"tripID", persisted.TripID,
		"created", persisted.Created,
		"warnings", persisted.Warnings)
	return o.finish(ctx, result, uploadLog, StateDone, "", nil)
}

func (o *IngestionOrchestrator) account(ctx context.Context, accountID, from string) (*entity.Account, error) {
	if accountID == "" {
		return o.resolver.Resolve(ctx, from)
	}
	account, err := o.accountRepo.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSenderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	return account, nil
}

func (o *IngestionOrchestrator) validate(ctx context.Context, content documentContent) entity.ValidationVerdict {
	callCtx, cancel := o.aiContext(ctx)
	defer cancel()
	return o.gate.Validate(callCtx, content.Subject, content.Text)
}

func (o *IngestionOrchestrator) extract(ctx context.Context, content documentContent) (*Extraction, error) {
	callCtx, cancel := o.aiContext(ctx)
	defer cancel()
	return o.extractor.extractContent(callCtx, content)
}

func (o *IngestionOrchestrator) aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.AICallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.cfg.AICallTimeout)
}

// finish records the terminal state in the upload log. cause is returned
// as the run error and marks an infrastructure failure.
func (o *IngestionOrchestrator) finish(
	ctx context.Context,
	result *IngestResult,
	uploadLog *entity.UploadLog,
	state State,
	detail string,
	cause error,
) (*IngestResult, error) {
	result.State = state
	result.Detail = detail

	uploadLog.State = string(state)
	uploadLog.Success = state == StateDone
	uploadLog.ErrorDetail = detail

	// The log write must not be lost to a cancelled request context
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.uploadLogs.Append(logCtx, uploadLog); err != nil {
		o.metrics.ErrorsCount.WithLabelValues("upload_log_append").Inc()
		o.logger.Error("Failed to write upload log", "uploadLogID", uploadLog.ID, "error", err)
	}

	o.metrics.PipelineOutcomes.WithLabelValues(string(state)).Inc()
	if cause != nil {
		o.metrics.ErrorsCount.WithLabelValues("pipeline").Inc()
		return result, cause
	}
	return result, nil
}

func (o *IngestionOrchestrator) observe(stage State, start time.Time) {
	o.metrics.StageDuration.WithLabelValues(string(stage)).Observe(o.now().Sub(start).Seconds())
}

func sourceDocument(doc *entity.InboundDocument) string {
	for _, a := range doc.Attachments {
		if a.IsPDF() || a.IsEML() {
			return a.Filename
		}
	}
	if doc.SourceRef != "" {
		return doc.SourceRef
	}
	return "email:" + doc.Subject
}
