package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jszwec/csvutil"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/logger"
	"tripmail-service/pkg/metrics"
)

// DefaultMaxQuarantineAttachmentBytes bounds the attachment bytes stored per entry
const DefaultMaxQuarantineAttachmentBytes = 8 << 20

// ErrReplayFailed is returned when a forced replay did not reach DONE
var ErrReplayFailed = errors.New("forced replay failed")

// QuarantineService stores validation rejections and replays them on
// operator request
type QuarantineService struct {
	repo               repository.QuarantineRepository
	orchestrator       *IngestionOrchestrator
	maxAttachmentBytes int
	metrics            *metrics.Metrics
	logger             logger.Logger
	now                func() time.Time
}

// NewQuarantineService creates a new quarantine service. It becomes able to
// replay once an IngestionOrchestrator is constructed with it.
func NewQuarantineService(
	repo repository.QuarantineRepository,
	maxAttachmentBytes int,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *QuarantineService {
	if maxAttachmentBytes <= 0 {
		maxAttachmentBytes = DefaultMaxQuarantineAttachmentBytes
	}
	return &QuarantineService{
		repo:               repo,
		maxAttachmentBytes: maxAttachmentBytes,
		metrics:            metrics,
		logger:             logger,
		now:                time.Now,
	}
}

// Quarantine stores a rejected document with its verdict as PENDING
func (s *QuarantineService) Quarantine(
	ctx context.Context,
	account *entity.Account,
	doc *entity.InboundDocument,
	verdict entity.ValidationVerdict,
	uploadLogID string,
) (string, error) {
	receivedAt := doc.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	entry := &entity.QuarantineEntry{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		UserEmail:   account.Email,
		Subject:     doc.Subject,
		ReceivedAt:  receivedAt,
		Source:      doc.Source,
		RawPayload:  doc.RawPayload(s.maxAttachmentBytes),
		Validation:  verdict,
		Status:      entity.QuarantinePending,
		UploadLogID: uploadLogID,
	}

	if err := s.repo.Save(ctx, entry); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("quarantine_save").Inc()
		return "", fmt.Errorf("failed to quarantine document: %w", err)
	}

	s.metrics.QuarantinedTotal.Inc()
	s.logger.Info("Document quarantined",
		"quarantineID", entry.ID,
		"accountID", account.ID,
		"score", verdict.Score,
		"reason", verdict.Reason)
	return entry.ID, nil
}

// ForceReplay re-runs a PENDING entry with validation skipped and flips it
// to FORCED_IMPORT. A failed replay releases the claim and leaves the entry
// PENDING. A second force on the same entry returns ErrAlreadyForced.
func (s *QuarantineService) ForceReplay(ctx context.Context, id, operator string) (*IngestResult, error) {
	if s.orchestrator == nil {
		return nil, fmt.Errorf("quarantine replay is not wired")
	}

	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load quarantine entry %s: %w", id, err)
	}
	if entry.Status == entity.QuarantineForcedImport {
		s.metrics.ForcedReplays.WithLabelValues("rejected").Inc()
		return nil, repository.ErrAlreadyForced
	}

	if err := s.repo.Claim(ctx, id, operator, s.now()); err != nil {
		s.metrics.ForcedReplays.WithLabelValues("rejected").Inc()
		return nil, err
	}

	doc := entity.DocumentFromRawPayload(entry.RawPayload, entry.ReceivedAt)
	doc.SourceRef = "quarantine:" + id

	s.logger.Info("Forcing quarantine replay", "quarantineID", id, "operator", operator)

	result, err := s.orchestrator.run(ctx, doc, ModeForcedReplay, entry.AccountID)
	if err == nil && !result.Success() {
		err = fmt.Errorf("%w: %s", ErrReplayFailed, result.Message())
	}
	if err != nil {
		if releaseErr := s.repo.Release(ctx, id, operator); releaseErr != nil {
			s.logger.Error("Failed to release quarantine claim", "quarantineID", id, "error", releaseErr)
		}
		s.metrics.ForcedReplays.WithLabelValues("failed").Inc()
		return result, err
	}

	if err := s.repo.MarkForced(ctx, id, result.TripID, operator, s.now()); err != nil {
		s.metrics.ForcedReplays.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("trip %s saved but quarantine entry %s not marked: %w", result.TripID, id, err)
	}

	s.metrics.ForcedReplays.WithLabelValues("forced").Inc()
	s.logger.Info("Quarantine entry force-imported",
		"quarantineID", id,
		"tripID", result.TripID,
		"operator", operator)
	return result, nil
}

// List returns entries matching filter, newest first
func (s *QuarantineService) List(ctx context.Context, filter entity.QuarantineFilter) ([]*entity.QuarantineEntry, error) {
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list quarantine: %w", err)
	}
	return entries, nil
}

// Get returns one entry or repository.ErrNotFound
func (s *QuarantineService) Get(ctx context.Context, id string) (*entity.QuarantineEntry, error) {
	return s.repo.FindByID(ctx, id)
}

// quarantineRow is one line of the CSV export
type quarantineRow struct {
	ID          string    `csv:"id"`
	AccountID   string    `csv:"account_id"`
	UserEmail   string    `csv:"user_email"`
	From        string    `csv:"from"`
	Subject     string    `csv:"subject"`
	ReceivedAt  time.Time `csv:"received_at"`
	Source      string    `csv:"source"`
	Verdict     string    `csv:"verdict"`
	Score       float64   `csv:"score"`
	Reason      string    `csv:"reason"`
	Explanation string    `csv:"explanation"`
	Attachments int       `csv:"attachments"`
	Status      string    `csv:"status"`
	TripID      string    `csv:"trip_id,omitempty"`
	ForcedBy    string    `csv:"forced_by,omitempty"`
}

// ExportCSV writes the entries matching filter as CSV with a header row
func (s *QuarantineService) ExportCSV(ctx context.Context, filter entity.QuarantineFilter, w io.Writer) error {
	entries, err := s.List(ctx, filter)
	if err != nil {
		return err
	}

	rows := make([]quarantineRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, quarantineRow{
			ID:          e.ID,
			AccountID:   e.AccountID,
			UserEmail:   e.UserEmail,
			From:        e.RawPayload.From,
			Subject:     e.Subject,
			ReceivedAt:  e.ReceivedAt.UTC(),
			Source:      e.Source,
			Verdict:     e.Validation.Status,
			Score:       e.Validation.Score,
			Reason:      e.Validation.Reason,
			Explanation: e.Validation.Explanation,
			Attachments: len(e.RawPayload.Attachments),
			Status:      e.Status,
			TripID:      e.TripID,
			ForcedBy:    e.ForcedBy,
		})
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(quarantineRow{}); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
