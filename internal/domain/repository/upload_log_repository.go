package repository

import (
	"context"

	"tripmail-service/internal/domain/entity"
)

// UploadLogRepository defines the interface for the append-only ingestion log
type UploadLogRepository interface {
	Append(ctx context.Context, log *entity.UploadLog) error
	// ExistsBySourceRef ignores attempts that ended in FAILED_PERSISTENCE
	ExistsBySourceRef(ctx context.Context, sourceRef string) (bool, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*entity.UploadLog, error)
}
