package repository

import (
	"context"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// WebhookRecordRepository puerto de los registros de notificaciones entrantes.
type WebhookRecordRepository interface {
	Create(ctx context.Context, rec *entity.WebhookRecord) error
	// Update persiste processing_status, retry_count, last_error y updated_at.
	Update(ctx context.Context, rec *entity.WebhookRecord) error
	GetByID(ctx context.Context, id string) (*entity.WebhookRecord, error)
	ListFailed(ctx context.Context, limit int) ([]*entity.WebhookRecord, error)
	// FindProcessedByEventID devuelve un registro ya procesado con el mismo id de evento, o nil.
	FindProcessedByEventID(ctx context.Context, gatewayEventID string) (*entity.WebhookRecord, error)
}
