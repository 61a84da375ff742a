package repository

import (
	"context"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// AuditRepository bitácora append-only.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditEntry, error)
}
