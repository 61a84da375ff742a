package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo bitácora append-only sobre audit_log.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador de auditoría.
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Append inserta la entrada; asigna ID si viene vacío.
func (r *AuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO audit_log (id, actor, initiator, action, entity_type, entity_id, before_data, after_data, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
		RETURNING created_at`
	var createdAt any
	if !e.CreatedAt.IsZero() {
		createdAt = e.CreatedAt
	}
	err := r.q.QueryRow(ctx, query,
		e.ID, e.Actor, e.Initiator, e.Action, e.EntityType, e.EntityID,
		nullJSON(e.Before), nullJSON(e.After), nullIfEmpty(e.Note), createdAt,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListByEntity entradas de una entidad en orden cronológico.
func (r *AuditRepo) ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, actor, initiator, action, entity_type, entity_id, before_data, after_data, note, created_at
		FROM audit_log WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []*entity.AuditEntry
	for rows.Next() {
		var (
			e             entity.AuditEntry
			before, after []byte
			note          *string
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.Initiator, &e.Action, &e.EntityType, &e.EntityID, &before, &after, &note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Before, e.After, e.Note = before, after, derefStr(note)
		out = append(out, &e)
	}
	return out, rows.Err()
}
