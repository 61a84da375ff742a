package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var _ repository.WebhookRecordRepository = (*WebhookRecordRepo)(nil)

// WebhookRecordRepo implementación de WebhookRecordRepository sobre PostgreSQL.
type WebhookRecordRepo struct {
	q Querier
}

// NewWebhookRecordRepository construye el adaptador.
func NewWebhookRecordRepository(q Querier) *WebhookRecordRepo {
	return &WebhookRecordRepo{q: q}
}

const webhookColumns = `id, gateway_event_id, topic, resource_id, request_id, payload, received_at,
	signature_valid, processing_status, retry_count, last_error, updated_at`

func (r *WebhookRecordRepo) Create(ctx context.Context, rec *entity.WebhookRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now()
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = now
	}
	rec.UpdatedAt = now
	query := `INSERT INTO webhook_records (` + webhookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.GatewayEventID, rec.Topic, rec.ResourceID, rec.RequestID, rec.Payload, rec.ReceivedAt,
		rec.SignatureValid, rec.ProcessingStatus, rec.RetryCount, nullIfEmpty(rec.LastError), rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create webhook record: %w", err)
	}
	return nil
}

func (r *WebhookRecordRepo) Update(ctx context.Context, rec *entity.WebhookRecord) error {
	rec.UpdatedAt = time.Now()
	query := `
		UPDATE webhook_records
		SET processing_status = $2, retry_count = $3, last_error = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, rec.ID, rec.ProcessingStatus, rec.RetryCount, nullIfEmpty(rec.LastError), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update webhook record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update webhook record %s: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID devuelve el registro o (nil, nil) si no existe.
func (r *WebhookRecordRepo) GetByID(ctx context.Context, id string) (*entity.WebhookRecord, error) {
	rows, err := r.q.Query(ctx, `SELECT `+webhookColumns+` FROM webhook_records WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get webhook record: %w", err)
	}
	rec, err := pgx.CollectOneRow(rows, scanWebhookRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook record: %w", err)
	}
	return rec, nil
}

// ListFailed registros fallidos, los más recientes primero.
func (r *WebhookRecordRepo) ListFailed(ctx context.Context, limit int) ([]*entity.WebhookRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + webhookColumns + ` FROM webhook_records
		WHERE processing_status = $1 ORDER BY received_at DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, entity.WebhookStatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed webhooks: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanWebhookRecord)
	if err != nil {
		return nil, fmt.Errorf("scan failed webhooks: %w", err)
	}
	return out, nil
}

// FindProcessedByEventID devuelve un registro ya procesado con el mismo id de evento.
func (r *WebhookRecordRepo) FindProcessedByEventID(ctx context.Context, gatewayEventID string) (*entity.WebhookRecord, error) {
	if gatewayEventID == "" {
		return nil, nil
	}
	query := `SELECT ` + webhookColumns + ` FROM webhook_records
		WHERE gateway_event_id = $1 AND processing_status = $2
		ORDER BY received_at LIMIT 1`
	rows, err := r.q.Query(ctx, query, gatewayEventID, entity.WebhookStatusProcessed)
	if err != nil {
		return nil, fmt.Errorf("find processed webhook: %w", err)
	}
	rec, err := pgx.CollectOneRow(rows, scanWebhookRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find processed webhook: %w", err)
	}
	return rec, nil
}

func scanWebhookRecord(row pgx.CollectableRow) (*entity.WebhookRecord, error) {
	var (
		rec     entity.WebhookRecord
		lastErr *string
	)
	err := row.Scan(
		&rec.ID, &rec.GatewayEventID, &rec.Topic, &rec.ResourceID, &rec.RequestID, &rec.Payload, &rec.ReceivedAt,
		&rec.SignatureValid, &rec.ProcessingStatus, &rec.RetryCount, &lastErr, &rec.UpdatedAt,
	)
	rec.LastError = derefStr(lastErr)
	return &rec, err
}
