package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var (
	_ repository.SaleRepository          = (*saleRepo)(nil)
	_ repository.StockRepository         = (*stockRepo)(nil)
	_ repository.AuditRepository         = (*auditRepo)(nil)
	_ repository.WebhookRecordRepository = (*webhookRepo)(nil)
)

type saleRepo struct {
	s    *Store
	undo *undoLog
}

func (r *saleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sale, ok := r.s.sales[id]
	if !ok {
		return nil, nil
	}
	return cloneSale(sale), nil
}

// GetForUpdate no necesita bloqueo propio: Run ya serializa las transacciones.
func (r *saleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.GetByID(ctx, id)
}

func (r *saleRepo) UpdateStatus(_ context.Context, id string, expected, next entity.SaleStatus, patch entity.SaleStatusPatch) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sale, ok := r.s.sales[id]
	if !ok || sale.Status != expected {
		return 0, nil
	}
	prevStatus, prevUpdated := sale.Status, sale.UpdatedAt
	sale.Status = next
	sale.UpdatedAt = patch.UpdatedAt
	if sale.UpdatedAt.IsZero() {
		sale.UpdatedAt = time.Now()
	}
	r.undo.add(func(s *Store) {
		if cur, ok := s.sales[id]; ok {
			cur.Status, cur.UpdatedAt = prevStatus, prevUpdated
		}
	})
	return 1, nil
}

func (r *saleRepo) ListPendingCreatedBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found []*entity.Sale
	for _, sale := range r.s.sales {
		if sale.Status == entity.SaleStatusPendiente && !sale.CreatedAt.After(cutoff) {
			found = append(found, sale)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].ID < found[j].ID
		}
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
	ids := make([]string, 0, len(found))
	for _, sale := range found {
		ids = append(ids, sale.ID)
	}
	return ids, nil
}

func (r *saleRepo) SetShipment(_ context.Context, id, shipmentRef, trackingCode string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sale, ok := r.s.sales[id]
	if !ok {
		return fmt.Errorf("set shipment %s: venta inexistente", id)
	}
	sale.ShipmentRef, sale.TrackingCode = shipmentRef, trackingCode
	sale.UpdatedAt = time.Now()
	return nil
}

type stockRepo struct {
	s    *Store
	undo *undoLog
}

func (r *stockRepo) Get(_ context.Context, productID string) (*entity.Stock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if st, ok := r.s.stock[productID]; ok {
		c := *st
		return &c, nil
	}
	return &entity.Stock{ProductID: productID}, nil
}

func (r *stockRepo) GetForUpdate(ctx context.Context, productID string) (*entity.Stock, error) {
	return r.Get(ctx, productID)
}

func (r *stockRepo) Decrement(_ context.Context, productID string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("decrement stock %s: cantidad %d: %w", productID, qty, domain.ErrInvalidInput)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stock[productID]
	if !ok || st.Quantity < qty {
		return domain.ErrInsufficientStock
	}
	st.Quantity -= qty
	st.UpdatedAt = time.Now()
	r.undo.add(func(s *Store) {
		if cur, ok := s.stock[productID]; ok {
			cur.Quantity += qty
		}
	})
	return nil
}

type auditRepo struct {
	s    *Store
	undo *undoLog
}

func (r *auditRepo) Append(_ context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	c := *e
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, &c)
	id := c.ID
	r.undo.add(func(s *Store) {
		for i := len(s.audit) - 1; i >= 0; i-- {
			if s.audit[i].ID == id {
				s.audit = append(s.audit[:i], s.audit[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *auditRepo) ListByEntity(_ context.Context, entityType, entityID string) ([]*entity.AuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.AuditEntry
	for _, e := range r.s.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

type webhookRepo struct {
	s *Store
}

func (r *webhookRepo) Create(_ context.Context, rec *entity.WebhookRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now()
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = now
	}
	rec.UpdatedAt = now
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.webhooks[rec.ID]; exists {
		return fmt.Errorf("create webhook record %s: %w", rec.ID, domain.ErrConflict)
	}
	c := *rec
	c.Payload = append([]byte(nil), rec.Payload...)
	r.s.webhooks[rec.ID] = &c
	return nil
}

func (r *webhookRepo) Update(_ context.Context, rec *entity.WebhookRecord) error {
	rec.UpdatedAt = time.Now()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.webhooks[rec.ID]
	if !ok {
		return fmt.Errorf("update webhook record %s: %w", rec.ID, domain.ErrNotFound)
	}
	cur.ProcessingStatus = rec.ProcessingStatus
	cur.RetryCount = rec.RetryCount
	cur.LastError = rec.LastError
	cur.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *webhookRepo) GetByID(_ context.Context, id string) (*entity.WebhookRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.webhooks[id]
	if !ok {
		return nil, nil
	}
	c := *rec
	return &c, nil
}

func (r *webhookRepo) ListFailed(_ context.Context, limit int) ([]*entity.WebhookRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.WebhookRecord
	for _, rec := range r.s.webhooks {
		if rec.ProcessingStatus == entity.WebhookStatusFailed {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *webhookRepo) FindProcessedByEventID(_ context.Context, gatewayEventID string) (*entity.WebhookRecord, error) {
	if gatewayEventID == "" {
		return nil, nil
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var first *entity.WebhookRecord
	for _, rec := range r.s.webhooks {
		if rec.GatewayEventID == gatewayEventID && rec.ProcessingStatus == entity.WebhookStatusProcessed {
			if first == nil || rec.ReceivedAt.Before(first.ReceivedAt) {
				first = rec
			}
		}
	}
	if first == nil {
		return nil, nil
	}
	c := *first
	return &c, nil
}
