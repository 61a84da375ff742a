// Package sales aplica las transiciones de estado de la venta junto con el
// descuento de stock y la auditoría, siempre dentro de una misma transacción.
package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/inventory"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
	"github.com/jhoicas/Ventas-api/internal/domain/sale"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// By quién origina la transición y con qué nota queda auditada.
type By struct {
	Actor     string
	Initiator string
	Note      string
}

func (b By) normalized() By {
	if b.Initiator == "" {
		b.Initiator = entity.InitiatorSystem
	}
	if b.Actor == "" {
		b.Actor = b.Initiator
	}
	return b
}

// ConfirmResult resultado de Confirm.
type ConfirmResult struct {
	Sale            *entity.Sale
	AlreadyApproved bool // la venta ya estaba aprobada; no se tocó nada
}

// Ledger motor de transiciones de la venta.
type Ledger struct {
	txRunner TxRunner
	saleRepo repository.SaleRepository
	log      *logger.Logger
	now      func() time.Time
}

// Option configura el Ledger.
type Option func(*Ledger)

// WithClock reemplaza el reloj (pruebas de vencimiento).
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger construye el motor. saleRepo se usa fuera de transacción para listar candidatas a vencer.
func NewLedger(txRunner TxRunner, saleRepo repository.SaleRepository, log *logger.Logger, opts ...Option) *Ledger {
	if log == nil {
		log = logger.Nop()
	}
	l := &Ledger{txRunner: txRunner, saleRepo: saleRepo, log: log.Component("sales"), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Confirm pasa la venta de pendiente a aprobado descontando el stock de todas sus líneas.
// aprobado devuelve éxito sin cambios; cancelado y vencido devuelven ErrInvalidTransition.
// Un faltante aborta todo con *domain.InsufficientStockError.
func (l *Ledger) Confirm(ctx context.Context, saleID string, by By) (ConfirmResult, error) {
	by = by.normalized()
	var res ConfirmResult
	err := l.txRunner.Run(ctx, func(
		saleRepo repository.SaleRepository,
		stockRepo repository.StockRepository,
		auditRepo repository.AuditRepository,
	) error {
		s, err := lockSale(ctx, saleRepo, saleID)
		if err != nil {
			return err
		}
		decision, err := sale.DecideConfirm(s.Status)
		if err != nil {
			return err
		}
		if decision == sale.ConfirmAlreadyDone {
			res = ConfirmResult{Sale: s, AlreadyApproved: true}
			return nil
		}
		if err := consumeStock(ctx, stockRepo, s.Items); err != nil {
			return err
		}
		if err := l.transition(ctx, saleRepo, auditRepo, s, entity.SaleStatusAprobado, entity.AuditActionConfirm, by); err != nil {
			return err
		}
		res = ConfirmResult{Sale: s}
		return nil
	})
	if err != nil {
		return ConfirmResult{}, err
	}
	return res, nil
}

// ApproveFromExpired recuperación administrativa vencido → aprobado. Descuenta stock
// como una confirmación: la venta vencida nunca lo había consumido.
func (l *Ledger) ApproveFromExpired(ctx context.Context, saleID string, by By) (*entity.Sale, error) {
	by = by.normalized()
	var out *entity.Sale
	err := l.txRunner.Run(ctx, func(
		saleRepo repository.SaleRepository,
		stockRepo repository.StockRepository,
		auditRepo repository.AuditRepository,
	) error {
		s, err := lockSale(ctx, saleRepo, saleID)
		if err != nil {
			return err
		}
		if err := sale.CheckApproveFromExpired(s.Status); err != nil {
			return err
		}
		if err := consumeStock(ctx, stockRepo, s.Items); err != nil {
			return err
		}
		if err := l.transition(ctx, saleRepo, auditRepo, s, entity.SaleStatusAprobado, entity.AuditActionApproveFromExpired, by); err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// Cancel pendiente → cancelado. No toca stock.
func (l *Ledger) Cancel(ctx context.Context, saleID string, by By) (*entity.Sale, error) {
	by = by.normalized()
	var out *entity.Sale
	err := l.txRunner.Run(ctx, func(
		saleRepo repository.SaleRepository,
		_ repository.StockRepository,
		auditRepo repository.AuditRepository,
	) error {
		s, err := lockSale(ctx, saleRepo, saleID)
		if err != nil {
			return err
		}
		if err := sale.CheckCancel(s.Status); err != nil {
			return err
		}
		if err := l.transition(ctx, saleRepo, auditRepo, s, entity.SaleStatusCancelado, entity.AuditActionCancel, by); err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// Expire vence una venta pendiente cuya antigüedad alcanzó threshold.
// Devuelve false sin auditar cuando no aplica (otro estado, muy reciente o ganó otra transición).
func (l *Ledger) Expire(ctx context.Context, saleID string, threshold time.Duration, by By) (bool, error) {
	by = by.normalized()
	now := l.now()
	expired := false
	err := l.txRunner.Run(ctx, func(
		saleRepo repository.SaleRepository,
		_ repository.StockRepository,
		auditRepo repository.AuditRepository,
	) error {
		s, err := saleRepo.GetByID(ctx, saleID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.ErrSaleNotFound
		}
		if !sale.IsExpirable(s, threshold, now) {
			return nil
		}
		n, err := saleRepo.UpdateStatus(ctx, s.ID, entity.SaleStatusPendiente, entity.SaleStatusVencido, entity.SaleStatusPatch{UpdatedAt: now})
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if err := appendTransitionAudit(ctx, auditRepo, s.ID, entity.SaleStatusPendiente, entity.SaleStatusVencido, entity.AuditActionExpire, by, now); err != nil {
			return err
		}
		s.Status, s.UpdatedAt = entity.SaleStatusVencido, now
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// ExpireAll vence todas las pendientes con antigüedad >= threshold y devuelve los ids
// efectivamente transicionados. Un fallo en una venta no detiene el lote.
func (l *Ledger) ExpireAll(ctx context.Context, threshold time.Duration, by By) ([]string, error) {
	cutoff := sale.ExpirationCutoff(threshold, l.now())
	candidates, err := l.saleRepo.ListPendingCreatedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listar ventas a vencer: %w", err)
	}
	ids := make([]string, 0, len(candidates))
	var errs []error
	for _, id := range candidates {
		ok, err := l.Expire(ctx, id, threshold, by)
		if err != nil {
			l.log.Error().Err(err).Str("sale_id", id).Msg("no se pudo vencer la venta")
			errs = append(errs, fmt.Errorf("venta %s: %w", id, err))
			continue
		}
		if ok {
			ids = append(ids, id)
		}
	}
	return ids, errors.Join(errs...)
}

// transition aplica el compare-and-set y escribe la auditoría en la misma tx.
func (l *Ledger) transition(
	ctx context.Context,
	saleRepo repository.SaleRepository,
	auditRepo repository.AuditRepository,
	s *entity.Sale,
	next entity.SaleStatus,
	action string,
	by By,
) error {
	now := l.now()
	prev := s.Status
	n, err := saleRepo.UpdateStatus(ctx, s.ID, prev, next, entity.SaleStatusPatch{UpdatedAt: now})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInvalidTransition
	}
	if err := appendTransitionAudit(ctx, auditRepo, s.ID, prev, next, action, by, now); err != nil {
		return err
	}
	s.Status, s.UpdatedAt = next, now
	l.log.Info().Str("sale_id", s.ID).Str("from", string(prev)).Str("to", string(next)).
		Str("initiator", by.Initiator).Msg("transición de venta")
	return nil
}

func lockSale(ctx context.Context, saleRepo repository.SaleRepository, saleID string) (*entity.Sale, error) {
	s, err := saleRepo.GetForUpdate(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrSaleNotFound
	}
	return s, nil
}

// consumeStock valida todas las líneas antes de descontar y bloquea las filas en orden de producto.
func consumeStock(ctx context.Context, stockRepo repository.StockRepository, items []entity.SaleDetail) error {
	reqs := inventory.Requirements(items)
	available := make(map[string]int64, len(reqs))
	for _, r := range reqs {
		st, err := stockRepo.GetForUpdate(ctx, r.ProductID)
		if err != nil {
			return err
		}
		available[r.ProductID] = st.Quantity
	}
	if err := inventory.Shortages(reqs, available); err != nil {
		return err
	}
	for _, r := range reqs {
		if err := stockRepo.Decrement(ctx, r.ProductID, r.Quantity); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				return &domain.InsufficientStockError{Items: []domain.StockShortage{
					{ProductID: r.ProductID, Requested: r.Quantity, Available: available[r.ProductID]},
				}}
			}
			return err
		}
	}
	return nil
}

type statusSnapshot struct {
	Status entity.SaleStatus `json:"status"`
}

func appendTransitionAudit(
	ctx context.Context,
	auditRepo repository.AuditRepository,
	saleID string,
	from, to entity.SaleStatus,
	action string,
	by By,
	at time.Time,
) error {
	before, _ := json.Marshal(statusSnapshot{Status: from})
	after, _ := json.Marshal(statusSnapshot{Status: to})
	return auditRepo.Append(ctx, &entity.AuditEntry{
		ID:         uuid.New().String(),
		Actor:      by.Actor,
		Initiator:  by.Initiator,
		Action:     action,
		EntityType: entity.AuditEntitySale,
		EntityID:   saleID,
		Before:     before,
		After:      after,
		Note:       by.Note,
		CreatedAt:  at,
	})
}
