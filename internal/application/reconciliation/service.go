// Package reconciliation coordina la confirmación de pagos: transición de la venta,
// evento de dominio y disparo de efectos posteriores. La usan el gateway de
// webhooks, los endpoints administrativos y el job de vencimiento.
package reconciliation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Ventas-api/internal/application/events"
	"github.com/jhoicas/Ventas-api/internal/application/sales"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

const instrumentationName = "github.com/jhoicas/Ventas-api/reconciliation"

// Ledger transiciones transaccionales de la venta.
type Ledger interface {
	Confirm(ctx context.Context, saleID string, by sales.By) (sales.ConfirmResult, error)
	ApproveFromExpired(ctx context.Context, saleID string, by sales.By) (*entity.Sale, error)
	Cancel(ctx context.Context, saleID string, by sales.By) (*entity.Sale, error)
	ExpireAll(ctx context.Context, threshold time.Duration, by sales.By) ([]string, error)
}

// SideEffects despacho asíncrono de acciones posteriores al commit.
type SideEffects interface {
	Dispatch(saleID string)
}

// ConfirmOptions datos de auditoría de una confirmación.
type ConfirmOptions struct {
	Note      string
	Actor     string
	Initiator string
}

// ConfirmOutcome resultado de ConfirmPayment.
type ConfirmOutcome struct {
	Sale            *entity.Sale
	AlreadyApproved bool
}

// ExpirationReport resumen de una corrida de vencimiento.
type ExpirationReport struct {
	Count      int      `json:"count"`
	IDs        []string `json:"ids"`
	DurationMs int64    `json:"durationMs"`
}

// Service caso de uso de reconciliación.
type Service struct {
	ledger    Ledger
	publisher events.Publisher
	effects   SideEffects
	auditRepo repository.AuditRepository
	threshold time.Duration
	log       *logger.Logger

	tracer        trace.Tracer
	confirmations metric.Int64Counter
	expirations   metric.Int64Counter
}

// NewService construye el servicio. effects puede ser nil (sin efectos posteriores).
// Usa los proveedores globales de OpenTelemetry; sin configurar son no-op.
func NewService(
	ledger Ledger,
	publisher events.Publisher,
	effects SideEffects,
	auditRepo repository.AuditRepository,
	threshold time.Duration,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		ledger:    ledger,
		publisher: publisher,
		effects:   effects,
		auditRepo: auditRepo,
		threshold: threshold,
		log:       log.Component("reconciliation"),
		tracer:    otel.Tracer(instrumentationName),
	}
	meter := otel.Meter(instrumentationName)
	s.confirmations = s.counter(meter, "ventas.confirmaciones", "Confirmaciones de pago por resultado")
	s.expirations = s.counter(meter, "ventas.vencidas", "Ventas vencidas por el job o manualmente")
	return s
}

func (s *Service) counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		s.log.Warn().Err(err).Str("metric", name).Msg("no se pudo crear el contador")
		return noop.Int64Counter{}
	}
	return c
}

// Threshold antigüedad a partir de la cual una venta pendiente vence.
func (s *Service) Threshold() time.Duration { return s.threshold }

// ConfirmPayment confirma el pago de saleID. Es idempotente: una venta ya aprobada
// devuelve éxito sin descontar stock, sin evento y sin efectos.
// Errores: domain.ErrSaleNotFound, domain.ErrInvalidTransition, *domain.InsufficientStockError.
func (s *Service) ConfirmPayment(ctx context.Context, saleID string, opts ConfirmOptions) (ConfirmOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.ConfirmPayment",
		trace.WithAttributes(attribute.String("sale.id", saleID), attribute.String("initiator", opts.Initiator)))
	defer span.End()

	res, err := s.ledger.Confirm(ctx, saleID, sales.By{Actor: opts.Actor, Initiator: opts.Initiator, Note: opts.Note})
	if err != nil {
		s.fail(span, err)
		s.confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
		return ConfirmOutcome{}, err
	}
	if res.AlreadyApproved {
		s.log.Info().Str("sale_id", saleID).Msg("venta ya aprobada, confirmación idempotente")
		s.confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "already_approved")))
		span.SetAttributes(attribute.Bool("already_approved", true))
		return ConfirmOutcome{Sale: res.Sale, AlreadyApproved: true}, nil
	}

	s.confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "approved")))
	s.afterApproval(ctx, res.Sale)
	return ConfirmOutcome{Sale: res.Sale}, nil
}

// ApproveFromExpired recuperación administrativa de una venta vencida.
func (s *Service) ApproveFromExpired(ctx context.Context, saleID string, opts ConfirmOptions) (*entity.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.ApproveFromExpired", trace.WithAttributes(attribute.String("sale.id", saleID)))
	defer span.End()

	sale, err := s.ledger.ApproveFromExpired(ctx, saleID, sales.By{Actor: opts.Actor, Initiator: opts.Initiator, Note: opts.Note})
	if err != nil {
		s.fail(span, err)
		return nil, err
	}
	s.confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "approved_from_expired")))
	s.afterApproval(ctx, sale)
	return sale, nil
}

// Cancel cancelación manual de una venta pendiente.
func (s *Service) Cancel(ctx context.Context, saleID string, opts ConfirmOptions) (*entity.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.Cancel", trace.WithAttributes(attribute.String("sale.id", saleID)))
	defer span.End()

	sale, err := s.ledger.Cancel(ctx, saleID, sales.By{Actor: opts.Actor, Initiator: opts.Initiator, Note: opts.Note})
	if err != nil {
		s.fail(span, err)
		return nil, err
	}
	return sale, nil
}

// ExpireStale vence las pendientes que superan el umbral y deja una entrada de
// auditoría con el resumen de la corrida.
func (s *Service) ExpireStale(ctx context.Context, actor, initiator string) (ExpirationReport, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.ExpireStale")
	defer span.End()

	start := time.Now()
	ids, err := s.ledger.ExpireAll(ctx, s.threshold, sales.By{Actor: actor, Initiator: initiator})
	report := ExpirationReport{Count: len(ids), IDs: ids, DurationMs: time.Since(start).Milliseconds()}
	if report.IDs == nil {
		report.IDs = []string{}
	}
	if err != nil && len(ids) == 0 {
		s.fail(span, err)
		return report, err
	}
	if err != nil {
		s.log.Warn().Err(err).Int("count", report.Count).Msg("vencimiento parcial")
	}

	s.expirations.Add(ctx, int64(report.Count))
	span.SetAttributes(attribute.Int("expired.count", report.Count))
	s.appendRunAudit(ctx, report, actor, initiator)
	s.log.Info().Int("count", report.Count).Strs("ids", report.IDs).Int64("duration_ms", report.DurationMs).
		Str("initiator", initiator).Msg("corrida de vencimiento")
	return report, nil
}

func (s *Service) afterApproval(ctx context.Context, sale *entity.Sale) {
	s.publisher.Emit(ctx, entity.TopicSaleConfirmed, entity.SaleConfirmed{
		SaleID:    sale.ID,
		Status:    sale.Status,
		Timestamp: time.Now().UTC(),
	})
	if s.effects != nil {
		s.effects.Dispatch(sale.ID)
	}
	s.log.Info().Str("sale_id", sale.ID).Msg("pago confirmado")
}

func (s *Service) appendRunAudit(ctx context.Context, report ExpirationReport, actor, initiator string) {
	if s.auditRepo == nil {
		return
	}
	if initiator == "" {
		initiator = entity.InitiatorScheduler
	}
	if actor == "" {
		actor = initiator
	}
	after, _ := json.Marshal(report)
	err := s.auditRepo.Append(ctx, &entity.AuditEntry{
		ID:         uuid.New().String(),
		Actor:      actor,
		Initiator:  initiator,
		Action:     entity.AuditActionExpireBatch,
		EntityType: entity.AuditEntityExpirationRun,
		EntityID:   time.Now().UTC().Format(time.RFC3339),
		After:      after,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("no se pudo auditar la corrida de vencimiento")
	}
}

func (s *Service) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
