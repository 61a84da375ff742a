// Package webhooks recibe las notificaciones de la pasarela de pagos: verifica
// firma y frescura, deja registro de cada entrega y reenvía los pagos aprobados
// a la reconciliación.
package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Ventas-api/internal/application/reconciliation"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
	"github.com/jhoicas/Ventas-api/internal/domain/webhook"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// Confirmer lo que el gateway necesita de la reconciliación.
type Confirmer interface {
	ConfirmPayment(ctx context.Context, saleID string, opts reconciliation.ConfirmOptions) (reconciliation.ConfirmOutcome, error)
}

// Config parámetros de verificación.
type Config struct {
	Secret        string
	MaxAge        time.Duration
	Production    bool
	RelaxedTopics []string
}

// Headers cabeceras relevantes de la entrega.
type Headers struct {
	Signature string // x-signature
	RequestID string // x-request-id
}

// Result lo que quedó registrado para una entrega.
type Result struct {
	RecordID  string `json:"record_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
	SaleID    string `json:"sale_id,omitempty"`
}

// Gateway punto de entrada de las notificaciones.
type Gateway struct {
	records   repository.WebhookRecordRepository
	confirmer Confirmer
	resolver  PaymentResolver
	verifier  webhook.Verifier
	cfg       Config
	relaxed   map[string]bool
	now       func() time.Time
	log       *logger.Logger
}

// NewGateway construye el gateway. resolver nil usa PayloadResolver, que sólo se
// admite fuera de producción: la firma no cubre estado ni venta del cuerpo.
func NewGateway(
	records repository.WebhookRecordRepository,
	confirmer Confirmer,
	resolver PaymentResolver,
	cfg Config,
	log *logger.Logger,
) (*Gateway, error) {
	if log == nil {
		log = logger.Nop()
	}
	if resolver == nil {
		if cfg.Production {
			return nil, ErrResolverRequired
		}
		log.Warn().Msg("sin API de la pasarela: estado y venta se leen del payload sin autenticar")
		resolver = PayloadResolver{}
	}
	relaxed := make(map[string]bool, len(cfg.RelaxedTopics))
	for _, t := range cfg.RelaxedTopics {
		relaxed[t] = true
	}
	g := &Gateway{
		records:   records,
		confirmer: confirmer,
		resolver:  resolver,
		cfg:       cfg,
		relaxed:   relaxed,
		now:       time.Now,
		log:       log.Component("webhooks"),
	}
	g.verifier = webhook.Verifier{Secret: cfg.Secret, MaxAge: cfg.MaxAge, Now: func() time.Time { return g.now() }}
	return g, nil
}

// SetClock reemplaza el reloj usado para la frescura (pruebas).
func (g *Gateway) SetClock(now func() time.Time) { g.now = now }

// Receive procesa una entrega. Toda entrega queda registrada, incluso las rechazadas
// (estado rejected). Devuelve ErrPayloadInvalid, ErrResourceIDMissing o un error de
// firma (ErrUnauthorized) para rechazarla;
// en cualquier otro caso el registro ya es durable y el error de procesamiento queda
// en el registro, no en el retorno.
func (g *Gateway) Receive(ctx context.Context, h Headers, body []byte) (Result, error) {
	n, parseErr := ParseNotification(body)
	rec := &entity.WebhookRecord{
		GatewayEventID:   n.EventID,
		Topic:            n.Topic,
		ResourceID:       n.ResourceID,
		RequestID:        h.RequestID,
		Payload:          body,
		ReceivedAt:       g.now(),
		ProcessingStatus: entity.WebhookStatusPending,
	}

	if parseErr != nil {
		return g.reject(ctx, rec, parseErr)
	}
	verified, err := g.verify(h, n)
	if err != nil {
		return g.reject(ctx, rec, err)
	}
	rec.SignatureValid = verified

	if err := g.records.Create(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("%w: registrar webhook: %v", domain.ErrTransientInfra, err)
	}
	return g.process(ctx, rec, n), nil
}

// ListFailed entregas fallidas para revisión del operador.
func (g *Gateway) ListFailed(ctx context.Context, limit int) ([]*entity.WebhookRecord, error) {
	return g.records.ListFailed(ctx, limit)
}

// Retry reprocesa el payload guardado de un registro no procesado e incrementa retry_count.
// La firma no se vuelve a verificar, por eso los registros rechazados en la recepción
// no se reintentan.
func (g *Gateway) Retry(ctx context.Context, id string) (Result, error) {
	rec, err := g.get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	switch rec.ProcessingStatus {
	case entity.WebhookStatusProcessed:
		return Result{}, fmt.Errorf("webhook %s ya procesado: %w", id, domain.ErrConflict)
	case entity.WebhookStatusRejected:
		return Result{}, fmt.Errorf("webhook %s: %w", id, domain.ErrWebhookRejected)
	}
	n, err := ParseNotification(rec.Payload)
	if err != nil {
		return Result{}, fmt.Errorf("webhook %s: %w", id, err)
	}
	rec.RetryCount++
	g.log.Info().Str("record_id", id).Int("retry_count", rec.RetryCount).Msg("reintento manual de webhook")
	return g.process(ctx, rec, n), nil
}

// Reset devuelve el registro a pending con contador y error limpios.
// Un registro rechazado en la recepción conserva su estado.
func (g *Gateway) Reset(ctx context.Context, id string) (*entity.WebhookRecord, error) {
	rec, err := g.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.ProcessingStatus == entity.WebhookStatusRejected {
		return nil, fmt.Errorf("webhook %s: %w", id, domain.ErrWebhookRejected)
	}
	rec.ProcessingStatus = entity.WebhookStatusPending
	rec.RetryCount = 0
	rec.LastError = ""
	if err := g.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (g *Gateway) get(ctx context.Context, id string) (*entity.WebhookRecord, error) {
	rec, err := g.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("webhook %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// verify devuelve si la firma quedó verificada. Fuera de producción los tópicos
// relajados no se validan y un timestamp vencido sólo se advierte.
func (g *Gateway) verify(h Headers, n Notification) (bool, error) {
	if !g.cfg.Production && g.relaxed[n.Topic] {
		g.log.Debug().Str("topic", n.Topic).Msg("tópico relajado: firma no validada")
		return false, nil
	}
	if g.cfg.Secret == "" {
		if g.cfg.Production {
			return false, fmt.Errorf("%w: secreto de webhook no configurado", domain.ErrSignatureInvalid)
		}
		g.log.Warn().Msg("WEBHOOK_SECRET vacío: firma no validada")
		return false, nil
	}
	_, err := g.verifier.Verify(h.Signature, n.ResourceID, h.RequestID)
	if errors.Is(err, domain.ErrTimestampExpired) && !g.cfg.Production {
		g.log.Warn().Str("resource_id", n.ResourceID).Msg("timestamp fuera de ventana, aceptado fuera de producción")
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *Gateway) reject(ctx context.Context, rec *entity.WebhookRecord, cause error) (Result, error) {
	rec.SignatureValid = false
	rec.ProcessingStatus = entity.WebhookStatusRejected
	rec.LastError = cause.Error()
	if err := g.records.Create(ctx, rec); err != nil {
		g.log.Error().Err(err).Msg("no se pudo registrar el webhook rechazado")
	}
	g.log.Warn().Err(cause).Str("record_id", rec.ID).Str("topic", rec.Topic).Msg("webhook rechazado")
	return Result{RecordID: rec.ID, Status: rec.ProcessingStatus}, cause
}

// process resuelve el pago, confirma si está aprobado y persiste el estado final.
func (g *Gateway) process(ctx context.Context, rec *entity.WebhookRecord, n Notification) Result {
	res := Result{RecordID: rec.ID}
	saleID, err := g.handle(ctx, rec, n, &res)
	res.SaleID = saleID
	if err != nil {
		rec.ProcessingStatus = entity.WebhookStatusFailed
		rec.LastError = err.Error()
		g.log.Error().Err(err).Str("record_id", rec.ID).Str("sale_id", saleID).Msg("webhook no procesado")
	} else {
		rec.ProcessingStatus = entity.WebhookStatusProcessed
	}
	if err := g.records.Update(ctx, rec); err != nil {
		g.log.Error().Err(err).Str("record_id", rec.ID).Msg("no se pudo actualizar el registro de webhook")
	}
	res.Status = rec.ProcessingStatus
	return res
}

func (g *Gateway) handle(ctx context.Context, rec *entity.WebhookRecord, n Notification, res *Result) (string, error) {
	dup, err := g.records.FindProcessedByEventID(ctx, n.EventID)
	if err != nil {
		return "", fmt.Errorf("buscar duplicado: %w", err)
	}
	if dup != nil && dup.ID != rec.ID {
		rec.LastError = "duplicado de " + dup.ID
		res.Duplicate = true
		g.log.Info().Str("record_id", rec.ID).Str("original", dup.ID).Msg("webhook duplicado")
		return "", nil
	}
	rec.LastError = ""

	if n.Topic != TopicPayment {
		g.log.Debug().Str("topic", n.Topic).Msg("tópico sin acción")
		return "", nil
	}
	payment, err := g.resolver.Resolve(ctx, n.ResourceID, rec.Payload)
	if err != nil {
		return "", fmt.Errorf("resolver pago %s: %w", n.ResourceID, err)
	}
	if payment.Status != PaymentStatusApproved {
		g.log.Info().Str("payment_id", n.ResourceID).Str("status", payment.Status).Msg("pago no aprobado, sin confirmación")
		return payment.ExternalReference, nil
	}
	if payment.ExternalReference == "" {
		return "", fmt.Errorf("pago %s sin external_reference", n.ResourceID)
	}
	_, err = g.confirmer.ConfirmPayment(ctx, payment.ExternalReference, reconciliation.ConfirmOptions{
		Note:      "pago " + n.ResourceID,
		Actor:     "pasarela",
		Initiator: entity.InitiatorWebhook,
	})
	return payment.ExternalReference, err
}
