// Package sideeffects ejecuta, después del commit, las acciones externas que
// siguen a una confirmación de pago: pre-envío y notificación al cliente.
package sideeffects

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// DefaultTimeout límite de una corrida completa de efectos.
const DefaultTimeout = 30 * time.Second

// Orchestrator corre los efectos en su propia goroutine con su propio contexto.
// Ningún fallo (ni pánico) llega a quien confirmó el pago.
// carrier, notifier y receipts pueden ser nil: el paso correspondiente se omite.
type Orchestrator struct {
	saleRepo repository.SaleRepository
	carrier  CarrierClient
	notifier Notifier
	receipts ReceiptRenderer
	timeout  time.Duration
	log      *logger.Logger
}

// NewOrchestrator construye el orquestador.
func NewOrchestrator(
	saleRepo repository.SaleRepository,
	carrier CarrierClient,
	notifier Notifier,
	receipts ReceiptRenderer,
	timeout time.Duration,
	log *logger.Logger,
) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		saleRepo: saleRepo,
		carrier:  carrier,
		notifier: notifier,
		receipts: receipts,
		timeout:  timeout,
		log:      log.Component("sideeffects"),
	}
}

// Dispatch dispara los efectos de saleID y retorna de inmediato.
func (o *Orchestrator) Dispatch(saleID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()
		o.Run(ctx, saleID)
	}()
}

// Run ejecuta los efectos de forma síncrona. Relee la venta: sólo actúa si está aprobada.
func (o *Orchestrator) Run(ctx context.Context, saleID string) {
	defer o.recoverPanic(saleID, "run")

	sale, err := o.saleRepo.GetByID(ctx, saleID)
	if err != nil || sale == nil {
		o.log.Error().Err(err).Str("sale_id", saleID).Msg("no se pudo releer la venta para efectos")
		return
	}
	if sale.Status != entity.SaleStatusAprobado {
		o.log.Warn().Str("sale_id", saleID).Str("status", string(sale.Status)).Msg("venta no aprobada, efectos omitidos")
		return
	}

	o.safe(saleID, "pre-envio", func() error { return o.ensureShipment(ctx, sale) })
	o.safe(saleID, "notificacion", func() error { return o.notify(ctx, sale) })
}

// RetryShipment reintento manual y síncrono del pre-envío de una venta aprobada sin envío.
func (o *Orchestrator) RetryShipment(ctx context.Context, saleID string) (Shipment, error) {
	sale, err := o.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return Shipment{}, err
	}
	if sale == nil {
		return Shipment{}, domain.ErrSaleNotFound
	}
	if sale.Status != entity.SaleStatusAprobado {
		return Shipment{}, fmt.Errorf("venta %s en estado %s: %w", saleID, sale.Status, domain.ErrInvalidTransition)
	}
	if sale.FulfillmentType == entity.FulfillmentRetiro {
		return Shipment{}, fmt.Errorf("venta %s es retiro en tienda: %w", saleID, domain.ErrConflict)
	}
	if sale.ShipmentRef != "" {
		return Shipment{}, fmt.Errorf("venta %s ya tiene pre-envío %s: %w", saleID, sale.ShipmentRef, domain.ErrConflict)
	}
	if o.carrier == nil {
		return Shipment{}, fmt.Errorf("transportista no configurado: %w", domain.ErrTransientInfra)
	}
	sh, err := o.createShipment(ctx, sale)
	if err != nil {
		return Shipment{}, fmt.Errorf("%w: %v", domain.ErrTransientInfra, err)
	}
	return sh, nil
}

func (o *Orchestrator) ensureShipment(ctx context.Context, sale *entity.Sale) error {
	if sale.FulfillmentType == entity.FulfillmentRetiro {
		o.log.Debug().Str("sale_id", sale.ID).Msg("retiro en tienda: sin pre-envío")
		return nil
	}
	if sale.ShipmentRef != "" || o.carrier == nil {
		return nil
	}
	_, err := o.createShipment(ctx, sale)
	return err
}

func (o *Orchestrator) createShipment(ctx context.Context, sale *entity.Sale) (Shipment, error) {
	sh, err := o.carrier.CreatePreShipment(ctx, sale)
	if err != nil {
		return Shipment{}, fmt.Errorf("crear pre-envío: %w", err)
	}
	if err := o.saleRepo.SetShipment(ctx, sale.ID, sh.Ref, sh.TrackingCode); err != nil {
		return Shipment{}, fmt.Errorf("guardar pre-envío %s: %w", sh.Ref, err)
	}
	sale.ShipmentRef, sale.TrackingCode = sh.Ref, sh.TrackingCode
	o.log.Info().Str("sale_id", sale.ID).Str("shipment_ref", sh.Ref).Msg("pre-envío creado")
	return sh, nil
}

func (o *Orchestrator) notify(ctx context.Context, sale *entity.Sale) error {
	if o.notifier == nil {
		return nil
	}
	n := OrderConfirmation{Sale: sale, TrackingCode: sale.TrackingCode}
	if o.receipts != nil {
		pdf, err := o.receipts.Render(sale, sale.TrackingCode)
		if err != nil {
			o.log.Warn().Err(err).Str("sale_id", sale.ID).Msg("comprobante no generado, se notifica sin adjunto")
		} else {
			n.Receipt = pdf
		}
	}
	if err := o.notifier.SendOrderConfirmation(ctx, n); err != nil {
		return fmt.Errorf("enviar notificación: %w", err)
	}
	return nil
}

// safe aísla cada acción: error o pánico se registran y la siguiente acción sigue.
func (o *Orchestrator) safe(saleID, step string, fn func() error) {
	defer o.recoverPanic(saleID, step)
	if err := fn(); err != nil {
		o.log.Error().Err(err).Str("sale_id", saleID).Str("step", step).Msg("efecto posterior fallido")
	}
}

func (o *Orchestrator) recoverPanic(saleID, step string) {
	if r := recover(); r != nil {
		o.log.Error().Str("sale_id", saleID).Str("step", step).Interface("panic", r).Msg("efecto posterior en pánico")
	}
}
