package sideeffects

import (
	"context"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// Shipment resultado de un pre-envío en el transportista.
type Shipment struct {
	Ref          string
	TrackingCode string
}

// CarrierClient crea pre-envíos. Debe ser idempotente por venta.
type CarrierClient interface {
	CreatePreShipment(ctx context.Context, sale *entity.Sale) (Shipment, error)
}

// OrderConfirmation contenido de la notificación de confirmación.
type OrderConfirmation struct {
	Sale         *entity.Sale
	TrackingCode string
	Receipt      []byte // PDF; puede ir vacío si no se pudo generar
}

// Notifier envía la notificación de confirmación al cliente.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, n OrderConfirmation) error
}

// ReceiptRenderer genera el comprobante PDF de la venta.
type ReceiptRenderer interface {
	Render(sale *entity.Sale, trackingCode string) ([]byte, error)
}
