package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// PaymentStatusApproved único estado de pago que confirma una venta.
const PaymentStatusApproved = "approved"

// Payment estado de un pago en la pasarela.
type Payment struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"` // id de la venta
}

// ErrResolverRequired en producción el pago se resuelve siempre contra la API de la pasarela.
var ErrResolverRequired = errors.New("webhooks: producción requiere PAYMENT_GATEWAY_ACCESS_TOKEN para resolver pagos")

// PaymentResolver obtiene el estado del pago notificado.
type PaymentResolver interface {
	Resolve(ctx context.Context, resourceID string, payload []byte) (Payment, error)
}

// PayloadResolver lee estado y referencia externa del propio cuerpo de la notificación
// (data.status / data.external_reference, o los mismos campos en la raíz).
// Esos campos no están firmados: sólo se usa fuera de producción, cuando no hay
// credenciales para consultar la API de la pasarela.
type PayloadResolver struct{}

func (PayloadResolver) Resolve(_ context.Context, resourceID string, payload []byte) (Payment, error) {
	var body struct {
		Status            string `json:"status"`
		ExternalReference string `json:"external_reference"`
		Data              struct {
			Status            string `json:"status"`
			ExternalReference string `json:"external_reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Payment{}, fmt.Errorf("leer pago del payload: %w", err)
	}
	return Payment{
		ID:                resourceID,
		Status:            firstNonEmpty(body.Data.Status, body.Status),
		ExternalReference: firstNonEmpty(body.Data.ExternalReference, body.ExternalReference),
	}, nil
}
