package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrSaleNotFound      = fmt.Errorf("venta no encontrada: %w", ErrNotFound)
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInvalidTransition = fmt.Errorf("transición de estado inválida: %w", ErrConflict)
	ErrInsufficientStock = fmt.Errorf("stock insuficiente: %w", ErrConflict)
	ErrTransientInfra    = errors.New("falla transitoria de infraestructura")

	// Rechazos del gateway de webhooks.
	ErrSignatureFormatInvalid = fmt.Errorf("formato de firma inválido: %w", ErrUnauthorized)
	ErrSignatureInvalid       = fmt.Errorf("firma inválida: %w", ErrUnauthorized)
	ErrTimestampExpired       = fmt.Errorf("timestamp expirado: %w", ErrUnauthorized)
	ErrResourceIDMissing      = fmt.Errorf("id de recurso ausente: %w", ErrInvalidInput)
	ErrPayloadInvalid         = fmt.Errorf("payload inválido: %w", ErrInvalidInput)

	// ErrWebhookRejected la entrega se rechazó al recibirla y no admite reintento ni reinicio.
	ErrWebhookRejected = fmt.Errorf("webhook rechazado en la recepción: %w", ErrConflict)
)

// StockShortage detalle de faltante para un producto.
type StockShortage struct {
	ProductID string `json:"product_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// InsufficientStockError agrupa todos los faltantes detectados antes de descontar.
// errors.Is(err, ErrInsufficientStock) es verdadero.
type InsufficientStockError struct {
	Items []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("%s (solicitado %d, disponible %d)", it.ProductID, it.Requested, it.Available))
	}
	return "stock insuficiente: " + strings.Join(parts, ", ")
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
