package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// SaleRepository puerto de persistencia de ventas.
// El estado sólo cambia con UpdateStatus, que es un compare-and-set sobre el estado esperado.
type SaleRepository interface {
	// GetByID devuelve la venta con sus líneas, o (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// GetForUpdate igual que GetByID pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Sale, error)
	// UpdateStatus aplica expected → next sólo si el estado actual es expected.
	// Devuelve las filas afectadas (0 = no aplica).
	UpdateStatus(ctx context.Context, id string, expected, next entity.SaleStatus, patch entity.SaleStatusPatch) (int64, error)
	// ListPendingCreatedBefore ids de ventas pendientes creadas en o antes de cutoff.
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	// SetShipment guarda la referencia del pre-envío y el código de seguimiento.
	SetShipment(ctx context.Context, id, shipmentRef, trackingCode string) error
}
