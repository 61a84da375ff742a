package repository

import (
	"context"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// StockRepository puerto del contador de existencias.
// Decrement es la única vía de escritura y falla cerrado si el resultado sería negativo.
type StockRepository interface {
	Get(ctx context.Context, productID string) (*entity.Stock, error)
	// GetForUpdate bloquea la fila del producto (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, productID string) (*entity.Stock, error)
	// Decrement resta qty; devuelve domain.ErrInsufficientStock si no alcanza.
	Decrement(ctx context.Context, productID string, qty int64) error
}
