package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock actual de un producto. Un producto sin fila tiene 0 unidades.
func (r *StockRepo) Get(ctx context.Context, productID string) (*entity.Stock, error) {
	query := `SELECT product_id, quantity, updated_at FROM product_stock WHERE product_id = $1`
	return r.scanOne(ctx, query, productID, "get stock")
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, productID string) (*entity.Stock, error) {
	query := `SELECT product_id, quantity, updated_at FROM product_stock WHERE product_id = $1 FOR UPDATE`
	return r.scanOne(ctx, query, productID, "get stock for update")
}

func (r *StockRepo) scanOne(ctx context.Context, query, productID, op string) (*entity.Stock, error) {
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, productID).Scan(&s.ProductID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{ProductID: productID}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

// Decrement resta qty sólo si alcanza: el WHERE hace el descuento condicional y el
// CHECK (quantity >= 0) de la tabla respalda el invariante.
func (r *StockRepo) Decrement(ctx context.Context, productID string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("decrement stock %s: cantidad %d: %w", productID, qty, domain.ErrInvalidInput)
	}
	query := `
		UPDATE product_stock SET quantity = quantity - $2, updated_at = now()
		WHERE product_id = $1 AND quantity >= $2`
	tag, err := r.q.Exec(ctx, query, productID, qty)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// Set fija la cantidad de un producto (carga inicial y semillas).
func (r *StockRepo) Set(ctx context.Context, productID string, qty int64) error {
	query := `
		INSERT INTO product_stock (product_id, quantity, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, productID, qty); err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	return nil
}
