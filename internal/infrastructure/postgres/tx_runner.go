package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/Ventas-api/internal/application/sales"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

// Ensure TxRunner implements sales.TxRunner.
var _ sales.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewTxRunner construye el runner con el pool. timeout <= 0 deja el contexto del llamador.
func NewTxRunner(pool *pgxpool.Pool, timeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, timeout: timeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Cualquier error de fn (o del commit) deja la base como estaba.
func (r *TxRunner) Run(ctx context.Context, fn func(
	saleRepo repository.SaleRepository,
	stockRepo repository.StockRepository,
	auditRepo repository.AuditRepository,
) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewSaleRepository(tx), NewStockRepository(tx), NewAuditRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
