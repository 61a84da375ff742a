package sales

import (
	"context"

	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de almacenamiento, pasando
// repositorios atados a esa tx. Si fn devuelve error no queda ningún cambio aplicado.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		saleRepo repository.SaleRepository,
		stockRepo repository.StockRepository,
		auditRepo repository.AuditRepository,
	) error) error
}
