package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementación de SaleRepository sobre PostgreSQL (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador de ventas.
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, status, total, customer_name, customer_email, fulfillment_type,
	shipment_ref, tracking_code, created_at, updated_at`

// GetByID devuelve la venta con sus líneas, o (nil, nil) si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
}

// GetForUpdate igual que GetByID, bloqueando la cabecera hasta el fin de la tx.
func (r *SaleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
}

func (r *SaleRepo) get(ctx context.Context, query, id string) (*entity.Sale, error) {
	var (
		s                   entity.Sale
		status              string
		shipRef, trackingCd *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &status, &s.Total, &s.CustomerName, &s.CustomerEmail, &s.FulfillmentType,
		&shipRef, &trackingCd, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s.Status = entity.SaleStatus(status)
	s.ShipmentRef = derefStr(shipRef)
	s.TrackingCode = derefStr(trackingCd)

	items, err := r.details(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Items = items
	return &s, nil
}

func (r *SaleRepo) details(ctx context.Context, saleID string) ([]entity.SaleDetail, error) {
	query := `
		SELECT product_id, product_name, quantity, unit_price, discount
		FROM sale_details WHERE sale_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale details: %w", err)
	}
	defer rows.Close()

	var out []entity.SaleDetail
	for rows.Next() {
		var d entity.SaleDetail
		if err := rows.Scan(&d.ProductID, &d.ProductName, &d.Quantity, &d.UnitPrice, &d.Discount); err != nil {
			return nil, fmt.Errorf("scan sale detail: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateStatus compare-and-set: sólo cambia la fila si el estado actual es expected.
func (r *SaleRepo) UpdateStatus(ctx context.Context, id string, expected, next entity.SaleStatus, patch entity.SaleStatusPatch) (int64, error) {
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	query := `UPDATE sales SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	tag, err := r.q.Exec(ctx, query, id, string(expected), string(next), updatedAt)
	if err != nil {
		return 0, fmt.Errorf("update sale status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListPendingCreatedBefore ids de ventas pendientes con created_at <= cutoff.
func (r *SaleRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `SELECT id FROM sales WHERE status = $1 AND created_at <= $2 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, string(entity.SaleStatusPendiente), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expirable sales: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan expirable sales: %w", err)
	}
	return ids, nil
}

// SetShipment guarda la referencia del pre-envío y el código de seguimiento.
func (r *SaleRepo) SetShipment(ctx context.Context, id, shipmentRef, trackingCode string) error {
	query := `UPDATE sales SET shipment_ref = $2, tracking_code = $3, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, nullIfEmpty(shipmentRef), nullIfEmpty(trackingCode))
	if err != nil {
		return fmt.Errorf("set shipment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set shipment %s: venta inexistente", id)
	}
	return nil
}

// Create inserta cabecera y líneas. Lo usan la carga de datos y las pruebas de integración.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	query := `
		INSERT INTO sales (id, status, total, customer_name, customer_email, fulfillment_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	if _, err := r.q.Exec(ctx, query, s.ID, string(s.Status), s.Total, s.CustomerName, s.CustomerEmail, s.FulfillmentType, s.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create sale %s: ya existe", s.ID)
		}
		return fmt.Errorf("create sale: %w", err)
	}
	for _, d := range s.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO sale_details (sale_id, product_id, product_name, quantity, unit_price, discount)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			s.ID, d.ProductID, d.ProductName, d.Quantity, d.UnitPrice, d.Discount)
		if err != nil {
			return fmt.Errorf("create sale detail: %w", err)
		}
	}
	return nil
}
