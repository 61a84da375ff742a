package sale

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// Validate comprueba las invariantes de creación: líneas con cantidad positiva,
// precio y descuento no negativos, descuento acotado por el bruto de la línea
// y total igual a la suma de subtotales.
func Validate(s *entity.Sale) error {
	if s == nil {
		return fmt.Errorf("%w: venta nula", domain.ErrInvalidInput)
	}
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("id requerido"))
	}
	if !s.Status.Valid() {
		errs = append(errs, fmt.Errorf("estado desconocido %q", s.Status))
	}
	if len(s.Items) == 0 {
		errs = append(errs, errors.New("la venta debe tener al menos una línea"))
	}
	for i, it := range s.Items {
		if it.ProductID == "" {
			errs = append(errs, fmt.Errorf("línea %d: producto requerido", i))
		}
		if it.Quantity <= 0 {
			errs = append(errs, fmt.Errorf("línea %d: cantidad debe ser > 0", i))
		}
		if it.UnitPrice.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: precio unitario negativo", i))
		}
		gross := it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
		if it.Discount.IsNegative() || it.Discount.GreaterThan(gross) {
			errs = append(errs, fmt.Errorf("línea %d: descuento fuera de rango", i))
		}
	}
	if len(errs) == 0 && !s.Total.Equal(Total(s.Items)) {
		errs = append(errs, fmt.Errorf("total (%s) no coincide con la suma de subtotales (%s)", s.Total, Total(s.Items)))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// Total suma los subtotales de las líneas.
func Total(items []entity.SaleDetail) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
