package inventory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

func TestRequirements_AgrupaYOrdena(t *testing.T) {
	reqs := Requirements([]entity.SaleDetail{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	})
	assert.Equal(t, []Requirement{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 4}}, reqs)
}

func TestShortages_DetallePorProducto(t *testing.T) {
	reqs := []Requirement{{ProductID: "7", Quantity: 2}, {ProductID: "8", Quantity: 3}}

	require.NoError(t, Shortages(reqs, map[string]int64{"7": 10, "8": 3}))

	err := Shortages(reqs, map[string]int64{"7": 10, "8": 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.ErrorIs(t, err, domain.ErrConflict)

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, []domain.StockShortage{{ProductID: "8", Requested: 3, Available: 2}}, stockErr.Items)
}
