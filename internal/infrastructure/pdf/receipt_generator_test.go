package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

func TestRender_GeneraPDF(t *testing.T) {
	sale := &entity.Sale{
		ID:              "100",
		Status:          entity.SaleStatusAprobado,
		Total:           decimal.NewFromInt(100),
		CustomerName:    "Ana Pérez",
		CustomerEmail:   "ana@example.com",
		FulfillmentType: entity.FulfillmentEnvio,
		Items:           []entity.SaleDetail{{ProductID: "7", ProductName: "Café", Quantity: 2, UnitPrice: decimal.NewFromInt(50)}},
		CreatedAt:       time.Now(),
	}

	for _, tracking := range []string{"", "TRK-1"} {
		out, err := NewReceiptGenerator("Tienda Demo").Render(sale, tracking)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	}
}

func TestRender_VentaNula(t *testing.T) {
	_, err := NewReceiptGenerator("x").Render(nil, "")
	assert.Error(t, err)
}
