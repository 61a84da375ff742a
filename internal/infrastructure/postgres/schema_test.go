package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchema_DefineTablasYRestricciones(t *testing.T) {
	s := Schema()
	for _, table := range []string{"sales", "sale_details", "product_stock", "audit_log", "webhook_records"} {
		assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, s, "CHECK (quantity >= 0)", "el stock nunca puede quedar negativo")
	assert.True(t, strings.Contains(s, "'pendiente', 'aprobado', 'cancelado', 'vencido'"))
	assert.Contains(t, s, "'pending', 'processed', 'failed', 'rejected'")
}
