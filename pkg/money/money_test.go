package money

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func TestFormat_AgrupaMilesYRedondea(t *testing.T) {
	out := Format(decimal.RequireFromString("1234567.6"))
	assert.True(t, strings.HasPrefix(out, "$"))
	assert.Equal(t, "1234568", digits(out))
	assert.Greater(t, len(out), len("$1234568"), "debe incluir separadores de miles")
}

func TestFormat_MontosPequenos(t *testing.T) {
	assert.Equal(t, "$50", Format(decimal.NewFromInt(50)))
	assert.Equal(t, "$0", Format(decimal.Zero))
}
