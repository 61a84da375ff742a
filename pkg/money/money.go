// Package money formatea montos en pesos para comprobantes y correos.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.MustParse("es-CO"))

// Format devuelve el monto redondeado a pesos con separador de miles, p. ej. "$25.000".
func Format(d decimal.Decimal) string {
	return "$" + printer.Sprint(number.Decimal(d.Round(0).IntPart(), number.Scale(0)))
}
