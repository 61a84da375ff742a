package entity

import "time"

// Stock contador de existencias de un producto. Nunca queda negativo tras un descuento confirmado.
type Stock struct {
	ProductID string
	Quantity  int64
	UpdatedAt time.Time
}
