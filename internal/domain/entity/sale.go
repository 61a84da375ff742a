package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus estado del ciclo de pago de una venta.
type SaleStatus string

// Estados de la venta. pendiente es el inicial; los demás son terminales
// salvo la recuperación administrativa vencido → aprobado.
const (
	SaleStatusPendiente SaleStatus = "pendiente"
	SaleStatusAprobado  SaleStatus = "aprobado"
	SaleStatusCancelado SaleStatus = "cancelado"
	SaleStatusVencido   SaleStatus = "vencido"
)

// Valid indica si el valor es un estado conocido.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusPendiente, SaleStatusAprobado, SaleStatusCancelado, SaleStatusVencido:
		return true
	}
	return false
}

// Tipos de entrega.
const (
	FulfillmentEnvio  = "envio"  // despacho con transportista
	FulfillmentRetiro = "retiro" // retiro en tienda, sin pre-envío
)

// Sale cabecera de la venta con sus líneas.
type Sale struct {
	ID              string
	Status          SaleStatus
	Total           decimal.Decimal
	CustomerName    string
	CustomerEmail   string
	FulfillmentType string
	ShipmentRef     string
	TrackingCode    string
	Items           []SaleDetail
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SaleDetail línea inmutable de la venta.
type SaleDetail struct {
	ProductID   string
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
}

// Subtotal cantidad × precio unitario − descuento.
func (d SaleDetail) Subtotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(d.Quantity)).Sub(d.Discount)
}

// SaleStatusPatch campos que acompañan una transición guardada.
type SaleStatusPatch struct {
	UpdatedAt time.Time
}
