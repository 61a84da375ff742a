package entity

import "time"

// TopicSaleConfirmed tópico del bus para confirmaciones de pago.
const TopicSaleConfirmed = "venta.confirmada"

// SaleConfirmed evento emitido tras confirmar el pago de una venta.
type SaleConfirmed struct {
	SaleID    string     `json:"sale_id"`
	Status    SaleStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}
