package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// SaleActionRequest cuerpo opcional de las operaciones manuales sobre una venta.
type SaleActionRequest struct {
	Note string `json:"note"`
}

// SaleItemResponse línea de la venta.
type SaleItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleResponse salida de una venta.
type SaleResponse struct {
	ID              string             `json:"id"`
	Status          string             `json:"status"`
	Total           decimal.Decimal    `json:"total"`
	CustomerName    string             `json:"customer_name,omitempty"`
	CustomerEmail   string             `json:"customer_email,omitempty"`
	FulfillmentType string             `json:"fulfillment_type"`
	ShipmentRef     string             `json:"shipment_ref,omitempty"`
	TrackingCode    string             `json:"tracking_code,omitempty"`
	Items           []SaleItemResponse `json:"items"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// ConfirmPaymentResponse resultado de la confirmación manual.
type ConfirmPaymentResponse struct {
	Sale            SaleResponse `json:"sale"`
	AlreadyApproved bool         `json:"already_approved"`
}

// ExpirationResponse resumen de una corrida de vencimiento.
type ExpirationResponse struct {
	Count      int      `json:"count"`
	IDs        []string `json:"ids"`
	DurationMs int64    `json:"durationMs"`
}

// ShipmentResponse pre-envío creado por un reintento manual.
type ShipmentResponse struct {
	SaleID       string `json:"sale_id"`
	ShipmentRef  string `json:"shipment_ref"`
	TrackingCode string `json:"tracking_code,omitempty"`
}

// NewSaleResponse mapea la entidad a la respuesta.
func NewSaleResponse(s *entity.Sale) SaleResponse {
	items := make([]SaleItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, SaleItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Subtotal:    it.Subtotal(),
		})
	}
	return SaleResponse{
		ID:              s.ID,
		Status:          string(s.Status),
		Total:           s.Total,
		CustomerName:    s.CustomerName,
		CustomerEmail:   s.CustomerEmail,
		FulfillmentType: s.FulfillmentType,
		ShipmentRef:     s.ShipmentRef,
		TrackingCode:    s.TrackingCode,
		Items:           items,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
