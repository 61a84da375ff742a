// Package carrier cliente HTTP del transportista para crear pre-envíos.
package carrier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jhoicas/Ventas-api/internal/application/sideeffects"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/pkg/config"
)

var _ sideeffects.CarrierClient = (*Client)(nil)

// Client adaptador REST del transportista. Reintenta errores 5xx y de red;
// la cabecera Idempotency-Key (id de venta) evita pre-envíos duplicados.
type Client struct {
	http *resty.Client
}

// New construye el cliente. Devuelve nil si no hay URL configurada.
func New(cfg config.CarrierConfig) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{http: c}
}

type preShipmentItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type preShipmentRequest struct {
	Reference     string            `json:"reference"`
	RecipientName string            `json:"recipient_name"`
	Email         string            `json:"recipient_email"`
	DeclaredValue string            `json:"declared_value"`
	Items         []preShipmentItem `json:"items"`
}

type preShipmentResponse struct {
	ID           string `json:"id"`
	TrackingCode string `json:"tracking_code"`
}

type apiError struct {
	Message string `json:"message"`
}

// CreatePreShipment POST /v1/pre-shipments.
func (c *Client) CreatePreShipment(ctx context.Context, sale *entity.Sale) (sideeffects.Shipment, error) {
	body := preShipmentRequest{
		Reference:     sale.ID,
		RecipientName: sale.CustomerName,
		Email:         sale.CustomerEmail,
		DeclaredValue: sale.Total.StringFixed(2),
	}
	for _, it := range sale.Items {
		body.Items = append(body.Items, preShipmentItem{SKU: it.ProductID, Name: it.ProductName, Quantity: it.Quantity})
	}

	var out preShipmentResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", sale.ID).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/pre-shipments")
	if err != nil {
		return sideeffects.Shipment{}, fmt.Errorf("carrier: %w", err)
	}
	if resp.IsError() {
		return sideeffects.Shipment{}, fmt.Errorf("carrier: HTTP %d: %s", resp.StatusCode(), apiErr.Message)
	}
	if out.ID == "" {
		return sideeffects.Shipment{}, fmt.Errorf("carrier: respuesta sin id de pre-envío")
	}
	return sideeffects.Shipment{Ref: out.ID, TrackingCode: out.TrackingCode}, nil
}
