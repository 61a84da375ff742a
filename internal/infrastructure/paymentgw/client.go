// Package paymentgw consulta la API de la pasarela de pagos para resolver el pago notificado.
package paymentgw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jhoicas/Ventas-api/internal/application/webhooks"
	"github.com/jhoicas/Ventas-api/pkg/config"
)

var _ webhooks.PaymentResolver = (*Client)(nil)

// Client GET /v1/payments/{id} con el access token de la cuenta.
type Client struct {
	http *resty.Client
}

// New construye el cliente. Devuelve nil sin access token; fuera de producción el gateway
// lee entonces el payload.
func New(cfg config.PaymentGatewayConfig) *Client {
	if cfg.AccessToken == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{http: resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError || r.StatusCode() == http.StatusTooManyRequests
		}),
	}
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

// Resolve ignora el payload: la fuente de verdad es la API.
func (c *Client) Resolve(ctx context.Context, resourceID string, _ []byte) (webhooks.Payment, error) {
	var out paymentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", resourceID).
		SetResult(&out).
		Get("/v1/payments/{id}")
	if err != nil {
		return webhooks.Payment{}, fmt.Errorf("payment gateway: %w", err)
	}
	if resp.IsError() {
		return webhooks.Payment{}, fmt.Errorf("payment gateway: pago %s: HTTP %d", resourceID, resp.StatusCode())
	}
	id := out.ID.String()
	if id == "" {
		id = resourceID
	}
	return webhooks.Payment{ID: id, Status: out.Status, ExternalReference: out.ExternalReference}, nil
}
