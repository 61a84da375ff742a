// Package notify envía la notificación de confirmación por una API de correo transaccional.
package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jhoicas/Ventas-api/internal/application/sideeffects"
	"github.com/jhoicas/Ventas-api/pkg/config"
	"github.com/jhoicas/Ventas-api/pkg/money"
)

var _ sideeffects.Notifier = (*Mailer)(nil)

// Mailer adaptador REST del proveedor de correo.
type Mailer struct {
	http *resty.Client
	from string
}

// NewMailer construye el adaptador. Devuelve nil si no hay URL configurada.
func NewMailer(cfg config.MailConfig) *Mailer {
	if cfg.BaseURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Mailer{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(timeout).
			SetAuthToken(cfg.APIKey).
			SetHeader("Accept", "application/json"),
		from: cfg.From,
	}
}

type attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"` // base64
}

type message struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

// SendOrderConfirmation POST /v1/messages con el comprobante adjunto cuando existe.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, n sideeffects.OrderConfirmation) error {
	if n.Sale == nil || n.Sale.CustomerEmail == "" {
		return fmt.Errorf("mail: venta sin email de cliente")
	}
	msg := message{
		From:    m.from,
		To:      []string{n.Sale.CustomerEmail},
		Subject: "Confirmamos el pago de tu pedido " + n.Sale.ID,
		Text:    Body(n),
	}
	if len(n.Receipt) > 0 {
		msg.Attachments = []attachment{{
			Filename:    "comprobante-" + n.Sale.ID + ".pdf",
			ContentType: "application/pdf",
			Content:     base64.StdEncoding.EncodeToString(n.Receipt),
		}}
	}

	resp, err := m.http.R().SetContext(ctx).SetBody(msg).Post("/v1/messages")
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail: HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// Body texto plano del correo.
func Body(n sideeffects.OrderConfirmation) string {
	var b strings.Builder
	name := n.Sale.CustomerName
	if name == "" {
		name = "cliente"
	}
	fmt.Fprintf(&b, "Hola %s,\n\n", name)
	fmt.Fprintf(&b, "Recibimos el pago de tu pedido %s por %s.\n", n.Sale.ID, money.Format(n.Sale.Total))
	for _, it := range n.Sale.Items {
		product := it.ProductName
		if product == "" {
			product = it.ProductID
		}
		fmt.Fprintf(&b, "  - %d x %s: %s\n", it.Quantity, product, money.Format(it.Subtotal()))
	}
	if n.TrackingCode != "" {
		fmt.Fprintf(&b, "\nTu código de seguimiento es %s.\n", n.TrackingCode)
	}
	b.WriteString("\nGracias por tu compra.\n")
	return b.String()
}
