package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/internal/application/webhooks"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// WebhookGateway ingesta y operaciones de soporte de notificaciones.
type WebhookGateway interface {
	Receive(ctx context.Context, h webhooks.Headers, body []byte) (webhooks.Result, error)
	ListFailed(ctx context.Context, limit int) ([]*entity.WebhookRecord, error)
	Retry(ctx context.Context, id string) (webhooks.Result, error)
	Reset(ctx context.Context, id string) (*entity.WebhookRecord, error)
}

// WebhookHandler endpoint público de la pasarela y endpoints de soporte (admin).
type WebhookHandler struct {
	gateway WebhookGateway
}

// NewWebhookHandler construye el handler.
func NewWebhookHandler(gateway WebhookGateway) *WebhookHandler {
	return &WebhookHandler{gateway: gateway}
}

// Receive godoc
// @Summary      Notificación de pago de la pasarela
// @Description  Responde 200 cuando el registro es durable, aunque el procesamiento falle.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        x-signature   header  string  true   "ts=<unix>,v1=<hmac hex>"
// @Param        x-request-id  header  string  false  "ID de la entrega"
// @Success      200  {object}  dto.WebhookAck
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/webhooks/payment [post]
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	// c.Body() se reutiliza al terminar el handler y el registro conserva el payload.
	body := append([]byte(nil), c.Body()...)
	res, err := h.gateway.Receive(c.UserContext(), webhooks.Headers{
		Signature: c.Get("x-signature"),
		RequestID: c.Get("x-request-id"),
	}, body)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ack(res))
}

// ListFailed godoc
// @Summary      Listar notificaciones fallidas
// @Tags         webhooks
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Máximo de registros (default 50)"
// @Success      200  {array}   dto.WebhookRecordResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/webhooks/failed [get]
func (h *WebhookHandler) ListFailed(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	page.DefaultPage()
	recs, err := h.gateway.ListFailed(c.UserContext(), page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.WebhookRecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, dto.NewWebhookRecordResponse(r))
	}
	return c.JSON(out)
}

// Retry godoc
// @Summary      Reprocesar una notificación guardada
// @Tags         webhooks
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.WebhookAck
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/webhooks/retry/{id} [post]
func (h *WebhookHandler) Retry(c *fiber.Ctx) error {
	res, err := h.gateway.Retry(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ack(res))
}

// Reset godoc
// @Summary      Reiniciar una notificación a pending
// @Tags         webhooks
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.WebhookRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/webhooks/reset/{id} [post]
func (h *WebhookHandler) Reset(c *fiber.Ctx) error {
	rec, err := h.gateway.Reset(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewWebhookRecordResponse(rec))
}

func ack(res webhooks.Result) dto.WebhookAck {
	return dto.WebhookAck{
		Received:  true,
		RecordID:  res.RecordID,
		Status:    res.Status,
		Duplicate: res.Duplicate,
		SaleID:    res.SaleID,
	}
}
