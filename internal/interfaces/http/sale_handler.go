package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/internal/application/reconciliation"
	"github.com/jhoicas/Ventas-api/internal/application/sideeffects"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/pkg/jwt"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// SaleService operaciones de reconciliación expuestas al operador.
type SaleService interface {
	ConfirmPayment(ctx context.Context, saleID string, opts reconciliation.ConfirmOptions) (reconciliation.ConfirmOutcome, error)
	ApproveFromExpired(ctx context.Context, saleID string, opts reconciliation.ConfirmOptions) (*entity.Sale, error)
	Cancel(ctx context.Context, saleID string, opts reconciliation.ConfirmOptions) (*entity.Sale, error)
}

// ExpirationRunner corrida de vencimiento compartida con el job programado.
type ExpirationRunner interface {
	RunOnce(ctx context.Context, actor, initiator string) (reconciliation.ExpirationReport, error)
}

// ShipmentRetrier reintento manual del pre-envío.
type ShipmentRetrier interface {
	RetryShipment(ctx context.Context, saleID string) (sideeffects.Shipment, error)
}

// SaleHandler maneja las operaciones manuales sobre ventas (protegido).
type SaleHandler struct {
	svc       SaleService
	expirer   ExpirationRunner
	shipments ShipmentRetrier
	log       *logger.Logger
}

// NewSaleHandler construye el handler. shipments puede ser nil.
func NewSaleHandler(svc SaleService, expirer ExpirationRunner, shipments ShipmentRetrier, log *logger.Logger) *SaleHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SaleHandler{svc: svc, expirer: expirer, shipments: shipments, log: log.Component("http.sales")}
}

// ConfirmPayment godoc
// @Summary      Confirmar pago manualmente
// @Description  Idempotente: una venta ya aprobada responde 200 con already_approved=true.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true   "ID de la venta"
// @Param        body  body  dto.SaleActionRequest  false  "Nota para auditoría"
// @Success      200   {object}  dto.ConfirmPaymentResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/confirm-payment [post]
func (h *SaleHandler) ConfirmPayment(c *fiber.Ctx) error {
	in, ok := parseAction(c)
	if !ok {
		return invalidBody(c)
	}
	out, err := h.svc.ConfirmPayment(c.UserContext(), c.Params("id"), h.options(c, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ConfirmPaymentResponse{Sale: dto.NewSaleResponse(out.Sale), AlreadyApproved: out.AlreadyApproved})
}

// ApproveFromExpired godoc
// @Summary      Aprobar una venta vencida
// @Description  Recuperación administrativa vencido → aprobado; descuenta stock y dispara efectos.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true   "ID de la venta"
// @Param        body  body  dto.SaleActionRequest  false  "Nota para auditoría"
// @Success      200   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/approve-from-expired [post]
func (h *SaleHandler) ApproveFromExpired(c *fiber.Ctx) error {
	in, ok := parseAction(c)
	if !ok {
		return invalidBody(c)
	}
	sale, err := h.svc.ApproveFromExpired(c.UserContext(), c.Params("id"), h.options(c, in))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "NOT_EXPIRED", Message: "la venta no está vencida"})
		}
		return respondError(c, err)
	}
	return c.JSON(dto.NewSaleResponse(sale))
}

// Cancel godoc
// @Summary      Cancelar una venta pendiente
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true   "ID de la venta"
// @Param        body  body  dto.SaleActionRequest  false  "Motivo"
// @Success      200   {object}  dto.SaleResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/cancel [post]
func (h *SaleHandler) Cancel(c *fiber.Ctx) error {
	in, ok := parseAction(c)
	if !ok {
		return invalidBody(c)
	}
	sale, err := h.svc.Cancel(c.UserContext(), c.Params("id"), h.options(c, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSaleResponse(sale))
}

// Expire godoc
// @Summary      Vencer ventas pendientes antiguas
// @Description  Misma corrida que ejecuta el job programado. Acepta rol admin o cron.
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ExpirationResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/sales/expire [post]
func (h *SaleHandler) Expire(c *fiber.Ctx) error {
	initiator := entity.InitiatorAdmin
	if GetRole(c) == jwt.RoleCron {
		initiator = entity.InitiatorScheduler
	}
	report, err := h.expirer.RunOnce(c.UserContext(), GetUserID(c), initiator)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ExpirationResponse{Count: report.Count, IDs: report.IDs, DurationMs: report.DurationMs})
}

// RetryShipment godoc
// @Summary      Reintentar el pre-envío de una venta aprobada
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.ShipmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/retry-shipment [post]
func (h *SaleHandler) RetryShipment(c *fiber.Ctx) error {
	if h.shipments == nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "UPSTREAM_UNAVAILABLE", Message: "transportista no configurado"})
	}
	saleID := c.Params("id")
	sh, err := h.shipments.RetryShipment(c.UserContext(), saleID)
	if err != nil {
		return respondError(c, err)
	}
	h.log.Info().Str("sale_id", saleID).Str("actor", GetUserID(c)).Str("shipment_ref", sh.Ref).Msg("pre-envío reintentado")
	return c.JSON(dto.ShipmentResponse{SaleID: saleID, ShipmentRef: sh.Ref, TrackingCode: sh.TrackingCode})
}

func (h *SaleHandler) options(c *fiber.Ctx, in dto.SaleActionRequest) reconciliation.ConfirmOptions {
	return reconciliation.ConfirmOptions{Note: in.Note, Actor: GetUserID(c), Initiator: entity.InitiatorAdmin}
}

// parseAction el cuerpo es opcional; si viene debe ser JSON válido.
func parseAction(c *fiber.Ctx) (dto.SaleActionRequest, bool) {
	var in dto.SaleActionRequest
	if len(c.Body()) == 0 {
		return in, true
	}
	if err := c.BodyParser(&in); err != nil {
		return in, false
	}
	return in, true
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
