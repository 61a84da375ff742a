package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Ventas-api/pkg/jwt"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Sales      SaleService
	Expiration ExpirationRunner
	Shipments  ShipmentRetrier // opcional
	Webhooks   WebhookGateway
	JWTSecret  string
	Log        *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	webhookHandler := NewWebhookHandler(deps.Webhooks)
	saleHandler := NewSaleHandler(deps.Sales, deps.Expiration, deps.Shipments, deps.Log)

	// Pasarela (público; autenticado por firma)
	api.Post("/webhooks/payment", webhookHandler.Receive)

	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(jwt.RoleAdmin)

	// El programador externo usa una cuenta de servicio con rol cron.
	protected.Post("/sales/expire", RequireRole(jwt.RoleAdmin, jwt.RoleCron), saleHandler.Expire)

	sales := protected.Group("/sales", adminOnly)
	sales.Post("/:id/confirm-payment", saleHandler.ConfirmPayment)
	sales.Post("/:id/approve-from-expired", saleHandler.ApproveFromExpired)
	sales.Post("/:id/cancel", saleHandler.Cancel)
	sales.Post("/:id/retry-shipment", saleHandler.RetryShipment)

	hooks := protected.Group("/webhooks", adminOnly)
	hooks.Get("/failed", webhookHandler.ListFailed)
	hooks.Post("/retry/:id", webhookHandler.Retry)
	hooks.Post("/reset/:id", webhookHandler.Reset)
}
