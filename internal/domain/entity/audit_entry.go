package entity

import (
	"encoding/json"
	"time"
)

// Acciones auditadas.
const (
	AuditActionConfirm            = "venta.confirmar"
	AuditActionExpire             = "venta.vencer"
	AuditActionExpireBatch        = "ventas.vencer_lote"
	AuditActionApproveFromExpired = "venta.aprobar_desde_vencida"
	AuditActionCancel             = "venta.cancelar"
)

// Tipos de entidad auditados.
const (
	AuditEntitySale          = "sale"
	AuditEntityExpirationRun = "expiration_run"
	AuditEntityWebhook       = "webhook_record"
)

// Iniciadores de una transición.
const (
	InitiatorWebhook   = "webhook"
	InitiatorAdmin     = "admin"
	InitiatorScheduler = "scheduler"
	InitiatorSystem    = "system"
)

// AuditEntry entrada append-only escrita por cada transición y operación manual.
type AuditEntry struct {
	ID         string
	Actor      string
	Initiator  string
	Action     string
	EntityType string
	EntityID   string
	Before     json.RawMessage
	After      json.RawMessage
	Note       string
	CreatedAt  time.Time
}
