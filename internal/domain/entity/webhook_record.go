package entity

import "time"

// Estados de procesamiento de una notificación recibida.
const (
	WebhookStatusPending   = "pending"
	WebhookStatusProcessed = "processed"
	WebhookStatusFailed    = "failed"
	WebhookStatusRejected  = "rejected" // firma o payload inválidos; nunca se reprocesa
)

// WebhookRecord registro de auditoría de cada notificación entrante, incluso las inválidas.
// Nunca se elimina; lo mutan el gateway y las operaciones manuales de reintento/reinicio.
type WebhookRecord struct {
	ID               string
	GatewayEventID   string
	Topic            string
	ResourceID       string
	RequestID        string
	Payload          []byte // cuerpo crudo para reprocesar
	ReceivedAt       time.Time
	SignatureValid   bool
	ProcessingStatus string
	RetryCount       int
	LastError        string
	UpdatedAt        time.Time
}
