package dto

import (
	"time"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// WebhookAck respuesta a la pasarela y a los reintentos manuales.
type WebhookAck struct {
	Received  bool   `json:"received"`
	RecordID  string `json:"record_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
	SaleID    string `json:"sale_id,omitempty"`
}

// WebhookRecordResponse registro de una notificación (sin payload).
type WebhookRecordResponse struct {
	ID               string    `json:"id"`
	GatewayEventID   string    `json:"gateway_event_id,omitempty"`
	Topic            string    `json:"topic"`
	ResourceID       string    `json:"resource_id"`
	RequestID        string    `json:"request_id,omitempty"`
	ReceivedAt       time.Time `json:"received_at"`
	SignatureValid   bool      `json:"signature_valid"`
	ProcessingStatus string    `json:"processing_status"`
	RetryCount       int       `json:"retry_count"`
	LastError        string    `json:"last_error,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewWebhookRecordResponse mapea la entidad a la respuesta.
func NewWebhookRecordResponse(r *entity.WebhookRecord) WebhookRecordResponse {
	return WebhookRecordResponse{
		ID:               r.ID,
		GatewayEventID:   r.GatewayEventID,
		Topic:            r.Topic,
		ResourceID:       r.ResourceID,
		RequestID:        r.RequestID,
		ReceivedAt:       r.ReceivedAt,
		SignatureValid:   r.SignatureValid,
		ProcessingStatus: r.ProcessingStatus,
		RetryCount:       r.RetryCount,
		LastError:        r.LastError,
		UpdatedAt:        r.UpdatedAt,
	}
}
