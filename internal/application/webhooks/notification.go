package webhooks

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jhoicas/Ventas-api/internal/domain"
)

// TopicPayment tópico de la pasarela que puede confirmar una venta.
const TopicPayment = "payment"

// notification cuerpo de la notificación. Acepta el formato actual
// ({"type","data":{"id"}}) y el heredado ({"topic","resource"}).
type notification struct {
	ID       flexID `json:"id"`
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Data     struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

// Notification campos normalizados de una notificación entrante.
type Notification struct {
	EventID    string
	Topic      string
	Action     string
	ResourceID string
}

// ParseNotification extrae id de evento, tópico e id de recurso del cuerpo crudo.
// Un cuerpo que no es JSON devuelve ErrPayloadInvalid; sin id de recurso devuelve
// ErrResourceIDMissing junto con lo que se pudo leer.
func ParseNotification(body []byte) (Notification, error) {
	var raw notification
	if err := json.Unmarshal(body, &raw); err != nil {
		return Notification{}, fmt.Errorf("%w: cuerpo no es JSON válido", domain.ErrPayloadInvalid)
	}
	n := Notification{
		EventID:    string(raw.ID),
		Topic:      firstNonEmpty(raw.Type, raw.Topic),
		Action:     raw.Action,
		ResourceID: string(raw.Data.ID),
	}
	if n.ResourceID == "" && raw.Resource != "" {
		// resource puede venir como URL: .../v1/payments/123
		parts := strings.Split(strings.TrimRight(raw.Resource, "/"), "/")
		n.ResourceID = parts[len(parts)-1]
	}
	if n.ResourceID == "" {
		return n, domain.ErrResourceIDMissing
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// flexID acepta ids como número o como cadena.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}
