package events

import (
	"context"
	"encoding/json"

	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// Broadcaster transporte de difusión entre instancias (p. ej. LISTEN/NOTIFY).
type Broadcaster interface {
	Publish(ctx context.Context, msg []byte) error
	// Listen bloquea entregando cada mensaje recibido hasta que ctx se cancela.
	Listen(ctx context.Context, fn func(msg []byte)) error
}

// Envelope mensaje difundido: el tópico, el payload y la instancia que lo originó.
type Envelope struct {
	Instance string          `json:"instance"`
	Topic    string          `json:"topic"`
	Payload  json.RawMessage `json:"payload"`
}

var _ Bus = (*BroadcastBus)(nil)

// BroadcastBus decora un LocalBus: entrega local primero y luego difunde.
// Los mensajes remotos sólo llegan a los suscriptores locales; los propios se ignoran.
type BroadcastBus struct {
	local      *LocalBus
	tx         Broadcaster
	instanceID string
	log        *logger.Logger
}

// NewBroadcastBus construye el decorador.
func NewBroadcastBus(local *LocalBus, tx Broadcaster, instanceID string, log *logger.Logger) *BroadcastBus {
	if log == nil {
		log = logger.Nop()
	}
	return &BroadcastBus{local: local, tx: tx, instanceID: instanceID, log: log.Component("events.broadcast")}
}

// InstanceID identificador con el que se etiquetan los mensajes salientes.
func (b *BroadcastBus) InstanceID() string { return b.instanceID }

func (b *BroadcastBus) Subscribe(topic string, h Handler) func() {
	return b.local.Subscribe(topic, h)
}

// Emit nunca falla por la difusión: los errores del transporte se registran.
func (b *BroadcastBus) Emit(ctx context.Context, topic string, payload any) {
	raw, err := Marshal(payload)
	if err != nil {
		b.log.Error().Err(err).Str("topic", topic).Msg("evento no serializable, descartado")
		return
	}
	b.local.Deliver(ctx, topic, raw)

	msg, err := json.Marshal(Envelope{Instance: b.instanceID, Topic: topic, Payload: raw})
	if err != nil {
		b.log.Error().Err(err).Str("topic", topic).Msg("no se pudo armar el mensaje de difusión")
		return
	}
	if err := b.tx.Publish(ctx, msg); err != nil {
		b.log.Warn().Err(err).Str("topic", topic).Msg("difusión fallida")
	}
}

// Run escucha el transporte hasta que ctx se cancela.
func (b *BroadcastBus) Run(ctx context.Context) error {
	return b.tx.Listen(ctx, func(msg []byte) { b.handleRemote(ctx, msg) })
}

func (b *BroadcastBus) handleRemote(ctx context.Context, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		b.log.Warn().Err(err).Msg("mensaje de difusión inválido")
		return
	}
	if env.Instance == b.instanceID || env.Topic == "" {
		return
	}
	b.local.Deliver(ctx, env.Topic, env.Payload)
}
