// Package events implementa el bus de eventos en proceso y su decorador de difusión
// entre instancias.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// Handler procesa un evento ya serializado en JSON.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Publisher lo que necesitan los productores de eventos.
type Publisher interface {
	Emit(ctx context.Context, topic string, payload any)
}

// Bus publicación y suscripción por tópico.
type Bus interface {
	Publisher
	Subscribe(topic string, h Handler) (unsubscribe func())
}

var _ Bus = (*LocalBus)(nil)

// LocalBus entrega los eventos a los suscriptores del proceso, en orden de suscripción.
// Un handler que falla o entra en pánico no afecta a los demás ni al emisor.
type LocalBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
	log    *logger.Logger
}

// NewLocalBus construye el bus en memoria.
func NewLocalBus(log *logger.Logger) *LocalBus {
	if log == nil {
		log = logger.Nop()
	}
	return &LocalBus{subs: make(map[string]map[uint64]Handler), log: log.Component("events")}
}

// Subscribe registra h para topic y devuelve la función que lo da de baja.
func (b *LocalBus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	b.subs[topic][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}
}

// Emit serializa payload y lo entrega a los suscriptores locales.
func (b *LocalBus) Emit(ctx context.Context, topic string, payload any) {
	raw, err := Marshal(payload)
	if err != nil {
		b.log.Error().Err(err).Str("topic", topic).Msg("evento no serializable, descartado")
		return
	}
	b.Deliver(ctx, topic, raw)
}

// Deliver entrega un payload ya serializado sólo a los suscriptores locales.
func (b *LocalBus) Deliver(ctx context.Context, topic string, raw json.RawMessage) {
	for _, h := range b.handlers(topic) {
		b.invoke(ctx, topic, h, raw)
	}
}

// SubscriberCount cantidad de suscriptores activos en topic.
func (b *LocalBus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *LocalBus) handlers(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]uint64, 0, len(b.subs[topic]))
	for id := range b.subs[topic] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Handler, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.subs[topic][id])
	}
	return out
}

func (b *LocalBus) invoke(ctx context.Context, topic string, h Handler, raw json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("topic", topic).Interface("panic", r).Msg("handler de evento en pánico")
		}
	}()
	if err := h(ctx, raw); err != nil {
		b.log.Error().Err(err).Str("topic", topic).Msg("handler de evento falló")
	}
}

// Marshal serializa un payload; json.RawMessage y []byte pasan sin cambios.
func Marshal(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializar evento: %w", err)
	}
	return raw, nil
}
