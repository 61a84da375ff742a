package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/Ventas-api/internal/application/events"
)

var _ events.Broadcaster = (*NotifyBroadcaster)(nil)

// NotifyBroadcaster difunde eventos entre instancias con LISTEN/NOTIFY.
// El payload de NOTIFY admite hasta 8000 bytes; los eventos del bus son pequeños.
type NotifyBroadcaster struct {
	pool    *pgxpool.Pool
	channel string
}

// NewNotifyBroadcaster construye el transporte sobre el canal indicado.
func NewNotifyBroadcaster(pool *pgxpool.Pool, channel string) *NotifyBroadcaster {
	return &NotifyBroadcaster{pool: pool, channel: channel}
}

// Publish envía msg con pg_notify.
func (b *NotifyBroadcaster) Publish(ctx context.Context, msg []byte) error {
	if _, err := b.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, b.channel, string(msg)); err != nil {
		return fmt.Errorf("notify %s: %w", b.channel, err)
	}
	return nil
}

// Listen reserva una conexión dedicada y entrega cada notificación hasta que ctx se cancela.
func (b *NotifyBroadcaster) Listen(ctx context.Context, fn func(msg []byte)) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", b.channel, err)
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("wait notification: %w", err)
		}
		fn([]byte(n.Payload))
	}
}
