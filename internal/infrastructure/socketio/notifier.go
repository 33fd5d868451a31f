// Package socketio pushes status events into the realtime gateway through
// its socket.io Redis adapter. The gateway process owns the client
// connections and room membership; this side only emits.
package socketio

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/zishang520/socket.io-go-redis/emitter"
	siotypes "github.com/zishang520/socket.io-go-redis/types"
	"github.com/zishang520/socket.io/v2/socket"

	"tgsync/internal/domain"
)

// Notifier implements domain.Notifier over a socket.io Redis emitter.
type Notifier struct {
	emitter *emitter.Emitter
	logger  zerolog.Logger
}

// NewNotifier creates an emitter-backed notifier over an existing Redis
// client.
func NewNotifier(ctx context.Context, client *redis.Client, logger zerolog.Logger) *Notifier {
	return &Notifier{
		emitter: emitter.NewEmitter(siotypes.NewRedisClient(ctx, client), nil),
		logger:  logger.With().Str("component", "socketio_notifier").Logger(),
	}
}

// Notify emits an event to a room. Delivery is best-effort: failures are
// logged and swallowed so a broadcast problem can never abort a task.
func (n *Notifier) Notify(room, event string, payload any) {
	if err := n.emitter.To(socket.Room(room)).Emit(event, payload); err != nil {
		n.logger.Warn().
			Err(err).
			Str("room", room).
			Str("event", event).
			Msg("failed to emit status event")
	}
}

var _ domain.Notifier = (*Notifier)(nil)
