// Package broker turns pub/sub task messages into use case invocations.
package broker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tgsync/internal/domain"
)

// Handler processes one task payload. The payload is the raw correlation
// key from the broker message (a phone number or "all").
type Handler func(ctx context.Context, payload string) error

// Listener subscribes to the task channels and dispatches payloads to
// their handlers. Within one channel messages are handled strictly one at
// a time in arrival order, which is what keeps two login sessions for the
// same account from racing. Separate channels run concurrently.
type Listener struct {
	broker   domain.Broker
	logger   zerolog.Logger
	bindings []binding
}

type binding struct {
	channel string
	handler Handler
}

// NewListener creates a listener with no bindings.
func NewListener(broker domain.Broker, logger zerolog.Logger) *Listener {
	return &Listener{
		broker: broker,
		logger: logger.With().Str("component", "listener").Logger(),
	}
}

// Bind registers a handler for a channel. Must be called before Run.
func (l *Listener) Bind(channel string, handler Handler) {
	l.bindings = append(l.bindings, binding{channel: channel, handler: handler})
}

// Run subscribes to all bound channels and blocks until the context is
// cancelled or a subscription stream is lost. A lost stream is fatal: the
// process cannot recover an unbounded subscription failure in place, so
// the error is returned for the caller to exit on.
func (l *Listener) Run(ctx context.Context) error {
	if len(l.bindings) == 0 {
		return fmt.Errorf("no channel bindings registered")
	}

	fatal := make(chan error, len(l.bindings))

	for _, b := range l.bindings {
		stream, err := l.broker.Subscribe(ctx, b.channel)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
		}

		l.logger.Info().Str("channel", b.channel).Msg("Listening for tasks")

		go l.consume(ctx, b, stream, fatal)
	}

	select {
	case <-ctx.Done():
		l.logger.Info().Msg("Listener stopped")
		return nil
	case err := <-fatal:
		return err
	}
}

// consume drains one subscription. Handler errors are already reported at
// the task boundary, so they are only logged here and the loop continues
// with the next message.
func (l *Listener) consume(ctx context.Context, b binding, stream <-chan string, fatal chan<- error) {
	for payload := range stream {
		l.logger.Info().
			Str("channel", b.channel).
			Msg("Task received")

		if err := b.handler(ctx, payload); err != nil {
			l.logger.Error().Err(err).
				Str("channel", b.channel).
				Msg("Task handler failed")
		}
	}

	if ctx.Err() == nil {
		fatal <- fmt.Errorf("subscription to %s lost", b.channel)
	}
}
