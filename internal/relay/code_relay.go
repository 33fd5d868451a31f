// Package relay bridges human-entered one-time codes into the login flow
// through a short-lived keyed slot in shared storage.
package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tgsync/internal/domain"
	"tgsync/internal/utils"
)

// CodeRelay polls a keyed slot until a code appears or the window elapses.
// A code is consumed (deleted) on first read and can never be replayed;
// concurrent login attempts for the same phone must be serialized by the
// caller.
type CodeRelay struct {
	store    domain.CodeStore
	interval time.Duration
	logger   zerolog.Logger
}

// NewCodeRelay creates a relay polling at the default 1s interval.
func NewCodeRelay(store domain.CodeStore, logger zerolog.Logger) *CodeRelay {
	return &CodeRelay{
		store:    store,
		interval: domain.DefaultCodeInterval,
		logger:   logger.With().Str("component", "code_relay").Logger(),
	}
}

// AwaitCode blocks until a code for the phone is available, the timeout
// elapses, or the context is cancelled. A timeout is reported as
// domain.ErrCodeTimeout and must fail the login attempt; it is never an
// invitation to retry indefinitely.
func (r *CodeRelay) AwaitCode(ctx context.Context, phone string, timeout time.Duration) (string, error) {
	key := domain.CodeKey(phone)
	masked := utils.MaskPhone(phone)

	r.logger.Info().
		Str("phone", masked).
		Dur("timeout", timeout).
		Msg("waiting for one-time code")

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		code, ok, err := r.store.Consume(ctx, key)
		if err != nil {
			return "", err
		}
		if ok {
			r.logger.Info().Str("phone", masked).Msg("one-time code received")
			return code, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			r.logger.Warn().Str("phone", masked).Msg("one-time code wait timed out")
			return "", domain.ErrCodeTimeout
		case <-ticker.C:
		}
	}
}

// SubmitCode stores a code for a phone. The TTL caps how long an unconsumed
// code survives.
func (r *CodeRelay) SubmitCode(ctx context.Context, phone, code string) error {
	return r.store.Put(ctx, domain.CodeKey(phone), code, domain.CodeTTL)
}
