// Package usecase contains the task orchestration logic: account login,
// dialog info sync and dialog message replication, all driven through
// managed protocol sessions.
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tgsync/internal/domain"
	"tgsync/internal/utils"
)

// sessionState is the lifecycle position of one session attempt.
type sessionState string

const (
	stateIdle             sessionState = "idle"
	stateConnecting       sessionState = "connecting"
	stateAwaitingCode     sessionState = "awaiting_code"
	stateAwaitingPassword sessionState = "awaiting_password"
	stateAuthenticating   sessionState = "authenticating"
	stateActive           sessionState = "active"
	stateClosed           sessionState = "closed"
	stateFailed           sessionState = "failed"
)

// CodeSupplier blocks until a one-time code for the phone arrives or the
// window elapses.
type CodeSupplier interface {
	AwaitCode(ctx context.Context, phone string, timeout time.Duration) (string, error)
}

// SessionManager opens authenticated sessions for tasks, narrating each
// lifecycle transition to the account's room before the next transition is
// attempted. A session is opened per task and must never outlive it.
type SessionManager struct {
	factory     domain.SessionFactory
	codes       CodeSupplier
	notifier    domain.Notifier
	logger      zerolog.Logger
	codeTimeout time.Duration
}

// NewSessionManager creates a session manager. codeTimeout bounds the
// interactive code wait during authentication.
func NewSessionManager(
	factory domain.SessionFactory,
	codes CodeSupplier,
	notifier domain.Notifier,
	logger zerolog.Logger,
	codeTimeout time.Duration,
) *SessionManager {
	if codeTimeout <= 0 {
		codeTimeout = domain.DefaultCodeTimeout
	}
	return &SessionManager{
		factory:     factory,
		codes:       codes,
		notifier:    notifier,
		logger:      logger.With().Str("component", "session_manager").Logger(),
		codeTimeout: codeTimeout,
	}
}

// sessionFlow tracks one attempt's state and pushes progress updates.
type sessionFlow struct {
	phone       string
	updateEvent string
	notifier    domain.Notifier
	logger      zerolog.Logger
	state       sessionState
}

// to moves the flow to the next state. The progress event is emitted before
// the caller proceeds, so observers see a linear narrative.
func (f *sessionFlow) to(next sessionState, message string) {
	f.logger.Debug().
		Str("from", string(f.state)).
		Str("to", string(next)).
		Msg("session state transition")
	f.state = next
	if message != "" {
		f.notifier.Notify(f.phone, f.updateEvent, message)
	}
}

// flowAuthenticator supplies login secrets for one session attempt. The
// code branch blocks on the relay; the password branch is non-interactive.
type flowAuthenticator struct {
	flow    *sessionFlow
	account *domain.Account
	codes   CodeSupplier
	timeout time.Duration
}

func (a *flowAuthenticator) Code(ctx context.Context) (string, error) {
	a.flow.to(stateAwaitingCode, "Waiting for login code")

	code, err := a.codes.AwaitCode(ctx, a.account.Phone, a.timeout)
	if err != nil {
		return "", err
	}

	a.flow.to(stateAuthenticating, "Login code received, authenticating")
	return code, nil
}

func (a *flowAuthenticator) Password(ctx context.Context) (string, error) {
	if a.account.Password == "" {
		return "", fmt.Errorf("two-factor password required but not stored: %w", domain.ErrNotAuthorized)
	}

	a.flow.to(stateAwaitingPassword, "Submitting two-factor password")
	return a.account.Password, nil
}

var _ domain.Authenticator = (*flowAuthenticator)(nil)

// Open drives Idle -> Connecting -> (AwaitingCode | AwaitingPassword) ->
// Authenticating -> Active and hands the live session to the caller. The
// caller owns the session and must close it on every exit path. updateEvent
// names the progress event of the invoking task family.
func (m *SessionManager) Open(ctx context.Context, account *domain.Account, updateEvent string) (domain.Session, error) {
	flow := &sessionFlow{
		phone:       account.Phone,
		updateEvent: updateEvent,
		notifier:    m.notifier,
		logger:      m.logger.With().Str("phone", utils.MaskPhone(account.Phone)).Logger(),
		state:       stateIdle,
	}

	flow.to(stateConnecting, "Connecting to Telegram")

	sess, err := m.factory.Open(ctx, account, &flowAuthenticator{
		flow:    flow,
		account: account,
		codes:   m.codes,
		timeout: m.codeTimeout,
	})
	if err != nil {
		flow.to(stateFailed, "")
		return nil, err
	}

	flow.to(stateActive, "Session established")
	return sess, nil
}

// CloseSession releases a session with its own shutdown budget, so a
// cancelled task context cannot skip the teardown.
func (m *SessionManager) CloseSession(sess domain.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sess.Close(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to close session")
	}
}
