package domain

import (
	"context"
	"time"
)

// Peer is an opaque handle to a remote conversation. A Peer is only valid
// for the session that resolved it.
type Peer interface {
	PeerID() int64
}

// Session is a live, authenticated connection to Telegram for one account.
// It is exclusively owned by the task that opened it and must be closed on
// every exit path.
type Session interface {
	// Profile fetches the authenticated account's own identity.
	Profile(ctx context.Context) (*Profile, error)

	// Dialogs iterates all conversations visible to the account. Returning
	// ErrStopIteration from fn stops the iteration without error.
	Dialogs(ctx context.Context, fn func(RemoteDialog) error) error

	// ResolvePeer resolves a remote conversation id to a Peer usable with
	// Messages and SendMessage.
	ResolvePeer(ctx context.Context, tgID int64) (Peer, error)

	// Messages iterates the conversation history. With reversed=false the
	// remote default order is used (newest first); with reversed=true the
	// history is walked oldest first. Returning ErrStopIteration from fn
	// stops the iteration without error.
	Messages(ctx context.Context, peer Peer, reversed bool, fn func(RemoteMessage) error) error

	// SendMessage sends a text message to the conversation.
	SendMessage(ctx context.Context, peer Peer, text string) error

	// Close releases the underlying connection. Safe to call more than once.
	Close(ctx context.Context) error
}

// Authenticator supplies login secrets on demand while a session is being
// opened. Code blocks until a one-time code is available or its window
// elapses; Password returns the stored two-factor password.
type Authenticator interface {
	Code(ctx context.Context) (string, error)
	Password(ctx context.Context) (string, error)
}

// SessionFactory opens authenticated sessions. Implementations bind each
// session to the account's durable session artifact, one per phone.
type SessionFactory interface {
	Open(ctx context.Context, account *Account, auth Authenticator) (Session, error)
}

// Broker is the pub/sub task queue. Subscribe returns a stream of raw
// payloads for one channel; the stream is closed when the context is
// cancelled or the subscription is lost.
type Broker interface {
	Publish(ctx context.Context, channel, payload string) error
	Subscribe(ctx context.Context, channel string) (<-chan string, error)
}

// Notifier pushes status events to a per-account audience. Delivery is
// best-effort: implementations must never fail the calling task.
type Notifier interface {
	Notify(room, event string, payload any)
}

// AlarmSender delivers operator-facing failure notifications.
type AlarmSender interface {
	SendAlarm(ctx context.Context, alarm Alarm) error
}

// CodeStore is the shared keyed storage backing the one-time-code relay.
type CodeStore interface {
	// Consume reads and deletes the value at key. ok is false when the slot
	// is empty.
	Consume(ctx context.Context, key string) (value string, ok bool, err error)

	// Put stores a value with a TTL.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

// AccountRepository persists Account records.
type AccountRepository interface {
	// Create inserts a new account. Returns ErrDuplicatePhone if a live
	// account already uses the phone.
	Create(ctx context.Context, account *Account) error

	// GetByPhone returns the live account with the given phone, or
	// ErrAccountNotFound.
	GetByPhone(ctx context.Context, phone string) (*Account, error)

	// List returns all live accounts.
	List(ctx context.Context) ([]Account, error)

	// ListByStatus returns all live accounts with the given status.
	ListByStatus(ctx context.Context, status AccountStatus) ([]Account, error)

	// SaveProfile stores the resolved profile fields and marks the account
	// Normal in a single update.
	SaveProfile(ctx context.Context, id uint, profile Profile) error

	// UpdateStatus sets the lifecycle status.
	UpdateStatus(ctx context.Context, id uint, status AccountStatus) error
}

// DialogRepository persists Dialog records.
type DialogRepository interface {
	// Upsert inserts or updates the dialog keyed by (tg_id, account_id).
	// Reports whether a new row was created.
	Upsert(ctx context.Context, dialog *Dialog) (created bool, err error)

	// GetByID returns a dialog by primary key, or ErrDialogNotFound.
	GetByID(ctx context.Context, id uint) (*Dialog, error)

	// ListByAccount returns all live dialogs of one account.
	ListByAccount(ctx context.Context, accountID uint) ([]Dialog, error)
}

// DialogSyncRepository reads replication rules. Rules are created by the
// admin surface and are read-only here.
type DialogSyncRepository interface {
	// ListEnabled returns all enabled rules with account and dialogs
	// preloaded.
	ListEnabled(ctx context.Context) ([]DialogSync, error)
}
