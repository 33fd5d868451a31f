package domain

import "errors"

var (
	// ErrCodeTimeout is returned when no one-time code arrived within the
	// configured window.
	ErrCodeTimeout = errors.New("one-time code timeout")

	// ErrAccountNotFound is returned when a task references a phone with no
	// matching live account record.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicatePhone is returned when creating an account whose phone is
	// already used by a live account.
	ErrDuplicatePhone = errors.New("phone already registered")

	// ErrDialogNotFound is returned when a sync rule references a dialog
	// record that does not exist.
	ErrDialogNotFound = errors.New("dialog not found")

	// ErrPeerNotFound is returned when a stored dialog cannot be resolved to
	// a remote entity visible to the session.
	ErrPeerNotFound = errors.New("peer not found")

	// ErrNotAuthorized is returned when authentication fails.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrSessionClosed is returned when an operation is attempted on a
	// closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrStopIteration stops a Dialogs or Messages iteration early without
	// surfacing an error to the caller.
	ErrStopIteration = errors.New("stop iteration")
)
