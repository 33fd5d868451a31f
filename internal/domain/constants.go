package domain

import "time"

// Broker channels. Payload is a plain phone number, or TaskTargetAll to run
// the task for every eligible account.
const (
	ChannelLoginTask      = "tg:login_task:channel"
	ChannelDialogSyncTask = "tg:dialog_sync_task:channel"

	TaskTargetAll = "all"
)

// One-time-code slot. The key is derived from the phone number; the TTL is a
// safety net in case a code is submitted but never consumed.
const (
	CodeKeyPrefix = "tg:code:"
	CodeTTL       = 300 * time.Second

	DefaultCodeTimeout  = 60 * time.Second
	DefaultCodeInterval = time.Second
)

// CodeKey returns the storage key holding the one-time code for a phone.
func CodeKey(phone string) string { return CodeKeyPrefix + phone }

// Status events pushed to the account's room (room name = phone number).
// Names match what the frontend already listens for.
const (
	EventLoginUpdate  = "tg_account_login_update"
	EventLoginSuccess = "tg_account_login_success"
	EventLoginError   = "tg_account_login_error"

	EventDialogInfoSyncUpdate  = "tg_account_dialog_info_sync_update"
	EventDialogInfoSyncSuccess = "tg_account_dialog_info_sync_success"
	EventDialogInfoSyncError   = "tg_account_dialog_info_sync_error"

	EventMessageSyncUpdate  = "tg_dialog_message_sync_update"
	EventMessageSyncSuccess = "tg_dialog_message_sync_success"
	EventMessageSyncError   = "tg_dialog_message_sync_error"
)
