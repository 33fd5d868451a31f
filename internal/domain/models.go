package domain

import (
	"time"

	"gorm.io/gorm"
)

// AccountStatus is the lifecycle status of a managed Telegram account.
type AccountStatus int16

const (
	AccountStatusNormal    AccountStatus = 1
	AccountStatusSuspended AccountStatus = 2
	AccountStatusExpired   AccountStatus = 3
	AccountStatusFailed    AccountStatus = 4
)

func (s AccountStatus) String() string {
	switch s {
	case AccountStatusNormal:
		return "normal"
	case AccountStatusSuspended:
		return "suspended"
	case AccountStatusExpired:
		return "expired"
	case AccountStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DialogType classifies a conversation by its remote entity kind.
type DialogType int16

const (
	DialogTypeUser          DialogType = 1
	DialogTypeGroup         DialogType = 2
	DialogTypeChannel       DialogType = 3
	DialogTypeChat          DialogType = 4
	DialogTypeChatForbidden DialogType = 5
)

func (t DialogType) String() string {
	switch t {
	case DialogTypeUser:
		return "user"
	case DialogTypeGroup:
		return "group"
	case DialogTypeChannel:
		return "channel"
	case DialogTypeChat:
		return "chat"
	case DialogTypeChatForbidden:
		return "chat_forbidden"
	default:
		return "unknown"
	}
}

// SyncType distinguishes automatically scheduled rules from manually
// triggered ones.
type SyncType int16

const (
	SyncTypeAuto   SyncType = 1
	SyncTypeManual SyncType = 2
)

// SyncStatus is the enable switch of a replication rule.
type SyncStatus int16

const (
	SyncStatusDisabled SyncStatus = 0
	SyncStatusEnabled  SyncStatus = 1
)

// SyncSettings holds the per-rule replication policy knobs.
type SyncSettings struct {
	MessageReversed   bool `json:"message_reversed"`
	OnlyLatestMessage bool `json:"only_latest_message"`
}

// Account is one managed Telegram identity. New accounts start in the
// Expired state and become Normal only after a successful login task.
type Account struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Name     string        `gorm:"size:50;not null;default:''"`
	Phone    string        `gorm:"size:20;not null;index"`
	Password string        `gorm:"size:50;not null;default:''"`
	APIID    int           `gorm:"not null;default:0"`
	APIHash  string        `gorm:"size:50;not null;default:''"`
	Status   AccountStatus `gorm:"not null;default:3"`

	// Profile fields resolved from Telegram after authentication.
	Username  string `gorm:"size:50;not null;default:''"`
	FirstName string `gorm:"size:50;not null;default:''"`
	LastName  string `gorm:"size:50;not null;default:''"`
	TgID      int64  `gorm:"not null;default:0"`
}

func (Account) TableName() string { return "tg_accounts" }

// Dialog is a conversation known to one account. The (tg_id, account_id)
// pair identifies it; the info-sync task upserts on that key.
type Dialog struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Title    string     `gorm:"size:255;not null;default:''"`
	Username string     `gorm:"size:100;not null;default:''"`
	Type     DialogType `gorm:"not null"`
	Status   bool       `gorm:"not null"`

	TgID      int64 `gorm:"not null;uniqueIndex:uix_tg_dialogs_tg_id_account"`
	AccountID uint  `gorm:"not null;uniqueIndex:uix_tg_dialogs_tg_id_account"`

	Account *Account `gorm:"foreignKey:AccountID"`
}

func (Dialog) TableName() string { return "tg_dialogs" }

// DialogSync is a standing rule to replicate messages from one dialog to
// another. It references its account and dialogs without owning them.
type DialogSync struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	AccountID    uint `gorm:"not null;uniqueIndex:uix_tg_dialog_syncs_rule"`
	FromDialogID uint `gorm:"not null;uniqueIndex:uix_tg_dialog_syncs_rule"`
	ToDialogID   uint `gorm:"not null;uniqueIndex:uix_tg_dialog_syncs_rule"`

	// No column defaults here: Disabled is the zero value of SyncStatus, and
	// GORM drops zero-valued fields from inserts when a default tag is set,
	// which would silently persist a disabled rule as enabled.
	Type     SyncType     `gorm:"not null"`
	Status   SyncStatus   `gorm:"not null"`
	Settings SyncSettings `gorm:"serializer:json"`

	Account    *Account `gorm:"foreignKey:AccountID"`
	FromDialog *Dialog  `gorm:"foreignKey:FromDialogID"`
	ToDialog   *Dialog  `gorm:"foreignKey:ToDialogID"`
}

func (DialogSync) TableName() string { return "tg_dialog_syncs" }

// Profile holds the identity fields Telegram reports for an authenticated
// account.
type Profile struct {
	TgID      int64
	Username  string
	FirstName string
	LastName  string
}

// RemoteDialog is one conversation as enumerated from Telegram.
type RemoteDialog struct {
	TgID     int64
	Title    string
	Username string
	Type     DialogType
}

// RemoteMessage is one message read from a conversation history.
// Service messages (membership changes, pins and similar) are flagged and
// never replicated.
type RemoteMessage struct {
	ID      int
	Text    string
	Date    time.Time
	Service bool
}

// Alarm is an operator-facing failure notification.
type Alarm struct {
	Service string    `json:"service"`
	Task    string    `json:"task"`
	Phone   string    `json:"phone,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}
