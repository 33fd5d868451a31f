package telegram

import (
	"github.com/gotd/td/tg"

	"tgsync/internal/domain"
)

// Classification maps the concrete remote entity kind to a DialogType:
// individual users are User, plain chats are Chat or ChatForbidden,
// broadcast channels are Channel, and everything else (including
// megagroups) falls back to Group. The mapping is total.

func remoteDialogFromUser(u *tg.User) domain.RemoteDialog {
	return domain.RemoteDialog{
		TgID:     u.ID,
		Title:    u.FirstName,
		Username: u.Username,
		Type:     domain.DialogTypeUser,
	}
}

func remoteDialogFromChat(chat tg.ChatClass) domain.RemoteDialog {
	switch c := chat.(type) {
	case *tg.Chat:
		return domain.RemoteDialog{
			TgID:  c.ID,
			Title: c.Title,
			Type:  domain.DialogTypeChat,
		}
	case *tg.ChatForbidden:
		return domain.RemoteDialog{
			TgID:  c.ID,
			Title: c.Title,
			Type:  domain.DialogTypeChatForbidden,
		}
	case *tg.Channel:
		dialogType := domain.DialogTypeGroup
		if c.Broadcast {
			dialogType = domain.DialogTypeChannel
		}
		return domain.RemoteDialog{
			TgID:     c.ID,
			Title:    c.Title,
			Username: c.Username,
			Type:     dialogType,
		}
	default:
		return domain.RemoteDialog{
			TgID: chat.GetID(),
			Type: domain.DialogTypeGroup,
		}
	}
}
