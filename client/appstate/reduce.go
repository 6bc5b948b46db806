package appstate

import (
	"log"
	"time"

	"anonchat/internal/models"
)

// Action is a state transition request. The concrete types below form
// the full action vocabulary; Reduce ignores anything else.
type Action interface{ isAction() }

type SetInitializing struct{ Value bool }

// SetCurrentUser installs the identity. The username joins the used-name
// history, and a first-time identity lands on the room list.
type SetCurrentUser struct{ User *models.Profile }

// SetPage navigates, remembering where we came from.
type SetPage struct{ Page Page }

// SelectChatRoom and SelectPrivateChat are mutually exclusive: picking
// one clears the other.
type SelectChatRoom struct{ Room *models.ChatRoom }
type SelectPrivateChat struct{ Chat *models.ChatView }

type SetMessages struct{ Messages []models.Message }
type SetPrivateChats struct{ Chats []models.ChatView }
type SetUsers struct{ Users []models.Profile }
type SetNotifications struct{ Notifications []models.Notification }

// MarkMessagesRead flips read flags for partner messages in one chat and
// zeroes that chat's unread count. Both ids must be non-empty.
type MarkMessagesRead struct {
	ChatID string
	UserID string
}

type AddNotification struct{ Notification models.Notification }
type MarkNotificationRead struct{ ID string }

type AddChatPartner struct{ Partner models.Profile }

type SetChatBlocked struct {
	ChatID    string
	BlockedBy *string
}

type IncrementBlogReadCount struct{ PostID string }

// StartCall enters the call screen; EndCall returns to wherever the
// caller was before.
type StartCall struct {
	PartnerID   string
	PartnerName string
}
type EndCall struct{}

type SetUserBanned struct {
	UserID string
	Banned bool
}
type RemoveUser struct{ UserID string }

type AddBroadcast struct {
	Title   string
	Message string
}

type SetDataExpiry struct{ ExpiresAt time.Time }
type SetShowExitWarning struct{ Value bool }

// ClearData resets everything except the initializing flag: by the time
// data is cleared the app already knows there is no session to restore.
type ClearData struct{}

func (SetInitializing) isAction()        {}
func (SetCurrentUser) isAction()         {}
func (SetPage) isAction()                {}
func (SelectChatRoom) isAction()         {}
func (SelectPrivateChat) isAction()      {}
func (SetMessages) isAction()            {}
func (SetPrivateChats) isAction()        {}
func (SetUsers) isAction()               {}
func (SetNotifications) isAction()       {}
func (MarkMessagesRead) isAction()       {}
func (AddNotification) isAction()        {}
func (MarkNotificationRead) isAction()   {}
func (AddChatPartner) isAction()         {}
func (SetChatBlocked) isAction()         {}
func (IncrementBlogReadCount) isAction() {}
func (StartCall) isAction()              {}
func (EndCall) isAction()                {}
func (SetUserBanned) isAction()          {}
func (RemoveUser) isAction()             {}
func (AddBroadcast) isAction()           {}
func (SetDataExpiry) isAction()          {}
func (SetShowExitWarning) isAction()     {}
func (ClearData) isAction()              {}

// Reduce applies one action to a snapshot and returns the next snapshot.
// It never mutates its input and never panics; invalid payloads are
// logged no-ops.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetInitializing:
		s.Initializing = a.Value

	case SetCurrentUser:
		firstIdentity := s.CurrentUser == nil && a.User != nil
		s.CurrentUser = a.User
		if a.User != nil {
			s.UsedUsernames = appendUnique(s.UsedUsernames, a.User.Username)
		}
		if firstIdentity {
			s.PreviousPage = s.CurrentPage
			s.CurrentPage = PageChatRooms
		}

	case SetPage:
		if a.Page == s.CurrentPage {
			break
		}
		s.PreviousPage = s.CurrentPage
		s.CurrentPage = a.Page

	case SelectChatRoom:
		s.SelectedChatRoom = a.Room
		s.SelectedPrivateChat = nil

	case SelectPrivateChat:
		s.SelectedPrivateChat = a.Chat
		s.SelectedChatRoom = nil

	case SetMessages:
		s.Messages = append([]models.Message(nil), a.Messages...)

	case SetPrivateChats:
		s.PrivateChats = append([]models.ChatView(nil), a.Chats...)

	case SetUsers:
		s.Users = append([]models.Profile(nil), a.Users...)

	case SetNotifications:
		s.Notifications = append([]models.Notification(nil), a.Notifications...)

	case MarkMessagesRead:
		if a.ChatID == "" || a.UserID == "" {
			log.Printf("appstate: mark read with empty chat or user id, skipping")
			break
		}
		msgs := append([]models.Message(nil), s.Messages...)
		for i := range msgs {
			if msgs[i].PrivateChatID != nil && *msgs[i].PrivateChatID == a.ChatID && msgs[i].SenderID != a.UserID {
				msgs[i].IsRead = true
			}
		}
		s.Messages = msgs
		chats := append([]models.ChatView(nil), s.PrivateChats...)
		for i := range chats {
			if chats[i].ID == a.ChatID {
				chats[i].UnreadCount = 0
			}
		}
		s.PrivateChats = chats

	case AddNotification:
		s.Notifications = append([]models.Notification{a.Notification}, s.Notifications...)

	case MarkNotificationRead:
		notifs := append([]models.Notification(nil), s.Notifications...)
		for i := range notifs {
			if notifs[i].ID == a.ID {
				notifs[i].IsRead = true
			}
		}
		s.Notifications = notifs

	case AddChatPartner:
		for _, p := range s.ChatPartners {
			if p.ID == a.Partner.ID {
				return s
			}
		}
		s.ChatPartners = append(append([]models.Profile(nil), s.ChatPartners...), a.Partner)

	case SetChatBlocked:
		chats := append([]models.ChatView(nil), s.PrivateChats...)
		for i := range chats {
			if chats[i].ID == a.ChatID {
				chats[i].BlockedBy = a.BlockedBy
			}
		}
		s.PrivateChats = chats
		if s.SelectedPrivateChat != nil && s.SelectedPrivateChat.ID == a.ChatID {
			selected := *s.SelectedPrivateChat
			selected.BlockedBy = a.BlockedBy
			s.SelectedPrivateChat = &selected
		}

	case IncrementBlogReadCount:
		counts := make(map[string]int, len(s.BlogReadCounts)+1)
		for k, v := range s.BlogReadCounts {
			counts[k] = v
		}
		counts[a.PostID]++
		s.BlogReadCounts = counts

	case StartCall:
		s.ActiveCall = &ActiveCall{
			PartnerID:   a.PartnerID,
			PartnerName: a.PartnerName,
			StartedAt:   time.Now(),
		}
		s.PreviousPage = s.CurrentPage
		s.CurrentPage = PageAudioCall

	case EndCall:
		if s.ActiveCall == nil {
			break
		}
		s.ActiveCall = nil
		s.CurrentPage = s.PreviousPage

	case SetUserBanned:
		users := append([]models.Profile(nil), s.Users...)
		for i := range users {
			if users[i].ID == a.UserID {
				users[i].Banned = a.Banned
			}
		}
		s.Users = users

	case RemoveUser:
		users := make([]models.Profile, 0, len(s.Users))
		for _, u := range s.Users {
			if u.ID != a.UserID {
				users = append(users, u)
			}
		}
		s.Users = users

	case AddBroadcast:
		s.Broadcasts = append(append([]Broadcast(nil), s.Broadcasts...), Broadcast{
			Title:   a.Title,
			Message: a.Message,
			SentAt:  time.Now(),
		})

	case SetDataExpiry:
		expiry := a.ExpiresAt
		s.DataExpiresAt = &expiry

	case SetShowExitWarning:
		s.ShowExitWarning = a.Value

	case ClearData:
		next := Initial()
		next.Initializing = false
		return next
	}
	return s
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(append([]string(nil), list...), value)
}
