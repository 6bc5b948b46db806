package appstate

import (
	"time"

	"anonchat/internal/models"
)

// Page names the navigable screens.
type Page string

// Known pages. Navigation is always explicit; the only automatic
// transitions are profile creation landing on the room list and ending a
// call returning to the previous page.
const (
	PageHome          Page = "home"
	PageUsernameSetup Page = "username-setup"
	PageChatRooms     Page = "chat-rooms"
	PageChatRoom      Page = "chat-room"
	PagePrivateChats  Page = "private-chats"
	PagePrivateChat   Page = "private-chat"
	PageOnlineUsers   Page = "online-users"
	PageAudioCall     Page = "audio-call"
	PageProfile       Page = "profile"
	PageNotifications Page = "notifications"
	PageAdminLogin    Page = "admin-login"
	PageAdminPanel    Page = "admin-panel"
	PageBlog          Page = "blog"
	PageTerms         Page = "terms"
	PagePrivacy       Page = "privacy"
)

// ActiveCall is the simulated audio call state; only navigation and
// notifications exist, no media.
type ActiveCall struct {
	PartnerID   string
	PartnerName string
	StartedAt   time.Time
}

// Broadcast records one admin announcement for the history view.
type Broadcast struct {
	Title   string
	Message string
	SentAt  time.Time
}

// State is the full client snapshot owned by the reducer. Everything
// durable in it mirrors server rows; only navigation and selection are
// truly client-owned.
type State struct {
	Initializing bool
	CurrentUser  *models.Profile
	CurrentPage  Page
	PreviousPage Page

	SelectedChatRoom    *models.ChatRoom
	SelectedPrivateChat *models.ChatView

	Messages      []models.Message
	PrivateChats  []models.ChatView
	ChatPartners  []models.Profile
	Users         []models.Profile
	Notifications []models.Notification

	UsedUsernames  []string
	BlogReadCounts map[string]int
	Broadcasts     []Broadcast
	ActiveCall     *ActiveCall

	DataExpiresAt   *time.Time
	ShowExitWarning bool
}

// Initial returns the boot state for an anonymous visitor.
func Initial() State {
	return State{
		Initializing:   true,
		CurrentPage:    PageHome,
		BlogReadCounts: map[string]int{},
	}
}
