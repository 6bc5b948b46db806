package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"anonchat/internal/models"
	"anonchat/internal/repositories"
)

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) Create(ctx context.Context, username, avatarURL string) (models.Profile, error) {
	args := m.Called(ctx, username, avatarURL)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) GetByID(ctx context.Context, id string) (models.Profile, error) {
	args := m.Called(ctx, id)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	args := m.Called(ctx, username)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) UsernameTaken(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *ProfileRepositoryMock) List(ctx context.Context) ([]models.Profile, error) {
	args := m.Called(ctx)
	var list []models.Profile
	if val := args.Get(0); val != nil {
		list = val.([]models.Profile)
	}
	return list, args.Error(1)
}

func (m *ProfileRepositoryMock) UpdateUsername(ctx context.Context, id, username string) error {
	args := m.Called(ctx, id, username)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	args := m.Called(ctx, id, avatarURL)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) SetPresence(ctx context.Context, id string, isOnline bool, lastSeen time.Time) error {
	args := m.Called(ctx, id, isOnline, lastSeen)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) SetBanned(ctx context.Context, id string, banned bool) error {
	args := m.Called(ctx, id, banned)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) List(ctx context.Context) ([]models.ChatRoom, error) {
	args := m.Called(ctx)
	var list []models.ChatRoom
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatRoom)
	}
	return list, args.Error(1)
}

func (m *RoomRepositoryMock) Get(ctx context.Context, id string) (models.ChatRoom, error) {
	args := m.Called(ctx, id)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) Create(ctx context.Context, name, description, createdBy string) (models.ChatRoom, error) {
	args := m.Called(ctx, name, description, createdBy)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RoomRepositoryMock) SeedDefaults(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type PrivateChatRepositoryMock struct {
	mock.Mock
}

func (m *PrivateChatRepositoryMock) FindOrCreate(ctx context.Context, userID, otherID string) (models.PrivateChat, error) {
	args := m.Called(ctx, userID, otherID)
	var chat models.PrivateChat
	if val := args.Get(0); val != nil {
		chat = val.(models.PrivateChat)
	}
	return chat, args.Error(1)
}

func (m *PrivateChatRepositoryMock) Get(ctx context.Context, chatID string) (models.PrivateChat, error) {
	args := m.Called(ctx, chatID)
	var chat models.PrivateChat
	if val := args.Get(0); val != nil {
		chat = val.(models.PrivateChat)
	}
	return chat, args.Error(1)
}

func (m *PrivateChatRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.ChatView, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatView
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatView)
	}
	return list, args.Error(1)
}

func (m *PrivateChatRepositoryMock) Touch(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *PrivateChatRepositoryMock) Block(ctx context.Context, chatID, byUserID string) error {
	args := m.Called(ctx, chatID, byUserID)
	return args.Error(0)
}

func (m *PrivateChatRepositoryMock) Unblock(ctx context.Context, chatID, byUserID string) error {
	args := m.Called(ctx, chatID, byUserID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateRoomMessage(ctx context.Context, roomID, senderID, senderName, content, msgType string) (models.Message, error) {
	args := m.Called(ctx, roomID, senderID, senderName, content, msgType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) CreateChatMessage(ctx context.Context, chatID, senderID, senderName, content, msgType string) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, senderName, content, msgType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) ListForChat(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkChatRead(ctx context.Context, chatID, readerID string) ([]string, error) {
	args := m.Called(ctx, chatID, readerID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, in repositories.NotificationInput) (models.Notification, error) {
	args := m.Called(ctx, in)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, notificationID string) error {
	args := m.Called(ctx, notificationID)
	return args.Error(0)
}

type ReportRepositoryMock struct {
	mock.Mock
}

func (m *ReportRepositoryMock) Create(ctx context.Context, in repositories.ReportInput) (models.Report, error) {
	args := m.Called(ctx, in)
	var r models.Report
	if val := args.Get(0); val != nil {
		r = val.(models.Report)
	}
	return r, args.Error(1)
}

func (m *ReportRepositoryMock) Get(ctx context.Context, reportID string) (models.Report, error) {
	args := m.Called(ctx, reportID)
	var r models.Report
	if val := args.Get(0); val != nil {
		r = val.(models.Report)
	}
	return r, args.Error(1)
}

func (m *ReportRepositoryMock) ListForReporter(ctx context.Context, userID string) ([]models.Report, error) {
	args := m.Called(ctx, userID)
	var list []models.Report
	if val := args.Get(0); val != nil {
		list = val.([]models.Report)
	}
	return list, args.Error(1)
}

func (m *ReportRepositoryMock) ListAll(ctx context.Context) ([]models.Report, error) {
	args := m.Called(ctx)
	var list []models.Report
	if val := args.Get(0); val != nil {
		list = val.([]models.Report)
	}
	return list, args.Error(1)
}

func (m *ReportRepositoryMock) UpdateStatus(ctx context.Context, reportID string, update repositories.ReportUpdate) (models.Report, error) {
	args := m.Called(ctx, reportID, update)
	var r models.Report
	if val := args.Get(0); val != nil {
		r = val.(models.Report)
	}
	return r, args.Error(1)
}

type BlogRepositoryMock struct {
	mock.Mock
}

func (m *BlogRepositoryMock) ListPublished(ctx context.Context) ([]models.BlogPost, error) {
	args := m.Called(ctx)
	var list []models.BlogPost
	if val := args.Get(0); val != nil {
		list = val.([]models.BlogPost)
	}
	return list, args.Error(1)
}

func (m *BlogRepositoryMock) ListAll(ctx context.Context) ([]models.BlogPost, error) {
	args := m.Called(ctx)
	var list []models.BlogPost
	if val := args.Get(0); val != nil {
		list = val.([]models.BlogPost)
	}
	return list, args.Error(1)
}

func (m *BlogRepositoryMock) Get(ctx context.Context, postID string) (models.BlogPost, error) {
	args := m.Called(ctx, postID)
	var post models.BlogPost
	if val := args.Get(0); val != nil {
		post = val.(models.BlogPost)
	}
	return post, args.Error(1)
}

func (m *BlogRepositoryMock) Create(ctx context.Context, in repositories.BlogPostInput) (models.BlogPost, error) {
	args := m.Called(ctx, in)
	var post models.BlogPost
	if val := args.Get(0); val != nil {
		post = val.(models.BlogPost)
	}
	return post, args.Error(1)
}

func (m *BlogRepositoryMock) Update(ctx context.Context, postID string, in repositories.BlogPostInput) (models.BlogPost, error) {
	args := m.Called(ctx, postID, in)
	var post models.BlogPost
	if val := args.Get(0); val != nil {
		post = val.(models.BlogPost)
	}
	return post, args.Error(1)
}

func (m *BlogRepositoryMock) Delete(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *BlogRepositoryMock) IncrementReadCount(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

type AdminRepositoryMock struct {
	mock.Mock
}

func (m *AdminRepositoryMock) VerifyPassword(ctx context.Context, email, password string) (models.AdminUser, error) {
	args := m.Called(ctx, email, password)
	var admin models.AdminUser
	if val := args.Get(0); val != nil {
		admin = val.(models.AdminUser)
	}
	return admin, args.Error(1)
}

func (m *AdminRepositoryMock) GetActiveByID(ctx context.Context, id string) (models.AdminUser, error) {
	args := m.Called(ctx, id)
	var admin models.AdminUser
	if val := args.Get(0); val != nil {
		admin = val.(models.AdminUser)
	}
	return admin, args.Error(1)
}

func (m *AdminRepositoryMock) TouchLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *AdminRepositoryMock) List(ctx context.Context) ([]models.AdminUser, error) {
	args := m.Called(ctx)
	var list []models.AdminUser
	if val := args.Get(0); val != nil {
		list = val.([]models.AdminUser)
	}
	return list, args.Error(1)
}

func (m *AdminRepositoryMock) Create(ctx context.Context, email, password, role string, permissions []string) (models.AdminUser, error) {
	args := m.Called(ctx, email, password, role, permissions)
	var admin models.AdminUser
	if val := args.Get(0); val != nil {
		admin = val.(models.AdminUser)
	}
	return admin, args.Error(1)
}

func (m *AdminRepositoryMock) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

type LastSeenStoreMock struct {
	mock.Mock
}

func (m *LastSeenStoreMock) Touch(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

func (m *LastSeenStoreMock) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	args := m.Called(ctx, userID)
	var at time.Time
	if val := args.Get(0); val != nil {
		at = val.(time.Time)
	}
	return at, args.Bool(1), args.Error(2)
}

func (m *LastSeenStoreMock) OnlineCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *LastSeenStoreMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
