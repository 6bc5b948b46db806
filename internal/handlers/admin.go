package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"anonchat/internal/auth"
	"anonchat/internal/middleware"
	"anonchat/internal/models"
	"anonchat/internal/presence"
	"anonchat/internal/repositories"
	"anonchat/internal/telemetry"
	"anonchat/internal/ws"
)

// Admin permission names checked against AdminUser.Permissions.
const (
	PermManageReports = "manage_reports"
	PermBanUsers      = "ban_users"
	PermManageBlog    = "manage_blog"
	PermManageAdmins  = "manage_admins"
	PermBroadcast     = "broadcast"
)

// AdminHandler serves the admin console: moderation, bans, broadcasts,
// blog CMS and operator accounts.
type AdminHandler struct {
	adminRepo   repositories.AdminRepository
	reportRepo  repositories.ReportRepository
	profileRepo repositories.ProfileRepository
	notifRepo   repositories.NotificationRepository
	blogRepo    repositories.BlogRepository
	roomRepo    repositories.RoomRepository
	lastSeen    presence.LastSeenStore
	tokens      *auth.TokenService
	feed        *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(
	adminRepo repositories.AdminRepository,
	reportRepo repositories.ReportRepository,
	profileRepo repositories.ProfileRepository,
	notifRepo repositories.NotificationRepository,
	blogRepo repositories.BlogRepository,
	roomRepo repositories.RoomRepository,
	lastSeen presence.LastSeenStore,
	tokens *auth.TokenService,
	feed *ws.Hub,
	audit *telemetry.AuditEmitter,
) *AdminHandler {
	return &AdminHandler{
		adminRepo:   adminRepo,
		reportRepo:  reportRepo,
		profileRepo: profileRepo,
		notifRepo:   notifRepo,
		blogRepo:    blogRepo,
		roomRepo:    roomRepo,
		lastSeen:    lastSeen,
		tokens:      tokens,
		feed:        feed,
		audit:       audit,
	}
}

// Login verifies operator credentials and issues an admin-scoped token.
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.adminRepo.VerifyPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	token, err := h.tokens.Issue(admin.ID, admin.Email, auth.ScopeAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	_ = h.adminRepo.TouchLastLogin(c.Request.Context(), admin.ID)

	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "INFO", "admin login: "+admin.Email, requestIDFromContext(c), &admin.ID)
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "admin": admin})
}

// Stats summarizes moderation load and liveness for the dashboard.
func (h *AdminHandler) Stats(c *gin.Context) {
	profiles, err := h.profileRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	reports, err := h.reportRepo.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reports"})
		return
	}

	pending := 0
	for _, r := range reports {
		if r.Status == models.ReportPending {
			pending++
		}
	}
	online, err := h.lastSeen.OnlineCount(c.Request.Context())
	if err != nil {
		online = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":     len(profiles),
		"online_users":    online,
		"total_reports":   len(reports),
		"pending_reports": pending,
	})
}

// ListReports returns every report for moderation review.
func (h *AdminHandler) ListReports(c *gin.Context) {
	if _, ok := h.requirePermission(c, PermManageReports); !ok {
		return
	}

	reports, err := h.reportRepo.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// ResolveReport applies a status transition and tells the reporter how
// their report ended up.
func (h *AdminHandler) ResolveReport(c *gin.Context) {
	admin, ok := h.requirePermission(c, PermManageReports)
	if !ok {
		return
	}

	var req struct {
		Status     string  `json:"status" binding:"required"`
		Action     *string `json:"action"`
		AdminNotes *string `json:"admin_notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidReportStatus(req.Status) || req.Status == models.ReportPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	report, err := h.reportRepo.UpdateStatus(c.Request.Context(), c.Param("report_id"), repositories.ReportUpdate{
		Status:     req.Status,
		Action:     req.Action,
		ActionBy:   admin.ID,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update report"})
		return
	}

	if notif, err := h.notifRepo.Create(c.Request.Context(), repositories.NotificationInput{
		UserID:   report.ReportedBy,
		Type:     models.NotificationAdminAction,
		Title:    "Report update",
		Message:  "Your report was " + report.Status,
		ReportID: &report.ID,
	}); err == nil {
		h.feed.Publish("notifications", models.FeedInsert, notif, map[string]string{"user_id": report.ReportedBy})
	}

	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "INFO", "report "+report.ID+" "+report.Status, requestIDFromContext(c), &admin.ID)
	}
	c.JSON(http.StatusOK, report)
}

// BanUser bans an account and tells it why.
func (h *AdminHandler) BanUser(c *gin.Context) {
	h.setBanned(c, true)
}

// UnbanUser lifts a ban.
func (h *AdminHandler) UnbanUser(c *gin.Context) {
	h.setBanned(c, false)
}

func (h *AdminHandler) setBanned(c *gin.Context, banned bool) {
	admin, ok := h.requirePermission(c, PermBanUsers)
	if !ok {
		return
	}

	userID := c.Param("user_id")
	if err := h.profileRepo.SetBanned(c.Request.Context(), userID, banned); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update user"})
		return
	}

	verb := "banned"
	if !banned {
		verb = "unbanned"
	}
	action := "account_" + verb
	if notif, err := h.notifRepo.Create(c.Request.Context(), repositories.NotificationInput{
		UserID:     userID,
		Type:       models.NotificationAdminAction,
		Title:      "Account " + verb,
		Message:    "Your account has been " + verb + " by a moderator",
		ActionType: &action,
	}); err == nil {
		h.feed.Publish("notifications", models.FeedInsert, notif, map[string]string{"user_id": userID})
	}

	if profile, err := h.profileRepo.GetByID(c.Request.Context(), userID); err == nil {
		h.feed.Publish("profiles", models.FeedUpdate, profile, nil)
	}
	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "WARN", "user "+userID+" "+verb, requestIDFromContext(c), &admin.ID)
	}
	c.JSON(http.StatusOK, gin.H{"status": verb})
}

// Broadcast sends a system notification to every profile.
func (h *AdminHandler) Broadcast(c *gin.Context) {
	admin, ok := h.requirePermission(c, PermBroadcast)
	if !ok {
		return
	}

	var req struct {
		Title   string `json:"title" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profiles, err := h.profileRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	sent := 0
	for _, p := range profiles {
		notif, err := h.notifRepo.Create(c.Request.Context(), repositories.NotificationInput{
			UserID:  p.ID,
			Type:    models.NotificationSystem,
			Title:   req.Title,
			Message: req.Message,
		})
		if err != nil {
			continue
		}
		h.feed.Publish("notifications", models.FeedInsert, notif, map[string]string{"user_id": p.ID})
		sent++
	}

	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "INFO", "broadcast sent: "+req.Title, requestIDFromContext(c), &admin.ID)
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// CreateRoom adds a public room.
func (h *AdminHandler) CreateRoom(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomRepo.Create(c.Request.Context(), req.Name, req.Description, admin.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}
	h.feed.Publish("chat_rooms", models.FeedInsert, room, nil)
	c.JSON(http.StatusCreated, room)
}

// DeleteRoom removes a public room and its history.
func (h *AdminHandler) DeleteRoom(c *gin.Context) {
	if _, ok := h.currentAdmin(c); !ok {
		return
	}

	roomID := c.Param("room_id")
	room, err := h.roomRepo.Get(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}
	if err := h.roomRepo.Delete(c.Request.Context(), roomID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete room"})
		return
	}
	h.feed.Publish("chat_rooms", models.FeedDelete, room, nil)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ListPosts returns every post, drafts included.
func (h *AdminHandler) ListPosts(c *gin.Context) {
	if _, ok := h.requirePermission(c, PermManageBlog); !ok {
		return
	}
	posts, err := h.blogRepo.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

type blogPostRequest struct {
	Title     string   `json:"title" binding:"required"`
	Content   string   `json:"content" binding:"required"`
	Excerpt   string   `json:"excerpt"`
	Author    string   `json:"author"`
	Published bool     `json:"published"`
	Tags      []string `json:"tags"`
}

// CreatePost adds a blog post.
func (h *AdminHandler) CreatePost(c *gin.Context) {
	admin, ok := h.requirePermission(c, PermManageBlog)
	if !ok {
		return
	}

	var req blogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Author == "" {
		req.Author = admin.Email
	}

	post, err := h.blogRepo.Create(c.Request.Context(), repositories.BlogPostInput{
		Title:     req.Title,
		Content:   req.Content,
		Excerpt:   req.Excerpt,
		Author:    req.Author,
		AuthorID:  admin.ID,
		Published: req.Published,
		Tags:      req.Tags,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create post"})
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost rewrites a blog post.
func (h *AdminHandler) UpdatePost(c *gin.Context) {
	admin, ok := h.requirePermission(c, PermManageBlog)
	if !ok {
		return
	}

	var req blogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Author == "" {
		req.Author = admin.Email
	}

	post, err := h.blogRepo.Update(c.Request.Context(), c.Param("post_id"), repositories.BlogPostInput{
		Title:     req.Title,
		Content:   req.Content,
		Excerpt:   req.Excerpt,
		Author:    req.Author,
		AuthorID:  admin.ID,
		Published: req.Published,
		Tags:      req.Tags,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update post"})
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost removes a blog post.
func (h *AdminHandler) DeletePost(c *gin.Context) {
	if _, ok := h.requirePermission(c, PermManageBlog); !ok {
		return
	}
	if err := h.blogRepo.Delete(c.Request.Context(), c.Param("post_id")); err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ListAdmins returns all operator accounts.
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	if _, ok := h.requirePermission(c, PermManageAdmins); !ok {
		return
	}
	admins, err := h.adminRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load admins"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

// CreateAdmin adds an operator account.
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	admin, ok := h.requirePermission(c, PermManageAdmins)
	if !ok {
		return
	}

	var req struct {
		Email       string   `json:"email" binding:"required,email"`
		Password    string   `json:"password" binding:"required,min=8"`
		Role        string   `json:"role" binding:"required"`
		Permissions []string `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.adminRepo.Create(c.Request.Context(), req.Email, req.Password, req.Role, req.Permissions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create admin"})
		return
	}
	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "INFO", "admin created: "+created.Email, requestIDFromContext(c), &admin.ID)
	}
	c.JSON(http.StatusCreated, created)
}

// SetAdminActive enables or disables an operator account.
func (h *AdminHandler) SetAdminActive(c *gin.Context) {
	admin, ok := h.requirePermission(c, PermManageAdmins)
	if !ok {
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	targetID := c.Param("admin_id")
	if targetID == admin.ID && !*req.Active {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot deactivate yourself"})
		return
	}
	if err := h.adminRepo.SetActive(c.Request.Context(), targetID, *req.Active); err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "admin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update admin"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// currentAdmin loads the authenticated operator, rejecting disabled
// accounts whose token is still live.
func (h *AdminHandler) currentAdmin(c *gin.Context) (models.AdminUser, bool) {
	admin, err := h.adminRepo.GetActiveByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin account unavailable"})
		return models.AdminUser{}, false
	}
	return admin, true
}

func (h *AdminHandler) requirePermission(c *gin.Context, perm string) (models.AdminUser, bool) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return models.AdminUser{}, false
	}
	if !admin.HasPermission(perm) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing permission"})
		return models.AdminUser{}, false
	}
	return admin, true
}
