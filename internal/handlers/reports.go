package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"anonchat/internal/middleware"
	"anonchat/internal/models"
	"anonchat/internal/repositories"
	"anonchat/internal/telemetry"
)

// ReportHandler lets users file moderation reports.
type ReportHandler struct {
	reportRepo  repositories.ReportRepository
	profileRepo repositories.ProfileRepository
	audit       *telemetry.AuditEmitter
}

// NewReportHandler builds a ReportHandler.
func NewReportHandler(reportRepo repositories.ReportRepository, profileRepo repositories.ProfileRepository, audit *telemetry.AuditEmitter) *ReportHandler {
	return &ReportHandler{
		reportRepo:  reportRepo,
		profileRepo: profileRepo,
		audit:       audit,
	}
}

// Create files a report against a user, optionally tied to one message.
// Reports start pending; only an admin moves them on from there.
func (h *ReportHandler) Create(c *gin.Context) {
	var req struct {
		ReportedUser    string  `json:"reported_user" binding:"required"`
		ReportedMessage *string `json:"reported_message"`
		Reason          string  `json:"reason" binding:"required"`
		Category        string  `json:"category" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty reason"})
		return
	}
	if !models.ValidReportCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}

	userID := middleware.UserID(c)
	if userID == req.ReportedUser {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot report yourself"})
		return
	}
	if _, err := h.profileRepo.GetByID(c.Request.Context(), req.ReportedUser); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reported user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reported user"})
		return
	}

	report, err := h.reportRepo.Create(c.Request.Context(), repositories.ReportInput{
		ReportedBy:      userID,
		ReportedUser:    req.ReportedUser,
		ReportedMessage: req.ReportedMessage,
		Reason:          req.Reason,
		Category:        req.Category,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not file report"})
		return
	}

	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "INFO", "report filed: "+report.ID, requestIDFromContext(c), userIDFromContext(c))
	}
	c.JSON(http.StatusCreated, report)
}

// ListMine returns reports filed by the caller.
func (h *ReportHandler) ListMine(c *gin.Context) {
	reports, err := h.reportRepo.ListForReporter(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
