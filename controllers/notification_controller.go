package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

// NotificationController serves stored notification rows. There is no push
// delivery; clients poll.
type NotificationController struct {
	db *gorm.DB
}

// NewNotificationController creates a NotificationController.
func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{db: db}
}

// List returns the actor's notifications, newest first, with the unread count.
func (n *NotificationController) List(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var items []models.Notification
	if err := n.db.Preload("Actor").Where("user_id = ?", actorID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	var unread int64
	if err := n.db.Model(&models.Notification{}).
		Where("user_id = ? AND `read` = ?", actorID, false).Count(&unread).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.OK(ctx, gin.H{"items": items, "unreadCount": unread})
}

// MarkRead marks one notification (by id) or all of the actor's
// notifications as read.
func (n *NotificationController) MarkRead(ctx *gin.Context) {
	var req struct {
		ID *uint `json:"id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := n.db.Model(&models.Notification{}).Where("user_id = ?", actorID)
	if req.ID != nil {
		query = query.Where("id = ?", *req.ID)
	}
	if err := query.Update("read", true).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, gin.H{"message": "marked read"})
}
