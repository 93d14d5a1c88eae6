package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

// MessageController handles direct messages between users.
type MessageController struct {
	db *gorm.DB
}

// NewMessageController creates a MessageController.
func NewMessageController(db *gorm.DB) *MessageController {
	return &MessageController{db: db}
}

// Send delivers a direct message and stores a notification row for the
// recipient.
func (m *MessageController) Send(ctx *gin.Context) {
	var req struct {
		RecipientID uint   `json:"recipientId"`
		Content     string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.RecipientID == 0 {
		utils.Error(ctx, http.StatusBadRequest, "recipientId and content are required")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	if req.RecipientID == actorID {
		utils.Error(ctx, http.StatusBadRequest, "cannot message yourself")
		return
	}

	var recipient models.User
	if err := m.db.First(&recipient, req.RecipientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	content := utils.Sanitize(req.Content)
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, "content cannot be empty")
		return
	}

	msg := models.Message{
		SenderID:    actorID,
		RecipientID: req.RecipientID,
		Content:     content,
	}
	if err := m.db.Create(&msg).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	notify(m.db, req.RecipientID, actorID, models.NotificationMessage, nil)
	ctx.JSON(http.StatusCreated, msg)
}

// ListDialogs returns the actor's conversation partners with the last
// message and unread count per partner, most recent first.
func (m *MessageController) ListDialogs(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var messages []models.Message
	if err := m.db.Where("sender_id = ? OR recipient_id = ?", actorID, actorID).
		Order("created_at DESC").Find(&messages).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	type dialog struct {
		Partner     models.AuthorSummary `json:"partner"`
		LastMessage models.Message       `json:"lastMessage"`
		UnreadCount int64                `json:"unreadCount"`
	}

	order := []uint{}
	last := map[uint]models.Message{}
	unread := map[uint]int64{}
	for _, msg := range messages {
		partnerID := msg.SenderID
		if partnerID == actorID {
			partnerID = msg.RecipientID
		}
		if _, ok := last[partnerID]; !ok {
			last[partnerID] = msg
			order = append(order, partnerID)
		}
		if msg.RecipientID == actorID && msg.ReadAt == nil {
			unread[partnerID]++
		}
	}

	var partners []models.User
	if len(order) > 0 {
		if err := m.db.Find(&partners, utils.UniqueUint(order)).Error; err != nil {
			utils.ServerError(ctx, err)
			return
		}
	}
	partnerByID := make(map[uint]models.User, len(partners))
	for _, u := range partners {
		partnerByID[u.ID] = u
	}

	dialogs := make([]dialog, 0, len(order))
	for _, id := range order {
		partner, ok := partnerByID[id]
		if !ok {
			continue
		}
		dialogs = append(dialogs, dialog{
			Partner:     partner.Summary(),
			LastMessage: last[id],
			UnreadCount: unread[id],
		})
	}
	utils.OK(ctx, dialogs)
}

// Thread returns the conversation with one user, oldest first, and marks
// incoming messages as read.
func (m *MessageController) Thread(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	partnerID := ctx.Param("userId")

	var messages []models.Message
	if err := m.db.Where(
		"(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
		actorID, partnerID, partnerID, actorID,
	).Order("created_at ASC").Find(&messages).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	now := time.Now()
	if err := m.db.Model(&models.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND read_at IS NULL", partnerID, actorID).
		Update("read_at", now).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.OK(ctx, messages)
}
