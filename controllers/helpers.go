package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/middleware"
	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

// getUserID reads the authenticated actor id placed in the context by the
// auth middleware. The request body is never trusted for identity.
func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

// notify inserts a notification row unless the actor targets themselves.
// Best-effort: a failed insert never fails the triggering request.
func notify(db *gorm.DB, recipientID, actorID uint, typ string, postID *uint) {
	if recipientID == actorID {
		return
	}
	err := db.Create(&models.Notification{
		UserID:  recipientID,
		ActorID: actorID,
		Type:    typ,
		PostID:  postID,
	}).Error
	if err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("notification insert failed type=%s recipient=%d: %v", typ, recipientID, err)
	}
}
