package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

// CommunityController manages communities, membership and moderation.
type CommunityController struct {
	db *gorm.DB
}

// NewCommunityController creates a CommunityController.
func NewCommunityController(db *gorm.DB) *CommunityController {
	return &CommunityController{db: db}
}

// Create creates a community; the creator gets an ADMIN membership row in
// the same transaction.
func (c *CommunityController) Create(ctx *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,min=3,max=64"`
		Description string `json:"description"`
		AvatarURL   string `json:"avatarUrl"`
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

	name := strings.TrimSpace(req.Name)
	var existing models.Community
	if err := c.db.Where("name = ?", name).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusBadRequest, "community name already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.ServerError(ctx, err)
		return
	}

	community := models.Community{
		Name:        name,
		Description: utils.Sanitize(req.Description),
		AvatarURL:   req.AvatarURL,
		CreatorID:   actorID,
	}
	if err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&community).Error; err != nil {
			return err
		}
		return tx.Create(&models.CommunityMember{
			CommunityID: community.ID,
			UserID:      actorID,
			Role:        models.RoleAdmin,
		}).Error
	}); err != nil {
		utils.ServerError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, community)
}

// List returns all communities with their member counts.
func (c *CommunityController) List(ctx *gin.Context) {
	var communities []models.Community
	if err := c.db.Order("created_at DESC").Find(&communities).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	type countRow struct {
		CommunityID uint
		N           int64
	}
	counts := map[uint]int64{}
	var rows []countRow
	if err := c.db.Model(&models.CommunityMember{}).
		Select("community_id, COUNT(*) AS n").Group("community_id").Scan(&rows).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	for _, r := range rows {
		counts[r.CommunityID] = r.N
	}

	items := make([]gin.H, 0, len(communities))
	for _, com := range communities {
		items = append(items, gin.H{"community": com, "memberCount": counts[com.ID]})
	}
	utils.OK(ctx, items)
}

// Get returns one community with member count and, for an authenticated
// viewer, their membership state.
func (c *CommunityController) Get(ctx *gin.Context) {
	var community models.Community
	if err := c.db.First(&community, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "community not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	var memberCount int64
	if err := c.db.Model(&models.CommunityMember{}).
		Where("community_id = ?", community.ID).Count(&memberCount).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	payload := gin.H{"community": community, "memberCount": memberCount}
	if viewerID, ok := getUserID(ctx); ok {
		var membership models.CommunityMember
		err := c.db.Where("community_id = ? AND user_id = ?", community.ID, viewerID).First(&membership).Error
		if err == nil {
			payload["isFollow"] = true
			payload["notificationEnabled"] = membership.Notifications
			payload["role"] = membership.Role
		} else if errors.Is(err, gorm.ErrRecordNotFound) {
			payload["isFollow"] = false
			payload["notificationEnabled"] = false
		} else {
			utils.ServerError(ctx, err)
			return
		}
	}
	utils.OK(ctx, payload)
}

// ToggleSubscribe flips the actor's membership row. Joining creates a MEMBER
// row with notifications off; leaving deletes the row and with it the
// notifications preference.
func (c *CommunityController) ToggleSubscribe(ctx *gin.Context) {
	var req struct {
		CommunityID uint `json:"communityId"`
		UserID      uint `json:"userId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.CommunityID == 0 {
		utils.Error(ctx, http.StatusBadRequest, "communityId is required")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	if req.UserID != 0 && req.UserID != actorID {
		utils.Error(ctx, http.StatusForbidden, "userId does not match authenticated user")
		return
	}

	var community models.Community
	if err := c.db.First(&community, req.CommunityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "community not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	var isFollow bool
	err := c.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("community_id = ? AND user_id = ?", req.CommunityID, actorID).
			Delete(&models.CommunityMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.CommunityMember{
				CommunityID:   req.CommunityID,
				UserID:        actorID,
				Role:          models.RoleMember,
				Notifications: false,
			}).Error; err != nil {
				return err
			}
			isFollow = true
		}
		return nil
	})
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	// Fresh membership always starts with notifications off; a removed
	// membership has none.
	utils.OK(ctx, gin.H{"isFollow": isFollow, "notificationEnabled": false})
}

// ToggleNotifications flips the notifications attribute of an existing
// membership. Unlike the membership toggle this never creates a row:
// non-members get 404.
func (c *CommunityController) ToggleNotifications(ctx *gin.Context) {
	var req struct {
		CommunityID uint `json:"communityId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.CommunityID == 0 {
		utils.Error(ctx, http.StatusBadRequest, "communityId is required")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var enabled bool
	err := c.db.Transaction(func(tx *gorm.DB) error {
		var membership models.CommunityMember
		if err := tx.Where("community_id = ? AND user_id = ?", req.CommunityID, actorID).
			First(&membership).Error; err != nil {
			return err
		}
		enabled = !membership.Notifications
		return tx.Model(&membership).Update("notifications", enabled).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "not a member")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	utils.OK(ctx, gin.H{"notificationEnabled": enabled})
}

// ListMembers returns the membership roster with user summaries.
func (c *CommunityController) ListMembers(ctx *gin.Context) {
	var members []models.CommunityMember
	if err := c.db.Preload("User").Where("community_id = ?", ctx.Param("id")).
		Order("created_at ASC").Find(&members).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	items := make([]gin.H, 0, len(members))
	for _, m := range members {
		items = append(items, gin.H{
			"user":          m.User.Summary(),
			"role":          m.Role,
			"notifications": m.Notifications,
			"joinedAt":      m.CreatedAt,
		})
	}
	utils.OK(ctx, items)
}

// UpdateMemberRole lets an admin promote a member to MODERATOR or demote a
// moderator back to MEMBER. The ADMIN role itself is not transferable here.
func (c *CommunityController) UpdateMemberRole(ctx *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil ||
		(req.Role != models.RoleModerator && req.Role != models.RoleMember) {
		utils.Error(ctx, http.StatusBadRequest, "role must be MODERATOR or MEMBER")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var actor models.CommunityMember
	if err := c.db.Where("community_id = ? AND user_id = ?", ctx.Param("id"), actorID).
		First(&actor).Error; err != nil || actor.Role != models.RoleAdmin {
		utils.Error(ctx, http.StatusForbidden, "admin role required")
		return
	}

	var member models.CommunityMember
	if err := c.db.Where("community_id = ? AND user_id = ?", ctx.Param("id"), ctx.Param("userId")).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "not a member")
			return
		}
		utils.ServerError(ctx, err)
		return
	}
	if member.Role == models.RoleAdmin {
		utils.Error(ctx, http.StatusBadRequest, "cannot change the admin role")
		return
	}

	if err := c.db.Model(&member).Update("role", req.Role).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, gin.H{"role": req.Role})
}

// ListModerationQueue returns the community's NEW submissions; admins and
// moderators only.
func (c *CommunityController) ListModerationQueue(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var membership models.CommunityMember
	if err := c.db.Where("community_id = ? AND user_id = ?", ctx.Param("id"), actorID).
		First(&membership).Error; err != nil ||
		(membership.Role != models.RoleAdmin && membership.Role != models.RoleModerator) {
		utils.Error(ctx, http.StatusForbidden, "moderator role required")
		return
	}

	var posts []models.Post
	if err := c.db.Preload("Author").Preload("Tags").
		Where("community_id = ? AND moderation_status = ?", ctx.Param("id"), models.ModerationStatusNew).
		Order("created_at ASC").Find(&posts).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, posts)
}

// ReviewPost approves or rejects a community submission. Approval sets the
// publication mode: USER shows the author, COMMUNITY attributes the post to
// the community. The author is notified on approval.
func (c *CommunityController) ReviewPost(ctx *gin.Context) {
	var req struct {
		PostID          uint   `json:"postId"`
		Approve         *bool  `json:"approve"`
		PublicationMode string `json:"publicationMode"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.PostID == 0 || req.Approve == nil {
		utils.Error(ctx, http.StatusBadRequest, "postId and approve are required")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var post models.Post
	if err := c.db.First(&post, req.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}
	if post.CommunityID == nil || post.ModerationStatus != models.ModerationStatusNew {
		utils.Error(ctx, http.StatusBadRequest, "post is not pending review")
		return
	}
	if !isCommunityModerator(c.db, post.CommunityID, actorID) {
		utils.Error(ctx, http.StatusForbidden, "moderator role required")
		return
	}

	if *req.Approve {
		mode := req.PublicationMode
		if mode == "" {
			mode = models.PublicationModeUser
		}
		if mode != models.PublicationModeUser && mode != models.PublicationModeCommunity {
			utils.Error(ctx, http.StatusBadRequest, "invalid publication mode")
			return
		}
		post.ModerationStatus = models.ModerationStatusReviewed
		post.PublicationMode = mode
	} else {
		post.ModerationStatus = models.ModerationStatusRejected
	}

	if err := c.db.Save(&post).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	if *req.Approve {
		notify(c.db, post.AuthorID, actorID, models.NotificationCommunityPost, &post.ID)
	}
	utils.OK(ctx, gin.H{"moderationStatus": post.ModerationStatus, "publicationMode": post.PublicationMode})
}
