package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

// CommentController manages replies to posts.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a CommentController.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// Create adds a comment to a post and notifies the post author.
func (c *CommentController) Create(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	content := utils.Sanitize(req.Content)
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, "content cannot be empty")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var post models.Post
	if err := c.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	comment := models.Comment{
		PostID:  post.ID,
		UserID:  actorID,
		Content: content,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	if err := c.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	notify(c.db, post.AuthorID, actorID, models.NotificationComment, &post.ID)
	utils.InvalidateByPrefix("cache:post:detail:" + ctx.Param("id"))

	ctx.JSON(http.StatusCreated, comment)
}

// List returns a post's comments, oldest first.
func (c *CommentController) List(ctx *gin.Context) {
	var comments []models.Comment
	if err := c.db.Preload("User").Where("post_id = ?", ctx.Param("id")).
		Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, comments)
}

// Delete removes a comment; allowed for its author and the post author.
func (c *CommentController) Delete(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var comment models.Comment
	if err := c.db.First(&comment, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "comment not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	if comment.UserID != actorID {
		var post models.Post
		if err := c.db.First(&post, comment.PostID).Error; err != nil || post.AuthorID != actorID {
			utils.Error(ctx, http.StatusForbidden, "you can only delete your own comments")
			return
		}
	}

	if err := c.db.Delete(&comment).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:")
	utils.OK(ctx, gin.H{"message": "comment deleted"})
}
