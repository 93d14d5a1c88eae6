package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

// RelationController owns the binary relationship toggles: likes, saved
// posts and follows. A join row's existence is the sole source of truth;
// every response carries a count recomputed at that moment.
type RelationController struct {
	db *gorm.DB
}

// NewRelationController creates a RelationController.
func NewRelationController(db *gorm.DB) *RelationController {
	return &RelationController{db: db}
}

// toggleJoinRow flips presence of a join row inside one transaction.
// The delete runs first; when it touched nothing the insert runs with
// ON CONFLICT DO NOTHING so two concurrent toggles race on the unique
// index instead of a stale existence check. count is recomputed last.
func toggleJoinRow(tx *gorm.DB, deleteScope *gorm.DB, row interface{}, countScope *gorm.DB) (present bool, count int64, err error) {
	res := deleteScope.Delete(row)
	if res.Error != nil {
		return false, 0, res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
			return false, 0, err
		}
		present = true
	}
	if err := countScope.Count(&count).Error; err != nil {
		return false, 0, err
	}
	return present, count, nil
}

// ToggleLike flips the (post, user) like row and reports the fresh count.
func (r *RelationController) ToggleLike(ctx *gin.Context) {
	var req struct {
		PostID uint `json:"postId"`
		UserID uint `json:"userId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.PostID == 0 {
		utils.Error(ctx, http.StatusBadRequest, "postId is required")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var post models.Post
	if err := r.db.First(&post, req.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	var liked bool
	var likeCount int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		liked, likeCount, err = toggleJoinRow(tx,
			tx.Where("post_id = ? AND user_id = ?", req.PostID, actorID),
			&models.Like{PostID: req.PostID, UserID: actorID},
			tx.Model(&models.Like{}).Where("post_id = ?", req.PostID),
		)
		return err
	})
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	if liked {
		notify(r.db, post.AuthorID, actorID, models.NotificationLike, &post.ID)
	}
	utils.InvalidateByPrefix("cache:post:detail:")

	utils.OK(ctx, gin.H{"liked": liked, "likeCount": likeCount})
}

// ToggleFollow flips the follow edge from the actor to followingId. The
// request must name the actor explicitly and match the token identity.
func (r *RelationController) ToggleFollow(ctx *gin.Context) {
	var req struct {
		FollowingID uint `json:"followingId"`
		UserID      uint `json:"userId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.FollowingID == 0 || req.UserID == 0 {
		utils.Error(ctx, http.StatusBadRequest, "followingId and userId are required")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	if req.UserID != actorID {
		utils.Error(ctx, http.StatusForbidden, "userId does not match authenticated user")
		return
	}
	if req.FollowingID == req.UserID {
		utils.Error(ctx, http.StatusBadRequest, "cannot follow yourself")
		return
	}

	var target models.User
	if err := r.db.First(&target, req.FollowingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	var followed bool
	var followerCount int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		followed, followerCount, err = toggleJoinRow(tx,
			tx.Where("follower_id = ? AND following_id = ?", actorID, req.FollowingID),
			&models.Follow{FollowerID: actorID, FollowingID: req.FollowingID},
			tx.Model(&models.Follow{}).Where("following_id = ?", req.FollowingID),
		)
		return err
	})
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	if followed {
		notify(r.db, req.FollowingID, actorID, models.NotificationFollow, nil)
	}

	utils.OK(ctx, gin.H{"followed": followed, "followerCount": followerCount})
}

// ToggleSave flips the (post, user) bookmark row.
func (r *RelationController) ToggleSave(ctx *gin.Context) {
	var req struct {
		PostID uint `json:"postId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.PostID == 0 {
		utils.Error(ctx, http.StatusBadRequest, "postId is required")
		return
	}

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var post models.Post
	if err := r.db.First(&post, req.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	var saved bool
	var savedCount int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		saved, savedCount, err = toggleJoinRow(tx,
			tx.Where("post_id = ? AND user_id = ?", req.PostID, actorID),
			&models.SavedPost{PostID: req.PostID, UserID: actorID},
			tx.Model(&models.SavedPost{}).Where("post_id = ?", req.PostID),
		)
		return err
	})
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.OK(ctx, gin.H{"saved": saved, "savedCount": savedCount})
}

// ListSaved returns the actor's bookmarked posts, newest bookmark first.
func (r *RelationController) ListSaved(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var saved []models.SavedPost
	if err := r.db.Where("user_id = ?", actorID).Order("created_at DESC").Find(&saved).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	ids := make([]uint, 0, len(saved))
	for _, s := range saved {
		ids = append(ids, s.PostID)
	}
	var posts []models.Post
	if len(ids) > 0 {
		if err := r.db.Preload("Author").Preload("Tags").Preload("Community").
			Where("id IN ?", ids).Find(&posts).Error; err != nil {
			utils.ServerError(ctx, err)
			return
		}
	}

	// Keep bookmark order.
	byID := make(map[uint]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	projected, err := projectPosts(r.db, ordered, actorID)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, projected)
}
