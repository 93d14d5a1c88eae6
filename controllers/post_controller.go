package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

// PostController manages post CRUD and the public feed.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a PostController.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// PostSummary is the reduced post shape returned by list endpoints. Author is
// omitted for community-attributed posts; IsLiked/IsSaved appear only when a
// viewer is known.
type PostSummary struct {
	ID              uint                  `json:"id"`
	Title           string                `json:"title"`
	Content         string                `json:"content"`
	Status          string                `json:"status"`
	PublicationMode string                `json:"publicationMode"`
	CreatedAt       time.Time             `json:"createdAt"`
	Author          *models.AuthorSummary `json:"author,omitempty"`
	Community       *models.Community     `json:"community,omitempty"`
	Tags            []string              `json:"tags"`
	LikeCount       int64                 `json:"likeCount"`
	CommentCount    int64                 `json:"commentCount"`
	IsLiked         *bool                 `json:"isLiked,omitempty"`
	IsSaved         *bool                 `json:"isSaved,omitempty"`
}

// projectPosts builds the reduced feed shape. Counts are recomputed from the
// join tables at call time, batched with IN queries. viewerID 0 means anonymous.
func projectPosts(db *gorm.DB, posts []models.Post, viewerID uint) ([]PostSummary, error) {
	summaries := make([]PostSummary, 0, len(posts))
	if len(posts) == 0 {
		return summaries, nil
	}

	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	type countRow struct {
		PostID uint
		N      int64
	}
	likeCounts := map[uint]int64{}
	var rows []countRow
	if err := db.Model(&models.Like{}).Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).Group("post_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		likeCounts[r.PostID] = r.N
	}

	commentCounts := map[uint]int64{}
	rows = rows[:0]
	if err := db.Model(&models.Comment{}).Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).Group("post_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		commentCounts[r.PostID] = r.N
	}

	likedByViewer := map[uint]bool{}
	savedByViewer := map[uint]bool{}
	if viewerID != 0 {
		var likedIDs []uint
		if err := db.Model(&models.Like{}).Where("user_id = ? AND post_id IN ?", viewerID, ids).
			Pluck("post_id", &likedIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range likedIDs {
			likedByViewer[id] = true
		}
		var savedIDs []uint
		if err := db.Model(&models.SavedPost{}).Where("user_id = ? AND post_id IN ?", viewerID, ids).
			Pluck("post_id", &savedIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range savedIDs {
			savedByViewer[id] = true
		}
	}

	for i := range posts {
		p := &posts[i]
		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			tags = append(tags, t.Name)
		}
		s := PostSummary{
			ID:              p.ID,
			Title:           p.Title,
			Content:         p.Content,
			Status:          p.Status,
			PublicationMode: p.PublicationMode,
			CreatedAt:       p.CreatedAt,
			Tags:            tags,
			LikeCount:       likeCounts[p.ID],
			CommentCount:    commentCounts[p.ID],
		}
		if p.PublicationMode == models.PublicationModeCommunity {
			s.Community = p.Community
		} else {
			author := p.Author.Summary()
			s.Author = &author
			s.Community = p.Community
		}
		if viewerID != 0 {
			liked := likedByViewer[p.ID]
			saved := savedByViewer[p.ID]
			s.IsLiked = &liked
			s.IsSaved = &saved
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// visibleScope restricts a query to publicly listable posts: published, and
// for community submissions, approved by a moderator.
func visibleScope(db *gorm.DB) *gorm.DB {
	return db.Where("posts.status = ?", models.PostStatusPublished).
		Where("posts.community_id IS NULL OR posts.moderation_status = ?", models.ModerationStatusReviewed)
}

// ListPosts returns the public feed. Query parameters: userId (viewer for
// personalized flags when unauthenticated), tag (exact tag name),
// subscriptions=true (authors the caller follows, auth required),
// sort=popular (by like count). Default ordering is newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	viewerID, _ := getUserID(ctx)
	if viewerID == 0 {
		// The frontend passes the viewer id explicitly on public fetches.
		if v := strings.TrimSpace(ctx.Query("userId")); v != "" {
			var user models.User
			if err := p.db.First(&user, v).Error; err == nil {
				viewerID = user.ID
			}
		}
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := visibleScope(p.db.Model(&models.Post{}))

	if tag := strings.TrimSpace(ctx.Query("tag")); tag != "" {
		query = query.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", tag)
	}

	if ctx.Query("subscriptions") == "true" {
		if _, ok := getUserID(ctx); !ok {
			utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
			return
		}
		query = query.Where("posts.author_id IN (?)",
			p.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", viewerID))
	}

	switch ctx.Query("sort") {
	case "popular":
		query = query.Select("posts.*").
			Joins("LEFT JOIN likes ON likes.post_id = posts.id").
			Group("posts.id").
			Order("COUNT(likes.id) DESC")
	default:
		query = query.Order("posts.created_at DESC")
	}

	var posts []models.Post
	if err := query.Preload("Author").Preload("Tags").Preload("Community").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	projected, err := projectPosts(p.db, posts, viewerID)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, projected)
}

// CreatePost creates a post, optionally as a draft or a community submission.
// Community submissions enter the moderation queue and stay out of feeds.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title       string   `json:"title" binding:"required,min=1"`
		Content     string   `json:"content" binding:"required"`
		Tags        []string `json:"tags"`
		CommunityID *uint    `json:"communityId"`
		Draft       bool     `json:"draft"`
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

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, "title cannot be empty")
		return
	}
	content := utils.Sanitize(req.Content)

	post := models.Post{
		AuthorID:        actorID,
		Title:           title,
		Content:         content,
		Status:          models.PostStatusPublished,
		PublicationMode: models.PublicationModeUser,
	}
	if req.Draft {
		post.Status = models.PostStatusDraft
	}

	if req.CommunityID != nil {
		var membership models.CommunityMember
		err := p.db.Where("community_id = ? AND user_id = ?", *req.CommunityID, actorID).First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusForbidden, "not a member of this community")
			return
		}
		if err != nil {
			utils.ServerError(ctx, err)
			return
		}
		post.CommunityID = req.CommunityID
		post.ModerationStatus = models.ModerationStatusNew
	}

	if err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return replaceTags(tx, &post, req.Tags)
	}); err != nil {
		utils.ServerError(ctx, err)
		return
	}

	if err := p.db.Preload("Author").Preload("Tags").First(&post, post.ID).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, post)
}

// replaceTags upserts tags by name and rebinds the post's tag set.
func replaceTags(tx *gorm.DB, post *models.Post, names []string) error {
	tags := make([]models.Tag, 0, len(names))
	seen := map[string]bool{}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		var tag models.Tag
		if err := tx.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			return err
		}
		tags = append(tags, tag)
	}
	return tx.Model(post).Association("Tags").Replace(tags)
}

// GetPost returns a single post with comments, counts and viewer flags.
// Only anonymous responses are cached; personalized flags must stay fresh.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")
	viewerID, _ := getUserID(ctx)

	cacheKey := "cache:post:detail:" + postID
	if viewerID == 0 {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	var post models.Post
	if err := p.db.Preload("Author").Preload("Tags").Preload("Community").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	if post.Status == models.PostStatusDraft && post.AuthorID != viewerID {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}
	// Unreviewed community submissions are visible to the author and the
	// community's moderators only, matching the feed scope.
	if post.CommunityID != nil && post.ModerationStatus != models.ModerationStatusReviewed &&
		post.AuthorID != viewerID && !isCommunityModerator(p.db, post.CommunityID, viewerID) {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}

	var comments []models.Comment
	if err := p.db.Preload("User").Where("post_id = ?", post.ID).Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	projected, err := projectPosts(p.db, []models.Post{post}, viewerID)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	payload := gin.H{"post": projected[0], "comments": comments}
	if viewerID == 0 {
		utils.CacheSetJSON(cacheKey, payload, time.Hour)
	}
	utils.OK(ctx, payload)
}

// UpdatePost lets the author edit their post. Edited community submissions
// go back to the moderation queue.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title   string   `json:"title" binding:"required,min=1"`
		Content string   `json:"content" binding:"required"`
		Tags    []string `json:"tags"`
		Draft   *bool    `json:"draft"`
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

	var post models.Post
	if err := p.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}
	if post.AuthorID != actorID {
		utils.Error(ctx, http.StatusForbidden, "you can only update your own posts")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, "title cannot be empty")
		return
	}
	post.Title = title
	post.Content = utils.Sanitize(req.Content)
	if req.Draft != nil {
		if *req.Draft {
			post.Status = models.PostStatusDraft
		} else {
			post.Status = models.PostStatusPublished
		}
	}
	if post.CommunityID != nil {
		post.ModerationStatus = models.ModerationStatusNew
		post.PublicationMode = models.PublicationModeUser
	}

	if err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&post).Error; err != nil {
			return err
		}
		if req.Tags != nil {
			return replaceTags(tx, &post, req.Tags)
		}
		return nil
	}); err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:" + ctx.Param("id"))
	utils.OK(ctx, post)
}

// DeletePost lets the author delete a post; community moderators and admins
// may remove posts from their community.
func (p *PostController) DeletePost(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var post models.Post
	if err := p.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	if post.AuthorID != actorID && !isCommunityModerator(p.db, post.CommunityID, actorID) {
		utils.Error(ctx, http.StatusForbidden, "you can only delete your own posts")
		return
	}

	if err := p.db.Delete(&post).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:" + ctx.Param("id"))
	utils.OK(ctx, gin.H{"message": "post deleted"})
}

// ListMyPosts returns the actor's posts including drafts and pending
// community submissions.
func (p *PostController) ListMyPosts(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var posts []models.Post
	if err := p.db.Where("author_id = ?", actorID).
		Preload("Author").Preload("Tags").Preload("Community").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	projected, err := projectPosts(p.db, posts, actorID)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, projected)
}

// ListUserPosts returns a user's published posts (public profile view).
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	var user models.User
	if err := p.db.Where("username = ?", ctx.Param("username")).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}
	viewerID, _ := getUserID(ctx)
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var posts []models.Post
	if err := visibleScope(p.db.Model(&models.Post{})).
		Where("posts.author_id = ?", user.ID).
		Preload("Author").Preload("Tags").Preload("Community").
		Order("posts.created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	projected, err := projectPosts(p.db, posts, viewerID)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, projected)
}

// isCommunityModerator reports whether user moderates the given community.
func isCommunityModerator(db *gorm.DB, communityID *uint, userID uint) bool {
	if communityID == nil {
		return false
	}
	var membership models.CommunityMember
	if err := db.Where("community_id = ? AND user_id = ?", *communityID, userID).First(&membership).Error; err != nil {
		return false
	}
	return membership.Role == models.RoleAdmin || membership.Role == models.RoleModerator
}
