package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killursxlf/livejournal/models"
)

func TestCreatePostWithTags(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)
	author := createUser(t, db, "author")

	w := doJSON(t, r, http.MethodPost, "/api/posts", tokenFor(t, author), gin.H{
		"title":   "travel notes",
		"content": "<p>day one</p><script>alert(1)</script>",
		"tags":    []string{"Travel", "travel", " Notes "},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Post
	decodeBody(t, w, &created)
	assert.Equal(t, "travel notes", created.Title)
	assert.NotContains(t, created.Content, "<script>")

	// Tags are lower-cased, trimmed and deduplicated.
	names := make([]string, 0, len(created.Tags))
	for _, tag := range created.Tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"travel", "notes"}, names)
}

func TestListPostsTagFilter(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)
	author := createUser(t, db, "author")
	token := tokenFor(t, author)

	w := doJSON(t, r, http.MethodPost, "/api/posts", token, gin.H{
		"title": "go post", "content": "x", "tags": []string{"golang"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/posts", token, gin.H{
		"title": "cooking post", "content": "x", "tags": []string{"food"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/posts?tag=golang", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []PostSummary
	decodeBody(t, w, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, "go post", feed[0].Title)
	assert.Equal(t, []string{"golang"}, feed[0].Tags)
}

func TestListPostsSubscriptionsFilter(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	createPost(t, db, bob, "from bob")
	createPost(t, db, carol, "from carol")
	require.NoError(t, db.Create(&models.Follow{FollowerID: alice.ID, FollowingID: bob.ID}).Error)

	// Anonymous callers cannot use the subscriptions feed.
	w := doJSON(t, r, http.MethodGet, "/api/posts?subscriptions=true", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/posts?subscriptions=true", tokenFor(t, alice), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []PostSummary
	decodeBody(t, w, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, "from bob", feed[0].Title)
}

func TestListPostsPopularSort(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	author := createUser(t, db, "author")
	plain := createPost(t, db, author, "plain")
	hit := createPost(t, db, author, "hit")

	for i := 0; i < 3; i++ {
		fan := createUser(t, db, fmt.Sprintf("fan%d", i))
		require.NoError(t, db.Create(&models.Like{PostID: hit.ID, UserID: fan.ID}).Error)
	}

	w := doJSON(t, r, http.MethodGet, "/api/posts?sort=popular", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []PostSummary
	decodeBody(t, w, &feed)
	require.Len(t, feed, 2)
	assert.Equal(t, hit.ID, feed[0].ID)
	assert.EqualValues(t, 3, feed[0].LikeCount)
	assert.Equal(t, plain.ID, feed[1].ID)
}

func TestListPostsViewerFlags(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	author := createUser(t, db, "author")
	viewer := createUser(t, db, "viewer")
	post := createPost(t, db, author, "flagged")
	require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: viewer.ID}).Error)

	// Anonymous responses carry no personalized flags at all.
	w := doJSON(t, r, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "isLiked")

	w = doJSON(t, r, http.MethodGet, "/api/posts", tokenFor(t, viewer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []PostSummary
	decodeBody(t, w, &feed)
	require.Len(t, feed, 1)
	require.NotNil(t, feed[0].IsLiked)
	assert.True(t, *feed[0].IsLiked)
	require.NotNil(t, feed[0].IsSaved)
	assert.False(t, *feed[0].IsSaved)

	// The explicit userId query parameter personalizes public fetches.
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/posts?userId=%d", viewer.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed = nil
	decodeBody(t, w, &feed)
	require.Len(t, feed, 1)
	require.NotNil(t, feed[0].IsLiked)
	assert.True(t, *feed[0].IsLiked)
}

func TestDraftsHiddenFromOthers(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	author := createUser(t, db, "author")
	other := createUser(t, db, "other")

	w := doJSON(t, r, http.MethodPost, "/api/posts", tokenFor(t, author), gin.H{
		"title": "secret draft", "content": "wip", "draft": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var draft models.Post
	decodeBody(t, w, &draft)
	assert.Equal(t, models.PostStatusDraft, draft.Status)

	// Not in the public feed.
	w = doJSON(t, r, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []PostSummary
	decodeBody(t, w, &feed)
	assert.Empty(t, feed)

	// Detail view 404s for everyone but the author.
	path := fmt.Sprintf("/api/posts/%d", draft.ID)
	w = doJSON(t, r, http.MethodGet, path, tokenFor(t, other), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, path, tokenFor(t, author), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The author's own listing includes it.
	w = doJSON(t, r, http.MethodGet, "/api/my/posts", tokenFor(t, author), nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed = nil
	decodeBody(t, w, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, models.PostStatusDraft, feed[0].Status)
}

func TestUpdatePostOwnership(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	author := createUser(t, db, "author")
	stranger := createUser(t, db, "stranger")
	post := createPost(t, db, author, "original")
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	w := doJSON(t, r, http.MethodPut, path, tokenFor(t, stranger),
		gin.H{"title": "hijacked", "content": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPut, path, tokenFor(t, author),
		gin.H{"title": "edited", "content": "new text"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Post
	require.NoError(t, db.First(&updated, post.ID).Error)
	assert.Equal(t, "edited", updated.Title)
}

func TestDeletePostByCommunityModerator(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	admin := createUser(t, db, "admin")
	poster := createUser(t, db, "poster")
	community := createCommunity(t, db, admin, "news")
	require.NoError(t, db.Create(&models.CommunityMember{
		CommunityID: community.ID,
		UserID:      poster.ID,
		Role:        models.RoleMember,
	}).Error)

	post := models.Post{
		AuthorID:         poster.ID,
		CommunityID:      &community.ID,
		Title:            "community post",
		Content:          "x",
		Status:           models.PostStatusPublished,
		PublicationMode:  models.PublicationModeUser,
		ModerationStatus: models.ModerationStatusReviewed,
	}
	require.NoError(t, db.Create(&post).Error)

	path := fmt.Sprintf("/api/posts/%d", post.ID)

	// A plain member cannot delete someone else's post.
	other := createUser(t, db, "other")
	w := doJSON(t, r, http.MethodDelete, path, tokenFor(t, other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The community admin can.
	w = doJSON(t, r, http.MethodDelete, path, tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rows int64
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&rows).Error)
	assert.EqualValues(t, 0, rows)
}

func TestGetPostDetailShape(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	author := createUser(t, db, "author")
	commenter := createUser(t, db, "commenter")
	post := createPost(t, db, author, "discussed")
	require.NoError(t, db.Create(&models.Comment{
		PostID: post.ID, UserID: commenter.ID, Content: "nice one",
	}).Error)

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), tokenFor(t, commenter), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Post     PostSummary      `json:"post"`
		Comments []models.Comment `json:"comments"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, post.ID, resp.Post.ID)
	assert.EqualValues(t, 1, resp.Post.CommentCount)
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "nice one", resp.Comments[0].Content)
	assert.Equal(t, "commenter", resp.Comments[0].User.Username)
}

func TestListUserPostsByUsername(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	author := createUser(t, db, "writer")
	createPost(t, db, author, "public entry")
	draft := models.Post{
		AuthorID: author.ID, Title: "hidden", Content: "x",
		Status: models.PostStatusDraft, PublicationMode: models.PublicationModeUser,
	}
	require.NoError(t, db.Create(&draft).Error)

	w := doJSON(t, r, http.MethodGet, "/api/users/writer/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []PostSummary
	decodeBody(t, w, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, "public entry", feed[0].Title)

	w = doJSON(t, r, http.MethodGet, "/api/users/nobody/posts", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPendingSubmissionHiddenByDirectFetch(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)

	admin := createUser(t, db, "admin")
	poster := createUser(t, db, "poster")
	outsider := createUser(t, db, "outsider")
	community := createCommunity(t, db, admin, "review")
	require.NoError(t, db.Create(&models.CommunityMember{
		CommunityID: community.ID,
		UserID:      poster.ID,
		Role:        models.RoleMember,
	}).Error)

	pending := models.Post{
		AuthorID:         poster.ID,
		CommunityID:      &community.ID,
		Title:            "awaiting review",
		Content:          "x",
		Status:           models.PostStatusPublished,
		PublicationMode:  models.PublicationModeUser,
		ModerationStatus: models.ModerationStatusNew,
	}
	require.NoError(t, db.Create(&pending).Error)
	path := fmt.Sprintf("/api/posts/%d", pending.ID)

	// Hidden from anonymous viewers and unrelated users until reviewed.
	w := doJSON(t, r, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodGet, path, tokenFor(t, outsider), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The author and the community's moderators still see it.
	w = doJSON(t, r, http.MethodGet, path, tokenFor(t, poster), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, path, tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Approval makes it public.
	require.NoError(t, db.Model(&pending).
		Update("moderation_status", models.ModerationStatusReviewed).Error)
	w = doJSON(t, r, http.MethodGet, path, tokenFor(t, outsider), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePostValidation(t *testing.T) {
	db := openTestDB(t)
	r := newTestRouter(db)
	author := createUser(t, db, "author")
	token := tokenFor(t, author)

	w := doJSON(t, r, http.MethodPost, "/api/posts", token, gin.H{"content": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A title that sanitizes to nothing is rejected too.
	w = doJSON(t, r, http.MethodPost, "/api/posts", token,
		gin.H{"title": strings.TrimSpace("<script></script>"), "content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
