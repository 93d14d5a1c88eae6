package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/killursxlf/livejournal/config"
	"github.com/killursxlf/livejournal/middleware"
	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

var (
	testSetupOnce sync.Once
	testDBSeq     atomic.Int64
)

func testInit() {
	testSetupOnce.Do(func() {
		gin.SetMode(gin.TestMode)
		config.SetForTesting(config.AppConfig{
			JWTSecret:          "test-secret",
			GinMode:            gin.TestMode,
			RateLimitPerMinute: 1000,
			UploadTTLMinutes:   60,
		})
	})
}

// openTestDB returns an isolated in-memory database with the full schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testInit()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
		&models.SavedPost{},
		&models.Community{},
		&models.CommunityMember{},
		&models.Message{},
		&models.Notification{},
		&models.PageView{},
		&models.UploadedFile{},
	))
	return db
}

// newTestRouter mirrors the production route layout, including the auth
// middlewares, without access logging.
func newTestRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()

	auth := NewAuthController(db)
	posts := NewPostController(db)
	comments := NewCommentController(db)
	relations := NewRelationController(db)
	communities := NewCommunityController(db)
	messages := NewMessageController(db)
	notifications := NewNotificationController(db)
	uploads := NewUploadController(db)
	stats := NewStatsController(db)

	api := r.Group("/api")

	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)

	public := api.Group("", middleware.AuthOptional())
	{
		public.GET("/posts", posts.ListPosts)
		public.GET("/posts/:id", posts.GetPost)
		public.GET("/posts/:id/comments", comments.List)
		public.GET("/users/:username", auth.GetUserPublic)
		public.GET("/users/:username/posts", posts.ListUserPosts)
		public.GET("/communities", communities.List)
		public.GET("/communities/:id", communities.Get)
		public.GET("/communities/:id/members", communities.ListMembers)
		public.GET("/stats", stats.GetStats)
	}

	private := api.Group("", middleware.AuthRequired())
	{
		private.GET("/me", auth.Me)
		private.PUT("/me", auth.UpdateProfile)

		private.POST("/posts", posts.CreatePost)
		private.PUT("/posts/:id", posts.UpdatePost)
		private.DELETE("/posts/:id", posts.DeletePost)
		private.GET("/my/posts", posts.ListMyPosts)
		private.POST("/posts/:id/comments", comments.Create)
		private.DELETE("/comments/:id", comments.Delete)

		private.POST("/like", relations.ToggleLike)
		private.POST("/toggle-follow", relations.ToggleFollow)
		private.POST("/save", relations.ToggleSave)
		private.GET("/saved", relations.ListSaved)

		private.POST("/community", communities.Create)
		private.POST("/community/subscribe", communities.ToggleSubscribe)
		private.POST("/community/subscribe/notifications", communities.ToggleNotifications)
		private.PUT("/communities/:id/members/:userId/role", communities.UpdateMemberRole)
		private.GET("/communities/:id/moderation", communities.ListModerationQueue)
		private.POST("/communities/:id/moderation/review", communities.ReviewPost)

		private.POST("/messages", messages.Send)
		private.GET("/dialogs", messages.ListDialogs)
		private.GET("/messages/:userId", messages.Thread)

		private.GET("/notifications", notifications.List)
		private.POST("/notifications/read", notifications.MarkRead)

		private.POST("/upload", uploads.Upload)
	}

	return r
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
	require.NoError(t, err)
	return token
}

// doJSON issues a request against the test router. An empty token leaves the
// Authorization header off entirely.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func createPost(t *testing.T, db *gorm.DB, author models.User, title string) models.Post {
	t.Helper()
	post := models.Post{
		AuthorID:        author.ID,
		Title:           title,
		Content:         "content of " + title,
		Status:          models.PostStatusPublished,
		PublicationMode: models.PublicationModeUser,
	}
	require.NoError(t, db.Create(&post).Error)
	return post
}
