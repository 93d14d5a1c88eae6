package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/config"
	"github.com/killursxlf/livejournal/controllers"
	"github.com/killursxlf/livejournal/middleware"
	"github.com/killursxlf/livejournal/utils"
)

// SetupRouter wires every endpoint onto a gin engine. All controllers share
// the single injected DB handle.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()

	gin.SetMode(cfg.GinMode)
	r := gin.New()

	// Access log goes to its own rolling file, separate from the app log.
	accessLogger, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel,
		cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		utils.Sugar.Warnf("access log file unavailable, falling back to app log: %v", err)
		accessLogger = utils.Logger
	}
	r.Use(utils.Ginzap(accessLogger, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(utils.Logger, true))

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.Use(middleware.PageViewRecorder(db))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := controllers.NewAuthController(db)
	posts := controllers.NewPostController(db)
	comments := controllers.NewCommentController(db)
	relations := controllers.NewRelationController(db)
	communities := controllers.NewCommunityController(db)
	messages := controllers.NewMessageController(db)
	notifications := controllers.NewNotificationController(db)
	uploads := controllers.NewUploadController(db)
	stats := controllers.NewStatsController(db)

	api := r.Group("/api")

	// Auth endpoints carry a per-IP rate limit against credential stuffing.
	authGroup := api.Group("/auth", middleware.RateLimitMiddleware())
	{
		authGroup.POST("/register", auth.Register)
		authGroup.POST("/login", auth.Login)
		authGroup.GET("/oauth/:provider", auth.OAuthRedirect)
		authGroup.GET("/oauth/:provider/callback", auth.OAuthCallback)
	}

	// Public reads; an Authorization header personalizes the response
	// (isLiked, isSaved, isFollow) but is never required.
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
		private.POST("/auth/logout", auth.Logout)
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

	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
