package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/config"
	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

const tokenDuration = 7 * 24 * time.Hour

// AuthController handles registration, login, profiles and OAuth providers.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a local account with a bcrypt-hashed password.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=64"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	username := strings.TrimSpace(req.Username)
	var existing models.User
	if err := a.db.Where("username = ? OR email = ?", username, req.Email).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusBadRequest, "username or email already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.ServerError(ctx, err)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	user := models.User{
		Username:     username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenDuration)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

// Login authenticates with username (or email) and password.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ? OR email = ?", req.Username, req.Username).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenDuration)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, gin.H{"token": token, "user": user})
}

// Logout revokes the current token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 {
		token := strings.TrimSpace(parts[1])
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			utils.BlacklistToken(token, claims.ExpiresAt.Time)
		}
	}
	utils.OK(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's own record.
func (a *AuthController) Me(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	var user models.User
	if err := a.db.First(&user, actorID).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	utils.OK(ctx, user)
}

// UpdateProfile edits the mutable profile fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Email     *string `json:"email"`
		AvatarURL *string `json:"avatarUrl"`
		About     *string `json:"about"`
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
	var user models.User
	if err := a.db.First(&user, actorID).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.About != nil {
		user.About = utils.Sanitize(*req.About)
	}
	if err := a.db.Save(&user).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:user:public:")
	utils.OK(ctx, user)
}

// GetUserPublic returns a public profile with recomputed relationship counts.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	var user models.User
	if err := a.db.Where("username = ?", ctx.Param("username")).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.ServerError(ctx, err)
		return
	}

	var followerCount, followingCount, postCount int64
	if err := a.db.Model(&models.Follow{}).Where("following_id = ?", user.ID).Count(&followerCount).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	if err := a.db.Model(&models.Follow{}).Where("follower_id = ?", user.ID).Count(&followingCount).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}
	if err := a.db.Model(&models.Post{}).
		Where("author_id = ? AND status = ?", user.ID, models.PostStatusPublished).Count(&postCount).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	payload := gin.H{
		"user":           user,
		"followerCount":  followerCount,
		"followingCount": followingCount,
		"postCount":      postCount,
	}
	if viewerID, ok := getUserID(ctx); ok && viewerID != user.ID {
		var n int64
		if err := a.db.Model(&models.Follow{}).
			Where("follower_id = ? AND following_id = ?", viewerID, user.ID).Count(&n).Error; err != nil {
			utils.ServerError(ctx, err)
			return
		}
		payload["isFollowed"] = n > 0
	}
	utils.OK(ctx, payload)
}

// oauthConfig builds the provider configuration. Supported: github, google.
func oauthConfig(provider string) (*oauth2.Config, string, error) {
	cfg := config.Get()
	redirect := fmt.Sprintf("%s/api/auth/oauth/%s/callback", cfg.OAuthRedirectBase, provider)
	switch provider {
	case "github":
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"read:user", "user:email"},
		}, "https://api.github.com/user", nil
	case "google":
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"openid", "email", "profile"},
		}, "https://www.googleapis.com/oauth2/v2/userinfo", nil
	default:
		return nil, "", fmt.Errorf("unsupported provider %q", provider)
	}
}

// OAuthRedirect sends the browser to the provider's consent page with a
// single-use state token.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	conf, _, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "unsupported provider")
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	ctx.Redirect(http.StatusFound, conf.AuthCodeURL(state))
}

// OAuthCallback completes the provider flow: validates state, exchanges the
// code, fetches the remote profile and finds-or-creates the local account.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := ctx.Param("provider")
	conf, userInfoURL, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "unsupported provider")
		return
	}

	if !utils.ConsumeState(ctx.Query("state")) {
		utils.Error(ctx, http.StatusBadRequest, "invalid oauth state")
		return
	}
	code := ctx.Query("code")
	if code == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing code")
		return
	}

	exchangeCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()
	token, err := conf.Exchange(exchangeCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "oauth exchange failed")
		return
	}

	info, err := fetchOAuthProfile(exchangeCtx, conf, token, userInfoURL)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	user, err := a.findOrCreateOAuthUser(provider, info)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	jwtToken, err := utils.GenerateToken(user.ID, user.Username, tokenDuration)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, config.Get().FrontendBase+"/auth/complete#token="+jwtToken)
}

type oauthProfile struct {
	ID      string
	Login   string
	Email   string
	Avatar  string
	Display string
}

func fetchOAuthProfile(ctx context.Context, conf *oauth2.Config, token *oauth2.Token, url string) (*oauthProfile, error) {
	resp, err := conf.Client(ctx, token).Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed: %s", resp.Status)
	}

	var raw struct {
		ID        json.Number `json:"id"`
		Login     string      `json:"login"`
		Name      string      `json:"name"`
		Email     string      `json:"email"`
		AvatarURL string      `json:"avatar_url"`
		Picture   string      `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	info := &oauthProfile{
		ID:      raw.ID.String(),
		Login:   raw.Login,
		Email:   raw.Email,
		Avatar:  raw.AvatarURL,
		Display: raw.Name,
	}
	if info.Avatar == "" {
		info.Avatar = raw.Picture
	}
	if info.Login == "" {
		info.Login = raw.Name
	}
	return info, nil
}

func (a *AuthController) findOrCreateOAuthUser(provider string, info *oauthProfile) (*models.User, error) {
	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", provider, info.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	username := strings.TrimSpace(info.Login)
	if username == "" {
		username = provider + "_" + info.ID
	}
	// Usernames are unique; suffix on collision.
	base := username
	for i := 0; i < 5; i++ {
		var existing models.User
		if errors.Is(a.db.Where("username = ?", username).First(&existing).Error, gorm.ErrRecordNotFound) {
			break
		}
		username = fmt.Sprintf("%s_%s", base, uuid.NewString()[:8])
	}

	user = models.User{
		Username:   username,
		Email:      info.Email,
		Provider:   provider,
		ProviderID: info.ID,
		AvatarURL:  info.Avatar,
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
