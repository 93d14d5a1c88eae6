package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/killursxlf/livejournal/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside gin context.
	ContextUsernameKey = "username"
)

// AuthRequired ensures the request carries a valid bearer JWT and places the
// actor identity in the context. Handlers never parse tokens themselves.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, errMsg := bearerToken(ctx)
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, errMsg)
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// AuthOptional resolves the actor identity when a valid token is present and
// stays silent otherwise, for endpoints that personalize but do not require auth.
func AuthOptional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, _ := bearerToken(ctx)
		if tokenString == "" || utils.IsTokenBlacklisted(tokenString) {
			ctx.Next()
			return
		}
		if claims, err := utils.ParseToken(tokenString); err == nil {
			ctx.Set(ContextUserIDKey, claims.UserID)
			ctx.Set(ContextUsernameKey, claims.Username)
		}
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) (string, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", "authorization header missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", "empty bearer token"
	}
	return token, ""
}
