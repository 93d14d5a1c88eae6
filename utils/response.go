package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error writes the uniform error body. Clients only ever see the HTTP status
// and a human-readable string.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"error": message})
}

// ServerError logs the underlying error and answers with a generic message so
// internals never leak to the client.
func ServerError(ctx *gin.Context, err error) {
	if Sugar != nil {
		Sugar.Errorw("request failed",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"error", err,
		)
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
}

// OK writes a 200 response with the payload as-is.
func OK(ctx *gin.Context, payload interface{}) {
	ctx.JSON(http.StatusOK, payload)
}
