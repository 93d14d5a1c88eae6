package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/config"
	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

// UploadController stores user uploads (avatars, post images) under
// static/uploads and records them for TTL-based cleanup.
type UploadController struct {
	db *gorm.DB
}

// NewUploadController creates an UploadController.
func NewUploadController(db *gorm.DB) *UploadController {
	return &UploadController{db: db}
}

const maxUploadSize = 10 * 1024 * 1024

// Upload accepts a multipart file and returns its public URL.
func (u *UploadController) Upload(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		utils.Error(ctx, http.StatusBadRequest, "file size exceeds 10MB")
		return
	}

	now := time.Now()
	baseDir := filepath.Join(".", "static", "uploads", now.Format("2006"), now.Format("01"), now.Format("02"))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		utils.ServerError(ctx, err)
		return
	}

	fname := filepath.Base(header.Filename)
	if fname == "." || fname == "" {
		fname = "file"
	}
	safeName := fmt.Sprintf("%s_%d_%s", uuid.NewString(), actorID, fname)
	dstPath := filepath.Join(baseDir, safeName)

	out, err := os.Create(dstPath)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}
	defer out.Close()

	lr := &io.LimitedReader{R: file, N: maxUploadSize + 1}
	written, err := io.Copy(out, lr)
	if err != nil {
		_ = os.Remove(dstPath)
		utils.ServerError(ctx, err)
		return
	}
	if written > maxUploadSize {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusBadRequest, "file size exceeds 10MB")
		return
	}

	relURL := fmt.Sprintf("/static/uploads/%s/%s/%s/%s", now.Format("2006"), now.Format("01"), now.Format("02"), safeName)

	// Record for TTL cleanup; an upload that never gets referenced by a
	// profile or post is garbage-collected by the background cleaner.
	ttl := time.Duration(config.Get().UploadTTLMinutes) * time.Minute
	absPath, _ := filepath.Abs(dstPath)
	if err := u.db.Create(&models.UploadedFile{
		FilePath: absPath,
		URL:      relURL,
		ExpireAt: now.Add(ttl),
	}).Error; err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("failed to record upload: %v", err)
	}

	utils.OK(ctx, gin.H{"url": relURL})
}
