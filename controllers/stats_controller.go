package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/utils"
)

// StatsController exposes aggregate site statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a StatsController.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns site-wide totals plus today's page views. Individual
// failures fall back to zero instead of failing the endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount, postCount, commentCount, communityCount, dailyViews int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := s.db.Model(&models.Post{}).
		Where("status = ?", models.PostStatusPublished).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := s.db.Model(&models.Comment{}).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}
	if err := s.db.Model(&models.Community{}).Count(&communityCount).Error; err != nil {
		communityCount = 0
	}

	now := time.Now().In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&dailyViews).Error; err != nil {
		dailyViews = 0
	}

	utils.OK(ctx, gin.H{
		"userCount":      userCount,
		"postCount":      postCount,
		"commentCount":   commentCount,
		"communityCount": communityCount,
		"dailyViews":     dailyViews,
	})
}
