package main

import (
	"log"
	"time"

	"github.com/killursxlf/livejournal/config"
	"github.com/killursxlf/livejournal/models"
	"github.com/killursxlf/livejournal/routes"
	"github.com/killursxlf/livejournal/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() {
		if utils.Logger != nil {
			_ = utils.Logger.Sync()
		}
	}()

	db := config.InitDatabase(
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
	)

	utils.StartUploadCleaner(db, time.Duration(cfg.UploadTTLMinutes)*time.Minute)

	router := routes.SetupRouter(db)

	addr := ":" + cfg.AppPort
	utils.Sugar.Infof("listening on %s", addr)
	if err := utils.GraceServer(addr, router); err != nil {
		utils.Sugar.Fatalf("server exited: %v", err)
	}
}
