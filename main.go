package main

import (
	"time"

	"github.com/streakmate/streakmate/config"
	"github.com/streakmate/streakmate/engine"
	"github.com/streakmate/streakmate/models"
	"github.com/streakmate/streakmate/routes"
	"github.com/streakmate/streakmate/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.CheckIn{},
		&models.ActivityTypePoints{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Challenge{},
		&models.ChallengeParticipant{},
		&models.ChallengeSummary{},
		&models.UploadedImage{},
	)

	eng := engine.New(db, utils.MailNotifier{}, engine.Settings{
		StartingBlocks:  cfg.StartingStreakBlocks,
		CheckInRewardXP: cfg.CheckInRewardXP,
	})

	r := routes.SetupRouter(db, eng)

	// Background cleanup for orphaned check-in images (best-effort)
	utils.StartImageCleaner(5 * time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
