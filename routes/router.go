package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/streakmate/streakmate/config"
	"github.com/streakmate/streakmate/controllers"
	"github.com/streakmate/streakmate/engine"
	"github.com/streakmate/streakmate/middleware"
	"github.com/streakmate/streakmate/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, eng *engine.Engine) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	checkInController := controllers.NewCheckInController(db, eng)
	achievementController := controllers.NewAchievementController(eng)
	challengeController := controllers.NewChallengeController(eng)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/checkins", checkInController.RecordCheckIn)
	protected.GET("/checkins", checkInController.ListCheckIns)
	protected.GET("/checkins/weekly", checkInController.WeeklyActivity)
	protected.POST("/checkins/image", checkInController.UploadImage)
	protected.GET("/streak", checkInController.StreakStatus)

	protected.GET("/achievements", achievementController.ListAchievements)

	protected.POST("/challenges", challengeController.CreateChallenge)
	protected.GET("/challenges", challengeController.ListChallenges)
	protected.GET("/challenges/:id", challengeController.GetChallenge)
	protected.POST("/challenges/:id/accept", challengeController.AcceptInvite)
	protected.POST("/challenges/:id/decline", challengeController.DeclineInvite)
	protected.GET("/challenges/:id/ranking", challengeController.Ranking)
	protected.POST("/challenges/:id/settle", challengeController.Settle)

	protected.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
