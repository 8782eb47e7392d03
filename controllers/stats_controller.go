package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/streakmate/streakmate/models"
	"github.com/streakmate/streakmate/utils"
)

// StatsController provides per-user aggregate statistics for the profile
// screen. Individual counters degrade to zero on read failures instead of
// failing the whole endpoint.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns the caller's lifetime totals.
func (s *StatsController) GetStats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	var totalCheckIns int64
	if err := s.db.Model(&models.CheckIn{}).Where("user_id = ?", userID).Count(&totalCheckIns).Error; err != nil {
		totalCheckIns = 0
	}

	var activityCheckIns int64
	if err := s.db.Model(&models.CheckIn{}).
		Where("user_id = ? AND type = ?", userID, models.CheckInTypeActivity).
		Count(&activityCheckIns).Error; err != nil {
		activityCheckIns = 0
	}

	var nutritionCheckIns int64
	if err := s.db.Model(&models.CheckIn{}).
		Where("user_id = ? AND type = ?", userID, models.CheckInTypeNutrition).
		Count(&nutritionCheckIns).Error; err != nil {
		nutritionCheckIns = 0
	}

	var achievementsCount int64
	if err := s.db.Model(&models.UserAchievement{}).Where("user_id = ?", userID).Count(&achievementsCount).Error; err != nil {
		achievementsCount = 0
	}

	// Check-ins recorded today, by string date to match the DATE column.
	today := time.Now().In(time.Local).Format("2006-01-02")
	var todayCheckIns int64
	if err := s.db.Model(&models.CheckIn{}).
		Where("user_id = ? AND checkin_date = ?", userID, today).
		Count(&todayCheckIns).Error; err != nil {
		todayCheckIns = 0
	}

	utils.Success(ctx, gin.H{
		"xp":                 user.XP,
		"streak":             user.Streak,
		"streak_blocks":      user.StreakBlocks,
		"total_checkins":     totalCheckIns,
		"activity_checkins":  activityCheckIns,
		"nutrition_checkins": nutritionCheckIns,
		"achievements_count": achievementsCount,
		"today_checkins":     todayCheckIns,
	})
}
