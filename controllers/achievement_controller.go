package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streakmate/streakmate/engine"
	"github.com/streakmate/streakmate/utils"
)

// AchievementController serves the achievement catalogue with per-user
// progress. Unlocks are engine-side only and happen on check-in.
type AchievementController struct {
	engine *engine.Engine
}

// NewAchievementController creates a new controller instance.
func NewAchievementController(eng *engine.Engine) *AchievementController {
	return &AchievementController{engine: eng}
}

// ListAchievements returns every achievement with the caller's progress and
// unlock state.
func (a *AchievementController) ListAchievements(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cacheKey := utils.UserCachePrefix(userID) + "achievements"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	statuses, err := a.engine.ListAchievements(ctx.Request.Context(), userID)
	if err != nil {
		respondEngineError(ctx, err)
		return
	}

	payload := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"items": statuses}}
	utils.CacheSetJSON(cacheKey, payload, 5*time.Minute)
	ctx.JSON(http.StatusOK, payload)
}
