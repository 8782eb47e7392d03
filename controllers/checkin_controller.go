package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streakmate/streakmate/engine"
	"github.com/streakmate/streakmate/models"
	"github.com/streakmate/streakmate/utils"
)

// CheckInController exposes the check-in ledger and its derived views.
type CheckInController struct {
	db     *gorm.DB
	engine *engine.Engine
}

// NewCheckInController creates a new controller instance.
func NewCheckInController(db *gorm.DB, eng *engine.Engine) *CheckInController {
	return &CheckInController{db: db, engine: eng}
}

// RecordCheckIn records today's check-in of the requested type.
func (c *CheckInController) RecordCheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req engine.CheckInInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}

	checkIn, err := c.engine.RecordCheckIn(ctx.Request.Context(), userID, req)
	if err != nil {
		respondEngineError(ctx, err)
		return
	}

	// An attached upload is no longer an orphan; stop the cleaner
	// from collecting it.
	if req.ImageURL != "" {
		c.db.Model(&models.UploadedImage{}).
			Where("url = ?", req.ImageURL).
			Update("expire_at", time.Now().AddDate(10, 0, 0))
	}

	utils.InvalidateUserCaches(userID)
	utils.Success(ctx, gin.H{"check_in": checkIn})
}

// ListCheckIns returns the caller's check-in history, newest first.
func (c *CheckInController) ListCheckIns(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	items, err := c.engine.ListCheckIns(ctx.Request.Context(), userID)
	if err != nil {
		respondEngineError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// WeeklyActivity returns the Sunday-anchored completion matrix for the week
// containing the optional ?date= parameter (default: today).
func (c *CheckInController) WeeklyActivity(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	reference := time.Now()
	if raw := ctx.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40032, "invalid date, expected YYYY-MM-DD")
			return
		}
		reference = parsed
	}

	cacheKey := fmt.Sprintf("%sweekly:%s", utils.UserCachePrefix(userID), reference.Format("2006-01-02"))
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	week := c.engine.WeeklyActivity(ctx.Request.Context(), userID, reference)

	payload := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"week": week}}
	utils.CacheSetJSON(cacheKey, payload, 5*time.Minute)
	ctx.JSON(http.StatusOK, payload)
}

// StreakStatus returns the caller's streak, blocks, and recovery countdown.
func (c *CheckInController) StreakStatus(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := c.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load user")
		return
	}

	utils.Success(ctx, c.engine.StatusFor(&user))
}

// UploadImage stores a check-in photo locally and returns its public URL.
// The upload expires in 24h unless attached to a check-in before then.
func (c *CheckInController) UploadImage(ctx *gin.Context) {
	if _, ok := getUserID(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "missing file field")
		return
	}
	defer file.Close()

	if header.Size > 8<<20 {
		utils.Error(ctx, http.StatusBadRequest, 40034, "file too large (max 8MB)")
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		utils.Error(ctx, http.StatusBadRequest, 40035, "unsupported image format")
		return
	}

	dir := filepath.Join("static", "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to prepare storage")
		return
	}

	name := uuid.NewString() + ext
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to store file")
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to store file")
		return
	}

	url := "/static/uploads/" + name
	record := models.UploadedImage{
		FilePath: path,
		URL:      url,
		ExpireAt: time.Now().Add(24 * time.Hour),
	}
	if err := c.db.Create(&record).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to record upload")
		return
	}

	utils.Success(ctx, gin.H{"url": url})
}
