package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/streakmate/streakmate/config"
	"github.com/streakmate/streakmate/models"
	"github.com/streakmate/streakmate/utils"
)

const tokenDuration = 7 * 24 * time.Hour

// AuthController handles registration, login and session endpoints.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new controller instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a new account with a bcrypt-hashed password.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=64"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	username := strings.TrimSpace(req.Username)
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to process password")
		return
	}

	cfg := config.Get()
	user := models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		StreakBlocks: cfg.StartingStreakBlocks,
	}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "Duplicate entry") {
			utils.Error(ctx, http.StatusBadRequest, 40011, "username already taken")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create account")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid request payload")
		return
	}

	var user models.User
	err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout blacklists the presented token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 {
		token := strings.TrimSpace(parts[1])
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			utils.BlacklistToken(token, claims.ExpiresAt.Time)
		}
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}
