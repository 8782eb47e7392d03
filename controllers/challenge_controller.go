package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streakmate/streakmate/engine"
	"github.com/streakmate/streakmate/utils"
)

// ChallengeController exposes the challenge lifecycle over HTTP.
type ChallengeController struct {
	engine *engine.Engine
}

// NewChallengeController creates a new controller instance.
func NewChallengeController(eng *engine.Engine) *ChallengeController {
	return &ChallengeController{engine: eng}
}

// CreateChallenge creates a challenge and invites the listed friends.
func (c *ChallengeController) CreateChallenge(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Title          string `json:"title" binding:"required,min=1,max=255"`
		Description    string `json:"description"`
		ActivityTypeID *uint  `json:"activity_type_id"`
		StartDate      string `json:"start_date" binding:"required"`
		EndDate        string `json:"end_date" binding:"required"`
		HasBet         bool   `json:"has_bet"`
		BetAmount      *int   `json:"bet_amount"`
		Invitees       []uint `json:"invitees"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	start, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	end, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid end_date, expected YYYY-MM-DD")
		return
	}

	challenge, err := c.engine.CreateChallenge(ctx.Request.Context(), userID, engine.ChallengeInput{
		Title:          req.Title,
		Description:    req.Description,
		ActivityTypeID: req.ActivityTypeID,
		StartDate:      start,
		EndDate:        end,
		HasBet:         req.HasBet,
		BetAmount:      req.BetAmount,
	}, req.Invitees)
	if err != nil {
		respondEngineError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{"challenge": challenge})
}

// ListChallenges returns every challenge the caller participates in.
func (c *ChallengeController) ListChallenges(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	views, err := c.engine.ListChallenges(ctx.Request.Context(), userID)
	if err != nil {
		respondEngineError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": views})
}

// GetChallenge returns a single challenge with derived state.
func (c *ChallengeController) GetChallenge(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid challenge id")
		return
	}

	view, err := c.engine.GetChallenge(ctx.Request.Context(), id)
	if err != nil {
		respondEngineError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"challenge": view})
}

// AcceptInvite accepts the caller's pending invitation.
func (c *ChallengeController) AcceptInvite(ctx *gin.Context) {
	c.resolveInvite(ctx, true)
}

// DeclineInvite declines the caller's pending invitation. Terminal.
func (c *ChallengeController) DeclineInvite(ctx *gin.Context) {
	c.resolveInvite(ctx, false)
}

func (c *ChallengeController) resolveInvite(ctx *gin.Context, accept bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid challenge id")
		return
	}

	var err error
	if accept {
		err = c.engine.AcceptInvite(ctx.Request.Context(), userID, id)
	} else {
		err = c.engine.DeclineInvite(ctx.Request.Context(), userID, id)
	}
	if err != nil {
		respondEngineError(ctx, err)
		return
	}

	utils.InvalidateByPrefix(utils.ChallengeCachePrefix(id))
	utils.Success(ctx, gin.H{"status": map[bool]string{true: "accepted", false: "declined"}[accept]})
}

// Ranking returns the live leaderboard for a challenge.
func (c *ChallengeController) Ranking(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid challenge id")
		return
	}

	cacheKey := utils.ChallengeCachePrefix(id) + "ranking"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	entries, err := c.engine.LiveRanking(ctx.Request.Context(), id)
	if err != nil {
		respondEngineError(ctx, err)
		return
	}

	payload := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"ranking": entries}}
	utils.CacheSetJSON(cacheKey, payload, 30*time.Second)
	ctx.JSON(http.StatusOK, payload)
}

// Settle runs one-time settlement for a completed challenge. Safe to retry;
// a repeat call returns the existing summary.
func (c *ChallengeController) Settle(ctx *gin.Context) {
	if _, ok := getUserID(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid challenge id")
		return
	}

	summary, err := c.engine.Settle(ctx.Request.Context(), id)
	if err != nil {
		respondEngineError(ctx, err)
		return
	}

	utils.InvalidateByPrefix(utils.ChallengeCachePrefix(id))
	utils.Success(ctx, gin.H{"summary": summary})
}
