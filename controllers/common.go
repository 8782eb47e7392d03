package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/streakmate/streakmate/engine"
	"github.com/streakmate/streakmate/middleware"
	"github.com/streakmate/streakmate/utils"
)

// getUserID extracts the authenticated user id placed by the auth middleware.
func getUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// parseID parses a numeric path parameter.
func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// respondEngineError maps the engine error taxonomy onto the response
// envelope. Duplicate check-ins get their own code and message so the client
// can tell "already checked in today" apart from a generic failure.
func respondEngineError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrDuplicateCheckIn):
		utils.Error(ctx, http.StatusBadRequest, 40030, "already checked in today")
	case errors.Is(err, engine.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "resource not found")
	case errors.Is(err, engine.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, "state changed concurrently, please refresh")
	case errors.Is(err, engine.ErrExternalService):
		utils.Error(ctx, http.StatusBadGateway, 50201, "temporary backend failure, please retry")
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50000, "something went wrong, please retry")
	}
}
