package engine

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/streakmate/streakmate/models"
)

// pointSource identifies which counter feeds an achievement's progress. It is
// resolved once per achievement instead of re-deriving the category at every
// call site.
type pointSource int

const (
	sourceTotal pointSource = iota
	sourceActivityScoped
)

func resolveSource(a *models.Achievement) pointSource {
	if a.IsGeneric {
		return sourceTotal
	}
	switch a.Category {
	case models.AchievementCategoryGeneral, models.AchievementCategoryStreak:
		return sourceTotal
	case models.AchievementCategoryActivity:
		if len(a.ActivityTypeIDSet()) > 0 {
			return sourceActivityScoped
		}
	}
	return sourceTotal
}

// ResolveCurrentPoints picks the point counter for an achievement. An
// explicit CurrentPoints override wins; otherwise generic, general and streak
// achievements read the user's total, activity-scoped achievements sum the
// per-type counters for their activity set, and anything else falls back to
// the total.
func ResolveCurrentPoints(a *models.Achievement, totalPoints int, activityPoints map[uint]int) int {
	if a.CurrentPoints != nil {
		return *a.CurrentPoints
	}
	switch resolveSource(a) {
	case sourceActivityScoped:
		sum := 0
		for _, id := range a.ActivityTypeIDSet() {
			sum += activityPoints[id]
		}
		return sum
	default:
		return totalPoints
	}
}

// Progress returns the completion percentage clamped to [0, 100].
// requiredPoints > 0 is a precondition of the reference data; a non-positive
// value is treated as already complete.
func Progress(requiredPoints, currentPoints int) int {
	if requiredPoints <= 0 {
		return 100
	}
	if currentPoints <= 0 {
		return 0
	}
	p := currentPoints * 100 / requiredPoints
	if p > 100 {
		return 100
	}
	return p
}

// AchievementStatus is the read model for the achievements screen.
type AchievementStatus struct {
	models.Achievement
	Points     int        `json:"points"`
	Progress   int        `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// ListAchievements returns the full catalogue with per-user progress. An
// achievement reads as unlocked when a persisted unlock row exists or its
// progress reaches 100.
func (e *Engine) ListAchievements(ctx context.Context, userID uint) ([]AchievementStatus, error) {
	var user models.User
	if err := e.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, storef("load user", err)
	}

	activityPoints, err := e.ActivityPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	var achievements []models.Achievement
	if err := e.db.WithContext(ctx).Order("required_points ASC").Find(&achievements).Error; err != nil {
		return nil, storef("load achievements", err)
	}

	unlocked, err := e.unlockedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]AchievementStatus, 0, len(achievements))
	for i := range achievements {
		a := achievements[i]
		points := ResolveCurrentPoints(&a, user.XP, activityPoints)
		progress := Progress(a.RequiredPoints, points)
		status := AchievementStatus{
			Achievement: a,
			Points:      points,
			Progress:    progress,
			Unlocked:    progress >= 100,
		}
		if at, ok := unlocked[a.ID]; ok {
			status.Unlocked = true
			status.UnlockedAt = &at
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Unlock records an unlock exactly once. The insert is conditioned on absence
// via the composite unique index, so concurrent triggers and repeat calls
// collapse into a no-op.
func (e *Engine) Unlock(ctx context.Context, userID, achievementID uint) error {
	row := models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    e.now(),
	}
	err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil && !isDuplicateKey(err) {
		return storef("unlock achievement", err)
	}
	return nil
}

// CheckActivityAchievements re-evaluates the locked achievements associated
// with the checked-in activity type and unlocks any whose threshold is met.
// Contract: eventually unlocks all now-qualifying achievements for the pair,
// idempotently.
func (e *Engine) CheckActivityAchievements(ctx context.Context, userID, activityTypeID uint) error {
	var achievements []models.Achievement
	err := e.db.WithContext(ctx).
		Where("category = ?", models.AchievementCategoryActivity).
		Find(&achievements).Error
	if err != nil {
		return storef("load activity achievements", err)
	}

	unlocked, err := e.unlockedSet(ctx, userID)
	if err != nil {
		return err
	}

	activityPoints, err := e.ActivityPoints(ctx, userID)
	if err != nil {
		return err
	}

	for i := range achievements {
		a := achievements[i]
		if _, done := unlocked[a.ID]; done {
			continue
		}
		if !containsUint(a.ActivityTypeIDSet(), activityTypeID) {
			continue
		}
		if ResolveCurrentPoints(&a, 0, activityPoints) >= a.RequiredPoints {
			if err := e.Unlock(ctx, userID, a.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) unlockedSet(ctx context.Context, userID uint) (map[uint]time.Time, error) {
	var rows []models.UserAchievement
	if err := e.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, storef("load user achievements", err)
	}
	set := make(map[uint]time.Time, len(rows))
	for _, row := range rows {
		set[row.AchievementID] = row.UnlockedAt
	}
	return set, nil
}

func containsUint(list []uint, v uint) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
