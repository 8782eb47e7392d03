package models

import (
	"encoding/json"
	"time"
)

// Achievement categories determine which point source counts toward the
// required_points threshold.
const (
	AchievementCategoryGeneral   = "general"
	AchievementCategoryActivity  = "activity"
	AchievementCategoryNutrition = "nutrition"
	AchievementCategoryStreak    = "streak"
)

// Achievement tiers.
const (
	AchievementTierBronze = "bronze"
	AchievementTierSilver = "silver"
	AchievementTierGold   = "gold"
)

// Achievement is a static reference row describing an unlockable target.
// ActivityTypeIDs is stored as a JSON array and only consulted for
// activity-scoped achievements.
type Achievement struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:128;not null" json:"name"`
	Description     string    `gorm:"size:512" json:"description"`
	RequiredPoints  int       `gorm:"not null" json:"required_points"`
	Category        string    `gorm:"size:16;index;not null" json:"category"`
	IsGeneric       bool      `gorm:"not null;default:false" json:"is_generic"`
	Tier            string    `gorm:"size:16;not null;default:'bronze'" json:"tier"`
	ActivityTypeIDs string    `gorm:"type:text" json:"-"` // JSON array of activity type ids
	CreatedAt       time.Time `json:"created_at"`

	// CurrentPoints is an optional caller-provided override for progress
	// computation and is never persisted.
	CurrentPoints *int `gorm:"-" json:"current_points,omitempty"`
}

// ActivityTypeIDSet decodes the JSON-encoded activity type id list. A missing
// or malformed value yields an empty set.
func (a *Achievement) ActivityTypeIDSet() []uint {
	if a.ActivityTypeIDs == "" {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal([]byte(a.ActivityTypeIDs), &ids); err != nil {
		return nil
	}
	return ids
}

// SetActivityTypeIDs encodes the activity type id list for storage.
func (a *Achievement) SetActivityTypeIDs(ids []uint) {
	b, err := json.Marshal(ids)
	if err != nil {
		return
	}
	a.ActivityTypeIDs = string(b)
}

// UserAchievement records a single unlock. Rows are append-only and inserted
// with insert-if-absent semantics on the composite unique index; an unlock is
// never revoked.
type UserAchievement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index:idx_user_achievement,unique;not null" json:"user_id"`
	AchievementID uint      `gorm:"index:idx_user_achievement,unique;not null" json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}
