package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an app member. Passwords are stored as bcrypt hashes only.
// Streak bookkeeping fields are mutated exclusively by the engine package
// after validated check-ins.
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Username         string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email            string         `gorm:"size:255" json:"email"`
	PasswordHash     string         `gorm:"size:255" json:"-"`
	AvatarURL        string         `gorm:"size:512" json:"avatar_url"`
	XP               int            `gorm:"column:xp;default:0" json:"xp"`
	Streak           int            `gorm:"default:0" json:"streak"`
	StreakBlocks     int            `gorm:"default:2" json:"streak_blocks"`
	LastActivityDate *time.Time     `json:"last_activity_date"`
	LastStreakUpdate *time.Time     `json:"last_streak_update"`
	LastBlockReset   *time.Time     `json:"last_block_reset"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
