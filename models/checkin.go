package models

import "time"

// Check-in types. A user may record at most one check-in of each type per
// calendar day; the composite unique index below enforces that in the store.
const (
	CheckInTypeActivity  = "activity"
	CheckInTypeNutrition = "nutrition"
)

// CheckIn is a single immutable daily check-in event. CheckinDate carries the
// server-local calendar day as YYYY-MM-DD so the uniqueness constraint is
// timezone independent once written.
type CheckIn struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;index:idx_checkin_user_type_day,unique;not null" json:"user_id"`
	Type           string    `gorm:"size:16;index:idx_checkin_user_type_day,unique;not null" json:"type"`
	ActivityTypeID *uint     `gorm:"index" json:"activity_type_id"`
	CheckinDate    string    `gorm:"size:10;index:idx_checkin_user_type_day,unique;not null" json:"checkin_date"`
	ImageURL       string    `gorm:"size:1024" json:"image_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActivityTypePoints accumulates one point per activity check-in for a
// (user, activity type) pair. Rows are only ever incremented, via an atomic
// upsert on the composite unique index.
type ActivityTypePoints struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index:idx_atp_user_type,unique;not null" json:"user_id"`
	ActivityTypeID uint      `gorm:"index:idx_atp_user_type,unique;not null" json:"activity_type_id"`
	Points         int       `gorm:"not null;default:0" json:"points"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
