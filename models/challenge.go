package models

import "time"

// Challenge participant statuses. Transitions are one-way:
// pending -> accepted, pending -> declined.
const (
	ParticipantStatusPending  = "pending"
	ParticipantStatusAccepted = "accepted"
	ParticipantStatusDeclined = "declined"
)

// Challenge completion types recorded on the summary row.
const (
	CompletionTypeElapsed        = "elapsed"
	CompletionTypeNoParticipants = "no_participants"
)

// Challenge is a time-boxed competition created by a user. ActivityTypeID nil
// means any activity check-in counts. BetAmount is set iff HasBet.
type Challenge struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatorID      uint      `gorm:"index;not null" json:"creator_id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Description    string    `gorm:"size:1024" json:"description"`
	ActivityTypeID *uint     `json:"activity_type_id"`
	StartDate      time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate        time.Time `gorm:"type:date;not null" json:"end_date"`
	HasBet         bool      `gorm:"not null;default:false" json:"has_bet"`
	BetAmount      *int      `json:"bet_amount"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ChallengeParticipant links a user to a challenge. The creator row is
// inserted as accepted at creation time, invitees start as pending.
type ChallengeParticipant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChallengeID uint      `gorm:"index:idx_challenge_participant,unique;not null" json:"challenge_id"`
	UserID      uint      `gorm:"index;index:idx_challenge_participant,unique;not null" json:"user_id"`
	Status      string    `gorm:"size:16;not null;default:'pending'" json:"status"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ChallengeSummary is the one-time settlement record for a completed
// challenge. The unique index on ChallengeID serializes concurrent settlement
// attempts; once written the row is never recomputed.
type ChallengeSummary struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ChallengeID       uint      `gorm:"uniqueIndex;not null" json:"challenge_id"`
	WinnerUserID      *uint     `json:"winner_user_id"`
	TotalParticipants int       `gorm:"not null" json:"total_participants"`
	WinnerPoints      int       `gorm:"not null" json:"winner_points"`
	TotalBetPool      int       `gorm:"not null;default:0" json:"total_bet_pool"`
	CompletionType    string    `gorm:"size:32;not null" json:"completion_type"`
	CreatedAt         time.Time `json:"created_at"`
}

// UploadedImage records locally stored check-in images for timed cleanup of
// orphans that were uploaded but never attached to a check-in.
type UploadedImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FilePath  string    `gorm:"size:1024;not null" json:"file_path"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	ExpireAt  time.Time `gorm:"index" json:"expire_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
