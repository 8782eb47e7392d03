package engine

import (
	"time"

	"gorm.io/gorm"

	"github.com/streakmate/streakmate/utils"
)

// Notifier dispatches user-facing notifications. Implementations must be safe
// for concurrent use; the engine calls them best-effort and never fails a
// primary operation on a notification error.
type Notifier interface {
	ChallengeInvite(email, inviter, challengeTitle string) error
	ChallengeSettled(email, challengeTitle string, won bool, netAmount int) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) ChallengeInvite(string, string, string) error     { return nil }
func (NopNotifier) ChallengeSettled(string, string, bool, int) error { return nil }

// Settings carries the gamification knobs that are configurable per deploy.
type Settings struct {
	// StartingBlocks is the number of streak grace blocks a user holds at
	// most; consumed blocks recover over time up to this cap.
	StartingBlocks int
	// CheckInRewardXP is the XP awarded per accepted check-in.
	CheckInRewardXP int
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{StartingBlocks: 2, CheckInRewardXP: 10}
}

// Engine implements the gamification and challenge rules on top of the
// relational store. All methods are request-scoped and safe under concurrent
// invocation; cross-request coordination happens through the store's unique
// constraints and atomic upserts, never through in-process locks.
type Engine struct {
	db       *gorm.DB
	notifier Notifier
	cfg      Settings

	// now is swapped in tests to pin the clock.
	now func() time.Time
}

// New creates an Engine. A nil notifier disables notifications.
func New(db *gorm.DB, notifier Notifier, cfg Settings) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cfg.StartingBlocks <= 0 {
		cfg.StartingBlocks = DefaultSettings().StartingBlocks
	}
	if cfg.CheckInRewardXP <= 0 {
		cfg.CheckInRewardXP = DefaultSettings().CheckInRewardXP
	}
	return &Engine{db: db, notifier: notifier, cfg: cfg, now: time.Now}
}

func (e *Engine) logf(format string, args ...interface{}) {
	if utils.Sugar != nil {
		utils.Sugar.Warnf(format, args...)
	}
}
