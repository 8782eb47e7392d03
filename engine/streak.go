package engine

import (
	"math"
	"time"

	"github.com/streakmate/streakmate/models"
)

const (
	// dateLayout is the calendar-day format used by the ledger.
	dateLayout = "2006-01-02"

	// StreakGraceDays is the window after the last completed day during
	// which a streak is still considered active.
	StreakGraceDays = 2
	// BlockRecoveryDays is how long a consumed streak block takes to
	// regenerate, counted from the last block reset.
	BlockRecoveryDays = 7
)

// IsStreakActive reports whether a streak survives given the last activity
// date: true iff at most StreakGraceDays calendar days have elapsed.
func IsStreakActive(lastActivityDate, now time.Time) bool {
	return daysBetween(lastActivityDate, now) <= StreakGraceDays
}

// DaysUntilBlockRecovery returns how many whole days remain before a consumed
// streak block regenerates, zero when recovery is already due.
func DaysUntilBlockRecovery(lastBlockReset, now time.Time) int {
	ready := lastBlockReset.AddDate(0, 0, BlockRecoveryDays)
	if !now.Before(ready) {
		return 0
	}
	return int(math.Ceil(ready.Sub(now).Hours() / 24))
}

// advanceStreak applies the streak state transition for a day on which the
// user completed both check-in types. Contract: streak grows by one per
// completed day while active; a gap beyond the grace window consumes a block
// when one is available and the streak survives, otherwise the streak
// restarts at 1 with today counting. Runs at most once per calendar day.
func (e *Engine) advanceStreak(user *models.User, now time.Time) {
	today := dateOnly(now)

	if user.LastStreakUpdate != nil && sameDay(*user.LastStreakUpdate, today) {
		return
	}

	// Regenerate a consumed block once its recovery window has elapsed.
	if user.StreakBlocks < e.cfg.StartingBlocks && user.LastBlockReset != nil &&
		DaysUntilBlockRecovery(*user.LastBlockReset, now) == 0 {
		user.StreakBlocks++
		user.LastBlockReset = &today
	}

	switch {
	case user.Streak == 0 || user.LastStreakUpdate == nil:
		user.Streak = 1
	case IsStreakActive(*user.LastStreakUpdate, now):
		user.Streak++
	case user.StreakBlocks > 0:
		// Missed beyond the grace window: a block absorbs the gap.
		user.StreakBlocks--
		user.LastBlockReset = &today
		user.Streak++
	default:
		user.Streak = 1
	}

	user.LastStreakUpdate = &today
}

// StreakStatus is the read model for the streak display.
type StreakStatus struct {
	Streak            int  `json:"streak"`
	StreakBlocks      int  `json:"streak_blocks"`
	Active            bool `json:"active"`
	DaysUntilRecovery int  `json:"days_until_block_recovery"`
}

// StatusFor derives the displayable streak state from profile fields.
func (e *Engine) StatusFor(user *models.User) StreakStatus {
	now := e.now()
	st := StreakStatus{Streak: user.Streak, StreakBlocks: user.StreakBlocks}
	if user.LastActivityDate != nil {
		st.Active = IsStreakActive(*user.LastActivityDate, now)
	}
	if user.StreakBlocks < e.cfg.StartingBlocks && user.LastBlockReset != nil {
		st.DaysUntilRecovery = DaysUntilBlockRecovery(*user.LastBlockReset, now)
	}
	return st
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// daysBetween counts whole calendar days from a to b, ignoring clock time.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}
