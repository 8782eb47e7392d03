package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/streakmate/streakmate/models"
)

func TestIsStreakActive(t *testing.T) {
	last := day("2024-03-04")
	assert.True(t, IsStreakActive(last, at("2024-03-04")))
	assert.True(t, IsStreakActive(last, at("2024-03-05")))
	assert.True(t, IsStreakActive(last, at("2024-03-06")))
	assert.False(t, IsStreakActive(last, at("2024-03-07")))
}

func TestDaysUntilBlockRecovery(t *testing.T) {
	reset := day("2024-03-01")
	assert.Equal(t, 7, DaysUntilBlockRecovery(reset, reset))
	assert.Equal(t, 4, DaysUntilBlockRecovery(reset, day("2024-03-04")))
	assert.Equal(t, 0, DaysUntilBlockRecovery(reset, day("2024-03-08")))
	assert.Equal(t, 0, DaysUntilBlockRecovery(reset, day("2024-03-20")))
}

func TestAdvanceStreakTransitions(t *testing.T) {
	e := newTestEngine(t)

	t.Run("first completed day starts at one", func(t *testing.T) {
		user := models.User{StreakBlocks: 2}
		e.advanceStreak(&user, at("2024-03-04"))
		assert.Equal(t, 1, user.Streak)
		assert.Equal(t, 2, user.StreakBlocks)
		assert.True(t, sameDay(*user.LastStreakUpdate, day("2024-03-04")))
	})

	t.Run("consecutive day increments", func(t *testing.T) {
		last := day("2024-03-04")
		user := models.User{Streak: 3, StreakBlocks: 2, LastStreakUpdate: &last}
		e.advanceStreak(&user, at("2024-03-05"))
		assert.Equal(t, 4, user.Streak)
		assert.Equal(t, 2, user.StreakBlocks)
	})

	t.Run("grace window keeps streak without a block", func(t *testing.T) {
		last := day("2024-03-04")
		user := models.User{Streak: 3, StreakBlocks: 2, LastStreakUpdate: &last}
		e.advanceStreak(&user, at("2024-03-06"))
		assert.Equal(t, 4, user.Streak)
		assert.Equal(t, 2, user.StreakBlocks)
	})

	t.Run("gap beyond grace consumes a block", func(t *testing.T) {
		last := day("2024-03-04")
		user := models.User{Streak: 3, StreakBlocks: 2, LastStreakUpdate: &last}
		e.advanceStreak(&user, at("2024-03-08"))
		assert.Equal(t, 4, user.Streak)
		assert.Equal(t, 1, user.StreakBlocks)
		assert.True(t, sameDay(*user.LastBlockReset, day("2024-03-08")))
	})

	t.Run("gap with no blocks resets to one", func(t *testing.T) {
		last := day("2024-03-04")
		reset := day("2024-03-05")
		user := models.User{Streak: 9, StreakBlocks: 0, LastStreakUpdate: &last, LastBlockReset: &reset}
		e.advanceStreak(&user, at("2024-03-10"))
		assert.Equal(t, 1, user.Streak)
		assert.Equal(t, 0, user.StreakBlocks)
	})

	t.Run("block regenerates after recovery window", func(t *testing.T) {
		last := day("2024-03-11")
		reset := day("2024-03-04")
		user := models.User{Streak: 5, StreakBlocks: 1, LastStreakUpdate: &last, LastBlockReset: &reset}
		e.advanceStreak(&user, at("2024-03-12"))
		assert.Equal(t, 6, user.Streak)
		assert.Equal(t, 2, user.StreakBlocks)
	})

	t.Run("runs once per calendar day", func(t *testing.T) {
		last := day("2024-03-04")
		user := models.User{Streak: 2, StreakBlocks: 2, LastStreakUpdate: &last}
		e.advanceStreak(&user, at("2024-03-04"))
		assert.Equal(t, 2, user.Streak)
	})
}

func TestStatusFor(t *testing.T) {
	e := newTestEngine(t)
	setClock(e, at("2024-03-10"))

	activity := day("2024-03-09")
	reset := day("2024-03-08")
	user := models.User{
		Streak:           4,
		StreakBlocks:     1,
		LastActivityDate: &activity,
		LastBlockReset:   &reset,
	}

	st := e.StatusFor(&user)
	assert.Equal(t, 4, st.Streak)
	assert.Equal(t, 1, st.StreakBlocks)
	assert.True(t, st.Active)
	assert.Equal(t, 5, st.DaysUntilRecovery)

	setClock(e, at("2024-03-13"))
	st = e.StatusFor(&user)
	assert.False(t, st.Active)
}

func TestStatusForFreshUser(t *testing.T) {
	e := newTestEngine(t)
	setClock(e, time.Now())

	st := e.StatusFor(&models.User{StreakBlocks: 2})
	assert.Equal(t, 0, st.Streak)
	assert.False(t, st.Active)
	assert.Equal(t, 0, st.DaysUntilRecovery)
}
