package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakmate/streakmate/models"
)

func TestRecordCheckInValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	user := createUser(t, e, "val")

	_, err := e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: "sleep"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeActivity})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.RecordCheckIn(ctx, 9999, CheckInInput{Type: models.CheckInTypeNutrition})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordCheckInRejectsSameTypeSameDay(t *testing.T) {
	e := newTestEngine(t)
	setClock(e, at("2024-03-04"))
	ctx := context.Background()
	user := createUser(t, e, "dup")

	_, err := e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeActivity, ActivityTypeID: uintPtr(1)})
	require.NoError(t, err)

	_, err = e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeActivity, ActivityTypeID: uintPtr(2)})
	assert.ErrorIs(t, err, ErrDuplicateCheckIn)

	// The other type is still open, and the next day reopens both.
	_, err = e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeNutrition})
	require.NoError(t, err)

	setClock(e, at("2024-03-05"))
	_, err = e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeActivity, ActivityTypeID: uintPtr(1)})
	require.NoError(t, err)
}

func TestRecordCheckInAwardsPointsAndStreak(t *testing.T) {
	e := newTestEngine(t)
	setClock(e, at("2024-03-04"))
	ctx := context.Background()
	user := createUser(t, e, "earn")

	_, err := e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeActivity, ActivityTypeID: uintPtr(3)})
	require.NoError(t, err)

	got := reloadUser(t, e, user.ID)
	assert.Equal(t, e.cfg.CheckInRewardXP, got.XP)
	assert.Equal(t, 0, got.Streak, "one type alone does not complete the day")
	require.NotNil(t, got.LastActivityDate)
	assert.True(t, sameDay(*got.LastActivityDate, day("2024-03-04")))

	_, err = e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeNutrition})
	require.NoError(t, err)

	got = reloadUser(t, e, user.ID)
	assert.Equal(t, 2*e.cfg.CheckInRewardXP, got.XP)
	assert.Equal(t, 1, got.Streak, "both types complete the day")

	points, err := e.ActivityPoints(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{3: 1}, points)

	setClock(e, at("2024-03-05"))
	_, err = e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeNutrition})
	require.NoError(t, err)
	_, err = e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeActivity, ActivityTypeID: uintPtr(3)})
	require.NoError(t, err)

	got = reloadUser(t, e, user.ID)
	assert.Equal(t, 2, got.Streak)

	points, err = e.ActivityPoints(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{3: 2}, points)
}

func TestRecordCheckInConcurrentDuplicates(t *testing.T) {
	e := newTestEngine(t)
	setClock(e, at("2024-03-04"))
	user := createUser(t, e, "race")

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.RecordCheckIn(context.Background(), user.ID, CheckInInput{
				Type:           models.CheckInTypeActivity,
				ActivityTypeID: uintPtr(1),
			})
		}(i)
	}
	wg.Wait()

	successes, duplicates := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrDuplicateCheckIn):
			duplicates++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, duplicates)

	var count int64
	require.NoError(t, e.db.Model(&models.CheckIn{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	got := reloadUser(t, e, user.ID)
	assert.Equal(t, e.cfg.CheckInRewardXP, got.XP, "losers must not award points")
}

func TestListCheckInsNewestFirst(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	user := createUser(t, e, "list")

	for _, d := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		setClock(e, at(d))
		_, err := e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeNutrition})
		require.NoError(t, err)
	}

	items, err := e.ListCheckIns(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "2024-03-03", items[0].CheckinDate)
	assert.Equal(t, "2024-03-01", items[2].CheckinDate)
}
