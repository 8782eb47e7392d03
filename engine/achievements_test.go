package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakmate/streakmate/models"
)

func TestResolveCurrentPoints(t *testing.T) {
	activityPoints := map[uint]int{1: 4, 2: 3}

	override := models.Achievement{Category: models.AchievementCategoryActivity, CurrentPoints: intPtr(42)}
	assert.Equal(t, 42, ResolveCurrentPoints(&override, 100, activityPoints))

	generic := models.Achievement{Category: models.AchievementCategoryActivity, IsGeneric: true}
	assert.Equal(t, 100, ResolveCurrentPoints(&generic, 100, activityPoints))

	general := models.Achievement{Category: models.AchievementCategoryGeneral}
	assert.Equal(t, 100, ResolveCurrentPoints(&general, 100, activityPoints))

	streak := models.Achievement{Category: models.AchievementCategoryStreak}
	assert.Equal(t, 100, ResolveCurrentPoints(&streak, 100, activityPoints))

	scoped := models.Achievement{Category: models.AchievementCategoryActivity}
	scoped.SetActivityTypeIDs([]uint{1, 2})
	assert.Equal(t, 7, ResolveCurrentPoints(&scoped, 100, activityPoints))

	// Activity category with no bound types falls back to the total.
	unbound := models.Achievement{Category: models.AchievementCategoryActivity}
	assert.Equal(t, 100, ResolveCurrentPoints(&unbound, 100, activityPoints))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(10, 0))
	assert.Equal(t, 0, Progress(10, -5))
	assert.Equal(t, 50, Progress(10, 5))
	assert.Equal(t, 100, Progress(10, 10))
	assert.Equal(t, 100, Progress(10, 25))
	assert.Equal(t, 100, Progress(0, 0))
}

func TestProgressMonotone(t *testing.T) {
	prev := 0
	for points := 0; points <= 30; points++ {
		p := Progress(25, points)
		assert.GreaterOrEqual(t, p, prev)
		assert.LessOrEqual(t, p, 100)
		prev = p
	}
}

func TestListAchievements(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	user := createUser(t, e, "ach")
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", user.ID).Update("xp", 10).Error)

	scoped := models.Achievement{Name: "First Ride", Category: models.AchievementCategoryActivity, RequiredPoints: 3}
	scoped.SetActivityTypeIDs([]uint{7})
	catalogue := []models.Achievement{
		{Name: "Getting Started", Category: models.AchievementCategoryGeneral, RequiredPoints: 10},
		{Name: "Marathon", Category: models.AchievementCategoryGeneral, RequiredPoints: 1000},
		scoped,
	}
	require.NoError(t, e.db.Create(&catalogue).Error)
	require.NoError(t, e.db.Create(&models.ActivityTypePoints{UserID: user.ID, ActivityTypeID: 7, Points: 2}).Error)

	statuses, err := e.ListAchievements(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byName := make(map[string]AchievementStatus, len(statuses))
	for _, s := range statuses {
		byName[s.Name] = s
	}

	assert.Equal(t, 100, byName["Getting Started"].Progress)
	assert.True(t, byName["Getting Started"].Unlocked)

	assert.Equal(t, 1, byName["Marathon"].Progress)
	assert.False(t, byName["Marathon"].Unlocked)

	assert.Equal(t, 2, byName["First Ride"].Points)
	assert.Equal(t, 66, byName["First Ride"].Progress)
	assert.False(t, byName["First Ride"].Unlocked)
}

func TestUnlockIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	setClock(e, at("2024-03-04"))
	ctx := context.Background()
	user := createUser(t, e, "once")

	a := models.Achievement{Name: "Early Bird", Category: models.AchievementCategoryGeneral, RequiredPoints: 1}
	require.NoError(t, e.db.Create(&a).Error)

	require.NoError(t, e.Unlock(ctx, user.ID, a.ID))
	first, err := e.unlockedSet(ctx, user.ID)
	require.NoError(t, err)

	setClock(e, at("2024-03-09"))
	require.NoError(t, e.Unlock(ctx, user.ID, a.ID))

	second, err := e.unlockedSet(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first[a.ID], second[a.ID], "unlock timestamp never moves")

	var count int64
	require.NoError(t, e.db.Model(&models.UserAchievement{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCheckActivityAchievements(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	user := createUser(t, e, "trigger")

	target := models.Achievement{Name: "Triple", Category: models.AchievementCategoryActivity, RequiredPoints: 3}
	target.SetActivityTypeIDs([]uint{5})
	other := models.Achievement{Name: "Other Sport", Category: models.AchievementCategoryActivity, RequiredPoints: 1}
	other.SetActivityTypeIDs([]uint{6})
	require.NoError(t, e.db.Create(&[]models.Achievement{target, other}).Error)

	require.NoError(t, e.db.Create(&models.ActivityTypePoints{UserID: user.ID, ActivityTypeID: 5, Points: 2}).Error)
	require.NoError(t, e.CheckActivityAchievements(ctx, user.ID, 5))

	unlocked, err := e.unlockedSet(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocked, "below threshold")

	require.NoError(t, e.db.Model(&models.ActivityTypePoints{}).
		Where("user_id = ? AND activity_type_id = ?", user.ID, 5).
		Update("points", 3).Error)
	require.NoError(t, e.CheckActivityAchievements(ctx, user.ID, 5))

	unlocked, err = e.unlockedSet(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, unlocked, 1, "only the matching activity achievement unlocks")

	// Re-running stays a no-op.
	require.NoError(t, e.CheckActivityAchievements(ctx, user.ID, 5))
	again, err := e.unlockedSet(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, unlocked, again)
}

func TestUnlockThroughCheckInFlow(t *testing.T) {
	e := newTestEngine(t)
	setClock(e, at("2024-03-04"))
	ctx := context.Background()
	user := createUser(t, e, "flow")

	a := models.Achievement{Name: "First Session", Category: models.AchievementCategoryActivity, RequiredPoints: 1}
	a.SetActivityTypeIDs([]uint{9})
	require.NoError(t, e.db.Create(&a).Error)

	_, err := e.RecordCheckIn(ctx, user.ID, CheckInInput{Type: models.CheckInTypeActivity, ActivityTypeID: uintPtr(9)})
	require.NoError(t, err)

	unlocked, err := e.unlockedSet(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, unlocked, a.ID)
}
