package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/streakmate/streakmate/models"
)

// newTestEngine spins up an in-memory sqlite store with the full schema so
// unique constraints and atomic upserts behave like production.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every session on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.CheckIn{},
		&models.ActivityTypePoints{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Challenge{},
		&models.ChallengeParticipant{},
		&models.ChallengeSummary{},
	))

	return New(db, NopNotifier{}, DefaultSettings())
}

func setClock(e *Engine, now time.Time) {
	e.now = func() time.Time { return now }
}

func createUser(t *testing.T, e *Engine, username string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		StreakBlocks: e.cfg.StartingBlocks,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func reloadUser(t *testing.T, e *Engine, id uint) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.First(&user, id).Error)
	return user
}

func uintPtr(v uint) *uint { return &v }
func intPtr(v int) *int    { return &v }

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

// at returns a clock reading at noon on the given day, so day-boundary math
// is unambiguous.
func at(s string) time.Time {
	return day(s).Add(12 * time.Hour)
}
