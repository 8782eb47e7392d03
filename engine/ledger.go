package engine

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/streakmate/streakmate/models"
)

// CheckInInput is the caller-supplied portion of a check-in. ImageURL is an
// opaque object storage reference the engine never interprets.
type CheckInInput struct {
	Type           string `json:"type"`
	ActivityTypeID *uint  `json:"activity_type_id"`
	ImageURL       string `json:"image_url"`
}

// RecordCheckIn appends a check-in for the current calendar day. The
// (user, type, day) uniqueness is enforced by the store's composite index, so
// concurrent duplicates cannot both commit; the losing insert surfaces as
// ErrDuplicateCheckIn. On success the user's points, activity date, and
// streak bookkeeping are updated in the same transaction, and achievement
// re-evaluation is triggered best-effort afterwards.
func (e *Engine) RecordCheckIn(ctx context.Context, userID uint, in CheckInInput) (*models.CheckIn, error) {
	switch in.Type {
	case models.CheckInTypeActivity, models.CheckInTypeNutrition:
	default:
		return nil, invalidf("unknown check-in type %q", in.Type)
	}
	if in.Type == models.CheckInTypeActivity && in.ActivityTypeID == nil {
		return nil, invalidf("activity check-ins require an activity type")
	}

	now := e.now()
	checkIn := models.CheckIn{
		UserID:         userID,
		Type:           in.Type,
		ActivityTypeID: in.ActivityTypeID,
		CheckinDate:    now.Format(dateLayout),
		ImageURL:       in.ImageURL,
		CreatedAt:      now,
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&checkIn).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateCheckIn
			}
			return storef("create check-in", err)
		}

		if in.Type == models.CheckInTypeActivity {
			// Single-statement upsert keeps the increment atomic under
			// concurrent check-ins for the same pair.
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "activity_type_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"points":     gorm.Expr("points + 1"),
					"updated_at": now,
				}),
			}).Create(&models.ActivityTypePoints{
				UserID:         userID,
				ActivityTypeID: *in.ActivityTypeID,
				Points:         1,
			}).Error
			if err != nil {
				return storef("upsert activity points", err)
			}
		}

		var user models.User
		if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidf("user %d does not exist", userID)
			}
			return storef("load user", err)
		}

		today := dateOnly(now)
		user.XP += e.cfg.CheckInRewardXP
		user.LastActivityDate = &today

		completed, err := e.dayCompleted(tx, userID, checkIn.CheckinDate)
		if err != nil {
			return err
		}
		if completed {
			e.advanceStreak(&user, now)
		}

		if err := tx.Save(&user).Error; err != nil {
			return storef("save user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Type == models.CheckInTypeActivity {
		// Unlocks are eventually consistent with the ledger: a failure here
		// is logged and never rolls back the committed check-in.
		if err := e.CheckActivityAchievements(ctx, userID, *in.ActivityTypeID); err != nil {
			e.logf("achievement re-evaluation failed: user=%d activity=%d err=%v", userID, *in.ActivityTypeID, err)
		}
	}

	return &checkIn, nil
}

// lockForUpdate adds a row lock on dialects that support it. SQLite has no
// FOR UPDATE; its single-writer transactions give the same guarantee.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// dayCompleted reports whether both check-in types exist for the given day.
func (e *Engine) dayCompleted(tx *gorm.DB, userID uint, day string) (bool, error) {
	var count int64
	err := tx.Model(&models.CheckIn{}).
		Where("user_id = ? AND checkin_date = ?", userID, day).
		Distinct("type").
		Count(&count).Error
	if err != nil {
		return false, storef("count day check-ins", err)
	}
	return count >= 2, nil
}

// ListCheckIns returns the user's full check-in history, newest first.
func (e *Engine) ListCheckIns(ctx context.Context, userID uint) ([]models.CheckIn, error) {
	var items []models.CheckIn
	err := e.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("checkin_date DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, storef("list check-ins", err)
	}
	return items, nil
}

// ActivityPoints returns the per-activity-type point totals for a user.
func (e *Engine) ActivityPoints(ctx context.Context, userID uint) (map[uint]int, error) {
	var rows []models.ActivityTypePoints
	if err := e.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, storef("load activity points", err)
	}
	points := make(map[uint]int, len(rows))
	for _, row := range rows {
		points[row.ActivityTypeID] = row.Points
	}
	return points, nil
}
