package engine

import (
	"context"
	"time"

	"github.com/streakmate/streakmate/models"
)

// DayActivity is one cell of the weekly completion matrix.
type DayActivity struct {
	Date           string `json:"date"`
	ActivityPoint  bool   `json:"activity_point"`
	NutritionPoint bool   `json:"nutrition_point"`
	Completed      bool   `json:"completed"`
}

// WeeklyActivity derives the Sunday-anchored 7-day completion matrix for the
// week containing referenceDate. A day counts as completed only when both an
// activity and a nutrition check-in exist for that exact date. Read failures
// degrade to the all-false matrix instead of propagating; the weekly view is
// non-fatal by contract.
func (e *Engine) WeeklyActivity(ctx context.Context, userID uint, referenceDate time.Time) [7]DayActivity {
	weekStart := dateOnly(referenceDate).AddDate(0, 0, -int(referenceDate.Weekday()))

	var week [7]DayActivity
	for i := range week {
		week[i].Date = weekStart.AddDate(0, 0, i).Format(dateLayout)
	}

	var rows []models.CheckIn
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND checkin_date BETWEEN ? AND ?", userID, week[0].Date, week[6].Date).
		Find(&rows).Error
	if err != nil {
		e.logf("weekly activity read failed: user=%d err=%v", userID, err)
		return week
	}

	index := make(map[string]int, 7)
	for i := range week {
		index[week[i].Date] = i
	}
	for _, row := range rows {
		i, ok := index[row.CheckinDate]
		if !ok {
			continue
		}
		switch row.Type {
		case models.CheckInTypeActivity:
			week[i].ActivityPoint = true
		case models.CheckInTypeNutrition:
			week[i].NutritionPoint = true
		}
	}
	for i := range week {
		week[i].Completed = week[i].ActivityPoint && week[i].NutritionPoint
	}
	return week
}
