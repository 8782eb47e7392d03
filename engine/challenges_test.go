package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakmate/streakmate/models"
)

func newChallenge(t *testing.T, e *Engine, creatorID uint, start, end string, invitees ...uint) *models.Challenge {
	t.Helper()
	ch, err := e.CreateChallenge(context.Background(), creatorID, ChallengeInput{
		Title:     "March Push-ups",
		StartDate: day(start),
		EndDate:   day(end),
	}, invitees)
	require.NoError(t, err)
	return ch
}

func seedWindowCheckIns(t *testing.T, e *Engine, userID uint, dates ...string) {
	t.Helper()
	for _, d := range dates {
		require.NoError(t, e.db.Create(&models.CheckIn{
			UserID:         userID,
			Type:           models.CheckInTypeActivity,
			ActivityTypeID: uintPtr(1),
			CheckinDate:    d,
		}).Error)
	}
}

func TestCreateChallengeValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	user := createUser(t, e, "creator")

	_, err := e.CreateChallenge(ctx, user.ID, ChallengeInput{
		StartDate: day("2024-01-01"), EndDate: day("2024-01-10"),
	}, nil)
	assert.ErrorIs(t, err, ErrValidation, "empty title")

	_, err = e.CreateChallenge(ctx, user.ID, ChallengeInput{
		Title: "x", StartDate: day("2024-01-10"), EndDate: day("2024-01-01"),
	}, nil)
	assert.ErrorIs(t, err, ErrValidation, "inverted dates")

	_, err = e.CreateChallenge(ctx, user.ID, ChallengeInput{
		Title: "x", StartDate: day("2024-01-01"), EndDate: day("2024-01-10"),
		HasBet: true,
	}, nil)
	assert.ErrorIs(t, err, ErrValidation, "bet without amount")
}

func TestCreateChallengeParticipants(t *testing.T) {
	e := newTestEngine(t)
	creator := createUser(t, e, "owner")
	a := createUser(t, e, "invitee-a")
	b := createUser(t, e, "invitee-b")

	// Duplicate and self invites collapse.
	ch := newChallenge(t, e, creator.ID, "2024-01-01", "2024-01-10", a.ID, b.ID, a.ID, creator.ID)

	var participants []models.ChallengeParticipant
	require.NoError(t, e.db.Where("challenge_id = ?", ch.ID).Order("user_id").Find(&participants).Error)
	require.Len(t, participants, 3)

	byUser := make(map[uint]string, len(participants))
	for _, p := range participants {
		byUser[p.UserID] = p.Status
	}
	assert.Equal(t, models.ParticipantStatusAccepted, byUser[creator.ID])
	assert.Equal(t, models.ParticipantStatusPending, byUser[a.ID])
	assert.Equal(t, models.ParticipantStatusPending, byUser[b.ID])
}

func TestInviteTransitions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	creator := createUser(t, e, "host")
	invitee := createUser(t, e, "guest")
	outsider := createUser(t, e, "outsider")

	ch := newChallenge(t, e, creator.ID, "2024-01-01", "2024-01-10", invitee.ID)

	require.NoError(t, e.AcceptInvite(ctx, invitee.ID, ch.ID))

	assert.ErrorIs(t, e.AcceptInvite(ctx, invitee.ID, ch.ID), ErrConflict, "double accept")
	assert.ErrorIs(t, e.DeclineInvite(ctx, invitee.ID, ch.ID), ErrConflict, "decline after accept")
	assert.ErrorIs(t, e.AcceptInvite(ctx, outsider.ID, ch.ID), ErrNotFound, "never invited")
	assert.ErrorIs(t, e.AcceptInvite(ctx, invitee.ID, 9999), ErrNotFound, "no such challenge")
}

func TestDeclineIsTerminal(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	creator := createUser(t, e, "h2")
	invitee := createUser(t, e, "g2")

	ch := newChallenge(t, e, creator.ID, "2024-01-01", "2024-01-10", invitee.ID)

	require.NoError(t, e.DeclineInvite(ctx, invitee.ID, ch.ID))
	assert.ErrorIs(t, e.AcceptInvite(ctx, invitee.ID, ch.ID), ErrConflict)
}

func TestChallengeProgress(t *testing.T) {
	ch := &models.Challenge{StartDate: day("2024-01-01"), EndDate: day("2024-01-11")}

	assert.Equal(t, 0, ChallengeProgress(ch, day("2023-12-25")))
	assert.Equal(t, 0, ChallengeProgress(ch, day("2024-01-01")))
	assert.Equal(t, 50, ChallengeProgress(ch, day("2024-01-06")))
	assert.Equal(t, 100, ChallengeProgress(ch, day("2024-01-11")))
	assert.Equal(t, 100, ChallengeProgress(ch, day("2024-02-01")))
}

func TestIsCompleted(t *testing.T) {
	ch := &models.Challenge{StartDate: day("2024-01-01"), EndDate: day("2024-01-11")}

	assert.False(t, IsCompleted(ch, false, at("2024-01-05")))
	assert.False(t, IsCompleted(ch, false, day("2024-01-11").Add(23*time.Hour)), "end date is inclusive")
	assert.True(t, IsCompleted(ch, false, day("2024-01-12")))
	assert.True(t, IsCompleted(ch, true, at("2024-01-05")), "a summary completes regardless of dates")
}

func TestLiveRankingDeterministic(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	creator := createUser(t, e, "rank-host")
	rival := createUser(t, e, "rank-rival")

	ch := newChallenge(t, e, creator.ID, "2024-01-01", "2024-01-10", rival.ID)
	require.NoError(t, e.AcceptInvite(ctx, rival.ID, ch.ID))

	seedWindowCheckIns(t, e, creator.ID, "2024-01-02")
	seedWindowCheckIns(t, e, rival.ID, "2024-01-02", "2024-01-03")
	// Outside the window, must not count.
	seedWindowCheckIns(t, e, creator.ID, "2024-01-11")

	entries, err := e.LiveRanking(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, rival.ID, entries[0].UserID)
	assert.Equal(t, 2, entries[0].Points)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, creator.ID, entries[1].UserID)
	assert.Equal(t, 1, entries[1].Points)
	assert.Equal(t, 2, entries[1].Rank)

	t.Run("ties break by user id ascending", func(t *testing.T) {
		seedWindowCheckIns(t, e, creator.ID, "2024-01-04")
		entries, err := e.LiveRanking(ctx, ch.ID)
		require.NoError(t, err)
		assert.Equal(t, creator.ID, entries[0].UserID)
		assert.Equal(t, rival.ID, entries[1].UserID)
	})
}

func TestBetOutcomesZeroSum(t *testing.T) {
	bet := 10
	ch := &models.Challenge{HasBet: true, BetAmount: &bet}
	participants := []models.ChallengeParticipant{
		{UserID: 1}, {UserID: 2}, {UserID: 3}, {UserID: 4},
	}
	winner := uint(2)

	outcomes := BetOutcomes(ch, participants, &winner)
	require.Len(t, outcomes, 4)

	sum := 0
	for _, o := range outcomes {
		sum += o.Net
		if o.UserID == winner {
			assert.Equal(t, 30, o.Net)
		} else {
			assert.Equal(t, -10, o.Net)
		}
	}
	assert.Equal(t, 0, sum)

	assert.Nil(t, BetOutcomes(&models.Challenge{}, participants, &winner), "no bet, no outcomes")
	assert.Nil(t, BetOutcomes(ch, participants, nil), "no winner, no outcomes")
}

func TestSettle(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	creator := createUser(t, e, "settle-host")
	rival := createUser(t, e, "settle-rival")

	bet := 10
	ch, err := e.CreateChallenge(ctx, creator.ID, ChallengeInput{
		Title:     "Bet Week",
		StartDate: day("2024-01-01"),
		EndDate:   day("2024-01-10"),
		HasBet:    true,
		BetAmount: &bet,
	}, []uint{rival.ID})
	require.NoError(t, err)
	require.NoError(t, e.AcceptInvite(ctx, rival.ID, ch.ID))

	seedWindowCheckIns(t, e, creator.ID, "2024-01-02", "2024-01-03", "2024-01-04")
	seedWindowCheckIns(t, e, rival.ID, "2024-01-02")

	setClock(e, at("2024-01-05"))
	_, err = e.Settle(ctx, ch.ID)
	assert.ErrorIs(t, err, ErrConflict, "cannot settle an active challenge")

	setClock(e, at("2024-01-12"))
	summary, err := e.Settle(ctx, ch.ID)
	require.NoError(t, err)

	require.NotNil(t, summary.WinnerUserID)
	assert.Equal(t, creator.ID, *summary.WinnerUserID)
	assert.Equal(t, 3, summary.WinnerPoints)
	assert.Equal(t, 2, summary.TotalParticipants)
	assert.Equal(t, 10, summary.TotalBetPool, "bet x (participants - 1)")
	assert.Equal(t, models.CompletionTypeElapsed, summary.CompletionType)

	t.Run("idempotent", func(t *testing.T) {
		again, err := e.Settle(ctx, ch.ID)
		require.NoError(t, err)
		assert.Equal(t, summary.ID, again.ID)
		assert.Equal(t, summary.WinnerUserID, again.WinnerUserID)

		var count int64
		require.NoError(t, e.db.Model(&models.ChallengeSummary{}).Where("challenge_id = ?", ch.ID).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("completed view after settlement", func(t *testing.T) {
		setClock(e, at("2024-01-12"))
		view, err := e.GetChallenge(ctx, ch.ID)
		require.NoError(t, err)
		assert.True(t, view.Completed)
		assert.Equal(t, 100, view.Progress)
	})
}

func TestSettleTieBreaksByJoinTime(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	host := createUser(t, e, "tie-host")
	late := createUser(t, e, "tie-late")

	ch := newChallenge(t, e, host.ID, "2024-01-01", "2024-01-10", late.ID)

	// The invitee accepts after creation, so the creator joined earlier.
	require.NoError(t, e.AcceptInvite(ctx, late.ID, ch.ID))
	require.NoError(t, e.db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", ch.ID, late.ID).
		Update("joined_at", time.Now().Add(time.Hour)).Error)

	seedWindowCheckIns(t, e, host.ID, "2024-01-02")
	seedWindowCheckIns(t, e, late.ID, "2024-01-03")

	setClock(e, at("2024-01-12"))
	summary, err := e.Settle(ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, summary.WinnerUserID)
	assert.Equal(t, host.ID, *summary.WinnerUserID)
}

func TestSettleWithoutParticipants(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	host := createUser(t, e, "solo-host")
	guest := createUser(t, e, "solo-guest")

	ch := newChallenge(t, e, host.ID, "2024-01-01", "2024-01-10", guest.ID)

	// Everyone out: the creator row is flipped directly to simulate a
	// challenge with no accepted participants at settlement time.
	require.NoError(t, e.db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ?", ch.ID).
		Update("status", models.ParticipantStatusDeclined).Error)

	setClock(e, at("2024-01-12"))
	summary, err := e.Settle(ctx, ch.ID)
	require.NoError(t, err)
	assert.Nil(t, summary.WinnerUserID)
	assert.Equal(t, 0, summary.TotalParticipants)
	assert.Equal(t, models.CompletionTypeNoParticipants, summary.CompletionType)
}

func TestListChallenges(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	host := createUser(t, e, "list-host")
	guest := createUser(t, e, "list-guest")

	past := newChallenge(t, e, host.ID, "2024-01-01", "2024-01-10", guest.ID)
	newChallenge(t, e, guest.ID, "2024-02-01", "2024-02-10")

	setClock(e, at("2024-02-05"))
	views, err := e.ListChallenges(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// Newest start date first.
	assert.Equal(t, "February", views[0].StartDate.Month().String())
	assert.Equal(t, models.ParticipantStatusAccepted, views[0].MyStatus)
	assert.False(t, views[0].Completed)

	assert.Equal(t, past.ID, views[1].Challenge.ID)
	assert.Equal(t, models.ParticipantStatusPending, views[1].MyStatus)
	assert.True(t, views[1].Completed)
	assert.Equal(t, 100, views[1].Progress)

	empty, err := e.ListChallenges(ctx, 9999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetChallengeNotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.GetChallenge(context.Background(), 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}
