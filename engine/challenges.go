package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/streakmate/streakmate/models"
	"github.com/streakmate/streakmate/utils"
)

// ChallengeInput is the caller-supplied portion of a new challenge.
type ChallengeInput struct {
	Title          string
	Description    string
	ActivityTypeID *uint
	StartDate      time.Time
	EndDate        time.Time
	HasBet         bool
	BetAmount      *int
}

// CreateChallenge validates and persists a challenge, registering the creator
// as an accepted participant and every invitee as pending, all in one
// transaction. Invite notifications go out afterwards, best-effort.
func (e *Engine) CreateChallenge(ctx context.Context, creatorID uint, in ChallengeInput, inviteeIDs []uint) (*models.Challenge, error) {
	if in.Title == "" {
		return nil, invalidf("challenge title cannot be empty")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, invalidf("challenge start date is after its end date")
	}
	if in.HasBet && (in.BetAmount == nil || *in.BetAmount <= 0) {
		return nil, invalidf("bet challenges require a positive bet amount")
	}
	if !in.HasBet {
		in.BetAmount = nil
	}

	now := e.now()
	challenge := models.Challenge{
		CreatorID:      creatorID,
		Title:          utils.Sanitize(in.Title),
		Description:    utils.Sanitize(in.Description),
		ActivityTypeID: in.ActivityTypeID,
		StartDate:      dateOnly(in.StartDate),
		EndDate:        dateOnly(in.EndDate),
		HasBet:         in.HasBet,
		BetAmount:      in.BetAmount,
	}

	invitees := make([]uint, 0, len(inviteeIDs))
	for _, id := range utils.UniqueUint(inviteeIDs) {
		if id != creatorID {
			invitees = append(invitees, id)
		}
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&challenge).Error; err != nil {
			return storef("create challenge", err)
		}
		participants := []models.ChallengeParticipant{{
			ChallengeID: challenge.ID,
			UserID:      creatorID,
			Status:      models.ParticipantStatusAccepted,
			JoinedAt:    now,
		}}
		for _, id := range invitees {
			participants = append(participants, models.ChallengeParticipant{
				ChallengeID: challenge.ID,
				UserID:      id,
				Status:      models.ParticipantStatusPending,
				JoinedAt:    now,
			})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return storef("create challenge participants", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	go e.notifyInvitees(challenge, creatorID, invitees)

	return &challenge, nil
}

func (e *Engine) notifyInvitees(challenge models.Challenge, creatorID uint, inviteeIDs []uint) {
	if len(inviteeIDs) == 0 {
		return
	}
	var creator models.User
	if err := e.db.First(&creator, creatorID).Error; err != nil {
		e.logf("invite notification skipped, creator lookup failed: %v", err)
		return
	}
	var invitees []models.User
	if err := e.db.Where("id IN ?", inviteeIDs).Find(&invitees).Error; err != nil {
		e.logf("invite notification skipped, invitee lookup failed: %v", err)
		return
	}
	for _, user := range invitees {
		if user.Email == "" {
			continue
		}
		if err := e.notifier.ChallengeInvite(user.Email, creator.Username, challenge.Title); err != nil {
			e.logf("challenge invite notification failed: user=%d err=%v", user.ID, err)
		}
	}
}

// AcceptInvite transitions the caller's pending participant row to accepted.
func (e *Engine) AcceptInvite(ctx context.Context, userID, challengeID uint) error {
	return e.resolveInvite(ctx, userID, challengeID, models.ParticipantStatusAccepted)
}

// DeclineInvite transitions the caller's pending participant row to declined.
// Declining is terminal.
func (e *Engine) DeclineInvite(ctx context.Context, userID, challengeID uint) error {
	return e.resolveInvite(ctx, userID, challengeID, models.ParticipantStatusDeclined)
}

// resolveInvite performs the one-way pending transition as a conditional
// update, so two racing calls cannot both win.
func (e *Engine) resolveInvite(ctx context.Context, userID, challengeID uint, status string) error {
	res := e.db.WithContext(ctx).Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ? AND status = ?", challengeID, userID, models.ParticipantStatusPending).
		Update("status", status)
	if res.Error != nil {
		return storef("update participant status", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var existing models.ChallengeParticipant
	err := e.db.WithContext(ctx).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return storef("load participant", err)
	}
	// Row exists but is no longer pending: the transition already happened.
	return ErrConflict
}

// ChallengeProgress returns the elapsed share of the challenge window as a
// percentage clamped to [0, 100]: 0 before the start date, 100 at or past the
// end date.
func ChallengeProgress(ch *models.Challenge, now time.Time) int {
	start := dateOnly(ch.StartDate)
	end := dateOnly(ch.EndDate)
	if !now.After(start) {
		return 0
	}
	if !now.Before(end) {
		return 100
	}
	total := end.Sub(start)
	elapsed := now.Sub(start)
	return int(elapsed * 100 / total)
}

// IsCompleted is the canonical completion predicate: a challenge is complete
// once its end date has fully elapsed (end-of-day inclusive) or a settlement
// summary already exists. No separate persisted "active" state exists; it is
// derived at read time.
func IsCompleted(ch *models.Challenge, hasSummary bool, now time.Time) bool {
	if hasSummary {
		return true
	}
	endOfDay := dateOnly(ch.EndDate).AddDate(0, 0, 1)
	return !now.Before(endOfDay)
}

// ChallengeView is a challenge with its read-time derived state.
type ChallengeView struct {
	models.Challenge
	Progress  int    `json:"progress"`
	Completed bool   `json:"completed"`
	MyStatus  string `json:"my_status,omitempty"`
}

// ListChallenges returns every challenge the user participates in (any
// status), with derived progress and completion.
func (e *Engine) ListChallenges(ctx context.Context, userID uint) ([]ChallengeView, error) {
	var participations []models.ChallengeParticipant
	err := e.db.WithContext(ctx).Where("user_id = ?", userID).Find(&participations).Error
	if err != nil {
		return nil, storef("load participations", err)
	}
	if len(participations) == 0 {
		return []ChallengeView{}, nil
	}

	ids := make([]uint, 0, len(participations))
	statusByChallenge := make(map[uint]string, len(participations))
	for _, p := range participations {
		ids = append(ids, p.ChallengeID)
		statusByChallenge[p.ChallengeID] = p.Status
	}

	var challenges []models.Challenge
	if err := e.db.WithContext(ctx).Where("id IN ?", ids).Order("start_date DESC").Find(&challenges).Error; err != nil {
		return nil, storef("load challenges", err)
	}

	summarized, err := e.summarizedSet(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := e.now()
	views := make([]ChallengeView, 0, len(challenges))
	for i := range challenges {
		ch := challenges[i]
		views = append(views, ChallengeView{
			Challenge: ch,
			Progress:  ChallengeProgress(&ch, now),
			Completed: IsCompleted(&ch, summarized[ch.ID], now),
			MyStatus:  statusByChallenge[ch.ID],
		})
	}
	return views, nil
}

// GetChallenge loads a single challenge view.
func (e *Engine) GetChallenge(ctx context.Context, challengeID uint) (*ChallengeView, error) {
	var ch models.Challenge
	err := e.db.WithContext(ctx).First(&ch, challengeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storef("load challenge", err)
	}
	summarized, err := e.summarizedSet(ctx, []uint{ch.ID})
	if err != nil {
		return nil, err
	}
	now := e.now()
	return &ChallengeView{
		Challenge: ch,
		Progress:  ChallengeProgress(&ch, now),
		Completed: IsCompleted(&ch, summarized[ch.ID], now),
	}, nil
}

func (e *Engine) summarizedSet(ctx context.Context, challengeIDs []uint) (map[uint]bool, error) {
	var summaries []models.ChallengeSummary
	err := e.db.WithContext(ctx).Where("challenge_id IN ?", challengeIDs).Find(&summaries).Error
	if err != nil {
		return nil, storef("load challenge summaries", err)
	}
	set := make(map[uint]bool, len(summaries))
	for _, s := range summaries {
		set[s.ChallengeID] = true
	}
	return set, nil
}

// RankingEntry is one row of a challenge leaderboard.
type RankingEntry struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// LiveRanking orders accepted participants by points accumulated inside the
// challenge window, descending. Ties rank by ascending user id so the result
// is deterministic.
func (e *Engine) LiveRanking(ctx context.Context, challengeID uint) ([]RankingEntry, error) {
	var ch models.Challenge
	err := e.db.WithContext(ctx).First(&ch, challengeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storef("load challenge", err)
	}

	participants, err := e.acceptedParticipants(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	points, err := e.windowPoints(ctx, &ch, participants)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(participants))
	for _, p := range participants {
		userIDs = append(userIDs, p.UserID)
	}
	var users []models.User
	if err := e.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, storef("load participants", err)
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	entries := make([]RankingEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, RankingEntry{
			UserID:   p.UserID,
			Username: names[p.UserID],
			Points:   points[p.UserID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// BetOutcome is a participant's net bet result for a settled challenge.
type BetOutcome struct {
	UserID uint `json:"user_id"`
	Net    int  `json:"net"`
}

// BetOutcomes computes the zero-sum payout split: the winner collects
// bet x (participants-1), every other accepted participant loses their bet.
// This is the single source of truth for the payout math; presentation layers
// consume it read-only.
func BetOutcomes(ch *models.Challenge, participants []models.ChallengeParticipant, winnerID *uint) []BetOutcome {
	if !ch.HasBet || ch.BetAmount == nil || winnerID == nil {
		return nil
	}
	bet := *ch.BetAmount
	outcomes := make([]BetOutcome, 0, len(participants))
	for _, p := range participants {
		net := -bet
		if p.UserID == *winnerID {
			net = bet * (len(participants) - 1)
		}
		outcomes = append(outcomes, BetOutcome{UserID: p.UserID, Net: net})
	}
	return outcomes
}

// Settle computes the winner and bet pool for a completed challenge and
// persists the summary exactly once. The summary row's unique index
// serializes concurrent attempts: the losing inserter reads back the winner's
// row, so re-running settlement is always a no-op.
func (e *Engine) Settle(ctx context.Context, challengeID uint) (*models.ChallengeSummary, error) {
	var ch models.Challenge
	err := e.db.WithContext(ctx).First(&ch, challengeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storef("load challenge", err)
	}

	var existing models.ChallengeSummary
	err = e.db.WithContext(ctx).Where("challenge_id = ?", challengeID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storef("load challenge summary", err)
	}

	if !IsCompleted(&ch, false, e.now()) {
		return nil, ErrConflict
	}

	participants, err := e.acceptedParticipants(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	summary := models.ChallengeSummary{
		ChallengeID:       challengeID,
		TotalParticipants: len(participants),
		CompletionType:    models.CompletionTypeElapsed,
		CreatedAt:         e.now(),
	}

	if len(participants) == 0 {
		summary.CompletionType = models.CompletionTypeNoParticipants
	} else {
		points, err := e.windowPoints(ctx, &ch, participants)
		if err != nil {
			return nil, err
		}
		winner := pickWinner(participants, points)
		summary.WinnerUserID = &winner.UserID
		summary.WinnerPoints = points[winner.UserID]
		if ch.HasBet && ch.BetAmount != nil {
			summary.TotalBetPool = *ch.BetAmount * (len(participants) - 1)
		}
	}

	res := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "challenge_id"}},
		DoNothing: true,
	}).Create(&summary)
	if res.Error != nil && !isDuplicateKey(res.Error) {
		return nil, storef("create challenge summary", res.Error)
	}
	if res.Error != nil || res.RowsAffected == 0 {
		// Lost the race: another settlement committed first.
		var winner models.ChallengeSummary
		if err := e.db.WithContext(ctx).Where("challenge_id = ?", challengeID).First(&winner).Error; err != nil {
			return nil, storef("reload challenge summary", err)
		}
		return &winner, nil
	}

	go e.notifySettled(ch, participants, summary)

	return &summary, nil
}

func (e *Engine) notifySettled(ch models.Challenge, participants []models.ChallengeParticipant, summary models.ChallengeSummary) {
	if summary.WinnerUserID == nil {
		return
	}
	outcomes := BetOutcomes(&ch, participants, summary.WinnerUserID)
	nets := make(map[uint]int, len(outcomes))
	for _, o := range outcomes {
		nets[o.UserID] = o.Net
	}
	for _, p := range participants {
		var user models.User
		if err := e.db.First(&user, p.UserID).Error; err != nil || user.Email == "" {
			continue
		}
		won := p.UserID == *summary.WinnerUserID
		if err := e.notifier.ChallengeSettled(user.Email, ch.Title, won, nets[p.UserID]); err != nil {
			e.logf("settlement notification failed: user=%d err=%v", p.UserID, err)
		}
	}
}

// pickWinner selects the highest-scoring accepted participant; ties break by
// earliest join time, then by lowest user id.
func pickWinner(participants []models.ChallengeParticipant, points map[uint]int) models.ChallengeParticipant {
	winner := participants[0]
	for _, p := range participants[1:] {
		switch {
		case points[p.UserID] > points[winner.UserID]:
			winner = p
		case points[p.UserID] == points[winner.UserID]:
			if p.JoinedAt.Before(winner.JoinedAt) ||
				(p.JoinedAt.Equal(winner.JoinedAt) && p.UserID < winner.UserID) {
				winner = p
			}
		}
	}
	return winner
}

func (e *Engine) acceptedParticipants(ctx context.Context, challengeID uint) ([]models.ChallengeParticipant, error) {
	var participants []models.ChallengeParticipant
	err := e.db.WithContext(ctx).
		Where("challenge_id = ? AND status = ?", challengeID, models.ParticipantStatusAccepted).
		Order("joined_at ASC, user_id ASC").
		Find(&participants).Error
	if err != nil {
		return nil, storef("load accepted participants", err)
	}
	return participants, nil
}

// windowPoints counts each participant's qualifying activity check-ins inside
// the challenge window. A challenge bound to an activity type only counts
// check-ins of that type.
func (e *Engine) windowPoints(ctx context.Context, ch *models.Challenge, participants []models.ChallengeParticipant) (map[uint]int, error) {
	points := make(map[uint]int, len(participants))
	if len(participants) == 0 {
		return points, nil
	}
	userIDs := make([]uint, 0, len(participants))
	for _, p := range participants {
		points[p.UserID] = 0
		userIDs = append(userIDs, p.UserID)
	}

	query := e.db.WithContext(ctx).Model(&models.CheckIn{}).
		Select("user_id, COUNT(*) AS points").
		Where("user_id IN ? AND type = ? AND checkin_date BETWEEN ? AND ?",
			userIDs, models.CheckInTypeActivity,
			ch.StartDate.Format(dateLayout), ch.EndDate.Format(dateLayout)).
		Group("user_id")
	if ch.ActivityTypeID != nil {
		query = query.Where("activity_type_id = ?", *ch.ActivityTypeID)
	}

	var rows []struct {
		UserID uint
		Points int
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, storef("count window points", err)
	}
	for _, row := range rows {
		points[row.UserID] = row.Points
	}
	return points, nil
}
