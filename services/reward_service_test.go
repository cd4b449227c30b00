package services

import (
	"testing"
	"time"

	"challenge-arena/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardService_DistributeRewardsToAll(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 3)
	f.join(t, ch.ID, "winner", "runner-up")
	f.result(t, ch.ID, "winner", 90, nil)
	f.result(t, ch.ID, "runner-up", 40, nil)
	_, err := f.rankings.DetermineWinner(f.ctx, ch.ID)
	require.NoError(t, err)

	paid, err := f.rewards.DistributeRewardsToAll(f.ctx, ch.ID, 100, 50, 2.0)
	require.NoError(t, err)
	assert.Len(t, paid, 2)

	w := f.participant(t, ch.ID, "winner")
	assert.Equal(t, int64(200), w.XPEarned)
	assert.Equal(t, int64(100), w.MLCoinsEarned)

	r := f.participant(t, ch.ID, "runner-up")
	assert.Equal(t, int64(100), r.XPEarned)
	assert.Equal(t, int64(50), r.MLCoinsEarned)
	assert.NotEmpty(t, r.Metadata[models.MetaRewardedAt])
}

func TestRewardService_NonWinnersAreUniform(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 4)
	f.join(t, ch.ID, "first", "second", "last")
	f.result(t, ch.ID, "first", 99, nil)
	f.result(t, ch.ID, "second", 70, nil)
	f.result(t, ch.ID, "last", 1, nil)
	_, err := f.rankings.DetermineWinner(f.ctx, ch.ID)
	require.NoError(t, err)

	_, err = f.rewards.DistributeRewardsToAll(f.ctx, ch.ID, 15, 5, DefaultWinnerMultiplier)
	require.NoError(t, err)

	first := f.participant(t, ch.ID, "first")
	assert.Equal(t, int64(23), first.XPEarned, "round(15 × 1.5)")
	assert.Equal(t, int64(8), first.MLCoinsEarned, "round(5 × 1.5)")

	second := f.participant(t, ch.ID, "second")
	last := f.participant(t, ch.ID, "last")
	assert.Equal(t, second.XPEarned, last.XPEarned)
	assert.Equal(t, second.MLCoinsEarned, last.MLCoinsEarned)
	assert.Equal(t, int64(15), last.XPEarned)
}

func TestRewardService_DistributeRewardsToAll_Invalid(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 2)

	_, err := f.rewards.DistributeRewardsToAll(f.ctx, ch.ID, -1, 0, 1.5)
	assert.IsType(t, &BadRequestError{}, err)
	_, err = f.rewards.DistributeRewardsToAll(f.ctx, ch.ID, 10, 10, 0)
	assert.IsType(t, &BadRequestError{}, err)
	_, err = f.rewards.DistributeRewardsToAll(f.ctx, "missing", 10, 10, 1.5)
	assert.IsType(t, &NotFoundError{}, err)
}

func TestRewardService_DistributeRewardsOverwrites(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 2)
	f.join(t, ch.ID, "alice")

	at := time.Date(2026, 7, 4, 18, 0, 0, 0, time.UTC)
	freezeClock(t, at)

	_, err := f.rewards.DistributeRewards(f.ctx, ch.ID, "alice", 500, 80)
	require.NoError(t, err)
	p, err := f.rewards.DistributeRewards(f.ctx, ch.ID, "alice", 30, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(30), p.XPEarned)
	assert.Equal(t, int64(0), p.MLCoinsEarned)

	stored := f.participant(t, ch.ID, "alice")
	assert.Equal(t, int64(30), stored.XPEarned)
	assert.Equal(t, at.Format(time.RFC3339), stored.Metadata[models.MetaRewardedAt])

	_, err = f.rewards.DistributeRewards(f.ctx, ch.ID, "ghost", 1, 1)
	assert.IsType(t, &NotFoundError{}, err)
	_, err = f.rewards.DistributeRewards(f.ctx, ch.ID, "alice", -5, 1)
	assert.IsType(t, &BadRequestError{}, err)
}
