package services

import (
	"context"
	"math"
	"time"

	"challenge-arena/logger"
	"challenge-arena/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DefaultWinnerMultiplier scales base rewards for the winner.
const DefaultWinnerMultiplier = 1.5

type RewardService struct {
	DB    *gorm.DB
	Log   logger.Logger
	Cache LeaderboardCache
}

func NewRewardService(db *gorm.DB, log logger.Logger, cache LeaderboardCache) *RewardService {
	return &RewardService{DB: db, Log: log, Cache: cache}
}

// DistributeRewards overwrites one participant's earned XP and ML coins.
func (s *RewardService) DistributeRewards(ctx context.Context, challengeID, userID string, xp, mlCoins int64) (*models.ChallengeParticipant, error) {
	if xp < 0 || mlCoins < 0 {
		return nil, badRequest("rewards must be non-negative")
	}
	var participant *models.ChallengeParticipant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if participant, err = findParticipant(tx, challengeID, userID, true); err != nil {
			return err
		}
		applyReward(participant, xp, mlCoins, nowFunc())
		return errors.Wrap(tx.Save(participant).Error, "saving reward")
	})
	if err != nil {
		return nil, err
	}
	invalidateLeaderboard(ctx, s.Cache, challengeID)
	return participant, nil
}

// DistributeRewardsToAll pays every participant the base reward; winners get
// round(base × multiplier). Rank beyond winner/non-winner does not matter.
func (s *RewardService) DistributeRewardsToAll(ctx context.Context, challengeID string, baseXP, baseCoins int64, multiplier float64) ([]models.ChallengeParticipant, error) {
	if baseXP < 0 || baseCoins < 0 {
		return nil, badRequest("base rewards must be non-negative")
	}
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return nil, badRequest("winner multiplier must be positive")
	}

	var ps []models.ChallengeParticipant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findChallenge(tx, challengeID, true); err != nil {
			return err
		}
		if err := tx.Where("challenge_id = ?", challengeID).Order("created_at ASC").Find(&ps).Error; err != nil {
			return errors.Wrap(err, "loading participants")
		}
		now := nowFunc()
		for i := range ps {
			xp, coins := baseXP, baseCoins
			if ps[i].IsWinner {
				xp = scaleReward(baseXP, multiplier)
				coins = scaleReward(baseCoins, multiplier)
			}
			applyReward(&ps[i], xp, coins, now)
			if err := tx.Save(&ps[i]).Error; err != nil {
				return errors.Wrapf(err, "saving reward of %s", ps[i].UserID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateLeaderboard(ctx, s.Cache, challengeID)
	s.Log.Info("[REWARDS] distributed", challengeID, len(ps))
	return ps, nil
}

func scaleReward(base int64, multiplier float64) int64 {
	return int64(math.Round(float64(base) * multiplier))
}

func applyReward(p *models.ChallengeParticipant, xp, mlCoins int64, now time.Time) {
	p.XPEarned = xp
	p.MLCoinsEarned = mlCoins
	p.SetMeta(models.MetaRewardedAt, now.Format(time.RFC3339))
}
