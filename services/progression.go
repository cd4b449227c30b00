package services

import (
	"context"
	"math"

	"challenge-arena/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// BaseXPPerLevel scales the level curve: leaving level n costs
// floor(BaseXPPerLevel * n^1.2) XP, so 100, 229, 373, ...
const BaseXPPerLevel = 100

func xpForNextLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(level), 1.2))
}

// TierThresholds maps tier to the level it unlocks at.
var TierThresholds = map[int]int{
	1: 1,   // Bronze
	2: 10,  // Silver
	3: 25,  // Gold
	4: 50,  // Platinum
	5: 100, // Diamond
}

func determineTier(level int) int {
	for tier := 5; tier >= 1; tier-- {
		if level >= TierThresholds[tier] {
			return tier
		}
	}
	return 1
}

// levelFor walks the level curve and returns the level reached with totalXP
// plus the XP still missing for the next one.
func levelFor(totalXP int64) (level int, toNext int64) {
	level = 1
	remaining := totalXP
	for remaining >= xpForNextLevel(level) {
		remaining -= xpForNextLevel(level)
		level++
	}
	return level, xpForNextLevel(level) - remaining
}

type progressAggregate struct {
	Joined     int64
	Completed  int64
	Won        int64
	TotalXP    int64
	TotalCoins int64
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// GetUserProgress aggregates a user's challenge history into level and counters.
func (s *ProgressionService) GetUserProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	if userID == "" {
		return nil, badRequest("user_id is required")
	}
	var agg progressAggregate
	err := s.DB.WithContext(ctx).Model(&models.ChallengeParticipant{}).
		Select(`COUNT(*) AS joined,
			COALESCE(SUM(CASE WHEN participation_status = ? THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN is_winner = ? THEN 1 ELSE 0 END), 0) AS won,
			COALESCE(SUM(xp_earned), 0) AS total_xp,
			COALESCE(SUM(ml_coins_earned), 0) AS total_coins`,
			models.ParticipationCompleted, true).
		Where("user_id = ?", userID).
		Scan(&agg).Error
	if err != nil {
		return nil, errors.Wrapf(err, "aggregating progress of %s", userID)
	}

	level, toNext := levelFor(agg.TotalXP)
	return &models.UserProgress{
		UserID:              userID,
		TotalXP:             agg.TotalXP,
		TotalMLCoins:        agg.TotalCoins,
		Level:               level,
		Tier:                determineTier(level),
		ChallengesJoined:    agg.Joined,
		ChallengesCompleted: agg.Completed,
		ChallengesWon:       agg.Won,
		XPToNextLevel:       toNext,
	}, nil
}
