package services

import (
	"context"

	"challenge-arena/logger"
	"challenge-arena/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type RankingService struct {
	DB    *gorm.DB
	Log   logger.Logger
	Cache LeaderboardCache
}

func NewRankingService(db *gorm.DB, log logger.Logger, cache LeaderboardCache) *RankingService {
	return &RankingService{DB: db, Log: log, Cache: cache}
}

// standingOrder sorts by score, then earliest completion with unfinished
// entries last, then idColumn so equal standings always come out the same.
func standingOrder(idColumn string) string {
	return "score DESC, completed_at ASC NULLS LAST, " + idColumn + " ASC"
}

func (s *RankingService) rank(tx *gorm.DB, challengeID string) ([]models.ChallengeParticipant, error) {
	if _, err := findChallenge(tx, challengeID, true); err != nil {
		return nil, err
	}
	var ps []models.ChallengeParticipant
	if err := tx.Where("challenge_id = ?", challengeID).Order(standingOrder("user_id")).Find(&ps).Error; err != nil {
		return nil, errors.Wrap(err, "loading participants")
	}
	for i := range ps {
		r := i + 1
		ps[i].Rank = &r
		if err := tx.Model(&ps[i]).Update("rank", r).Error; err != nil {
			return nil, errors.Wrapf(err, "saving rank of %s", ps[i].UserID)
		}
	}
	return ps, nil
}

// CalculateRankings assigns ranks 1..N and returns participants in rank order.
func (s *RankingService) CalculateRankings(ctx context.Context, challengeID string) ([]models.ChallengeParticipant, error) {
	var ranked []models.ChallengeParticipant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ranked, err = s.rank(tx, challengeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	invalidateLeaderboard(ctx, s.Cache, challengeID)
	return ranked, nil
}

// DetermineWinner ranks the challenge and flags the top participant. The
// ranks stay saved even when no winner can be named.
// Earlier winner flags are left untouched; use ResetWinner to clear them.
func (s *RankingService) DetermineWinner(ctx context.Context, challengeID string) (*models.ChallengeParticipant, error) {
	ranked, err := s.CalculateRankings(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, badRequest("challenge %s has no participants", challengeID)
	}
	winner := ranked[0]
	if winner.Score == 0 {
		return nil, badRequest("no winner can be determined for challenge %s: top score is 0", challengeID)
	}

	if err := s.DB.WithContext(ctx).Model(&winner).Update("is_winner", true).Error; err != nil {
		return nil, errors.Wrap(err, "flagging winner")
	}
	winner.IsWinner = true
	invalidateLeaderboard(ctx, s.Cache, challengeID)
	s.Log.Info("[RANKING] winner", challengeID, winner.UserID)
	return &winner, nil
}

// ResetWinner clears every winner flag of the challenge and returns how many were set.
func (s *RankingService) ResetWinner(ctx context.Context, challengeID string) (int64, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findChallenge(db, challengeID, false); err != nil {
		return 0, err
	}
	res := db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND is_winner = ?", challengeID, true).
		Update("is_winner", false)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "resetting winner")
	}
	invalidateLeaderboard(ctx, s.Cache, challengeID)
	return res.RowsAffected, nil
}

// GetLeaderboard returns the current standings without persisting ranks.
func (s *RankingService) GetLeaderboard(ctx context.Context, challengeID string) ([]models.LeaderboardEntry, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findChallenge(db, challengeID, false); err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if entries, ok := s.Cache.Get(ctx, challengeID); ok {
			return entries, nil
		}
	}

	var ps []models.ChallengeParticipant
	if err := db.Where("challenge_id = ?", challengeID).Order(standingOrder("user_id")).Find(&ps).Error; err != nil {
		return nil, errors.Wrap(err, "loading participants")
	}
	entries := make([]models.LeaderboardEntry, 0, len(ps))
	for i, p := range ps {
		entries = append(entries, models.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        p.UserID,
			Score:         p.Score,
			Status:        p.Status,
			IsWinner:      p.IsWinner,
			XPEarned:      p.XPEarned,
			MLCoinsEarned: p.MLCoinsEarned,
			CompletedAt:   p.CompletedAt,
		})
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, challengeID, entries)
	}
	return entries, nil
}
