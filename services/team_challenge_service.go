package services

import (
	"context"
	"math"
	"strings"

	"challenge-arena/logger"
	"challenge-arena/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeamChallengeService struct {
	DB  *gorm.DB
	Log logger.Logger
}

func NewTeamChallengeService(db *gorm.DB, log logger.Logger) *TeamChallengeService {
	return &TeamChallengeService{DB: db, Log: log}
}

type AssignTeamChallengeInput struct {
	TeamID      string
	ChallengeID string
	Title       string
	MaxScore    *float64
	AssignedBy  string
}

func findTeamChallenge(tx *gorm.DB, id string, forUpdate bool) (*models.TeamChallenge, error) {
	q := tx
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var tc models.TeamChallenge
	if err := q.First(&tc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("team challenge %s not found", id)
		}
		return nil, errors.Wrapf(err, "loading team challenge %s", id)
	}
	return &tc, nil
}

func transitionTeamChallenge(tc *models.TeamChallenge, to models.TeamChallengeStatus) error {
	if !tc.Status.CanTransitionTo(to) {
		return badRequest("cannot move team challenge from %s to %s", tc.Status, to)
	}
	tc.Status = to
	now := nowFunc()
	switch to {
	case models.TeamChallengeInProgress:
		tc.StartedAt = &now
	case models.TeamChallengeCompleted:
		tc.CompletedAt = &now
	case models.TeamChallengeFailed:
		tc.FailedAt = &now
	}
	return nil
}

// Assign gives a team a challenge; a team takes each challenge once.
func (s *TeamChallengeService) Assign(ctx context.Context, in AssignTeamChallengeInput) (*models.TeamChallenge, error) {
	if in.TeamID == "" || in.ChallengeID == "" || in.AssignedBy == "" {
		return nil, badRequest("team_id, challenge_id and assigned_by are required")
	}
	if in.MaxScore != nil && *in.MaxScore <= 0 {
		return nil, badRequest("max_score must be positive")
	}
	tc := &models.TeamChallenge{
		TeamID:      in.TeamID,
		ChallengeID: in.ChallengeID,
		Title:       strings.TrimSpace(in.Title),
		Status:      models.TeamChallengeActive,
		MaxScore:    in.MaxScore,
		AssignedBy:  in.AssignedBy,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.TeamChallenge{}).
			Where("team_id = ? AND challenge_id = ?", in.TeamID, in.ChallengeID).
			Count(&existing).Error; err != nil {
			return errors.Wrap(err, "checking existing team challenge")
		}
		if existing > 0 {
			return conflict("team %s already has challenge %s", in.TeamID, in.ChallengeID)
		}
		return errors.Wrap(tx.Create(tc).Error, "creating team challenge")
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("[TEAM] assigned", tc.ChallengeID, tc.TeamID)
	return tc, nil
}

func (s *TeamChallengeService) Get(ctx context.Context, id string) (*models.TeamChallenge, error) {
	return findTeamChallenge(s.DB.WithContext(ctx), id, false)
}

func (s *TeamChallengeService) ListForTeam(ctx context.Context, teamID string) ([]models.TeamChallenge, error) {
	var out []models.TeamChallenge
	if err := s.DB.WithContext(ctx).Where("team_id = ?", teamID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "listing team challenges")
	}
	return out, nil
}

func (s *TeamChallengeService) Start(ctx context.Context, id string) (*models.TeamChallenge, error) {
	return s.apply(ctx, id, func(tc *models.TeamChallenge) error {
		return transitionTeamChallenge(tc, models.TeamChallengeInProgress)
	})
}

// RecordScore sets the running score; only a challenge in progress accepts scores.
func (s *TeamChallengeService) RecordScore(ctx context.Context, id string, score float64) (*models.TeamChallenge, error) {
	if score < 0 || math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, badRequest("score must be a non-negative number")
	}
	return s.apply(ctx, id, func(tc *models.TeamChallenge) error {
		if tc.Status != models.TeamChallengeInProgress {
			return badRequest("team challenge %s is %s; scores can only be recorded in progress", id, tc.Status)
		}
		if tc.MaxScore != nil && score > *tc.MaxScore {
			score = *tc.MaxScore
		}
		tc.Score = score
		return nil
	})
}

// Complete finishes the run, optionally with a final score.
func (s *TeamChallengeService) Complete(ctx context.Context, id string, finalScore *float64) (*models.TeamChallenge, error) {
	if finalScore != nil && (*finalScore < 0 || math.IsNaN(*finalScore) || math.IsInf(*finalScore, 0)) {
		return nil, badRequest("score must be a non-negative number")
	}
	return s.apply(ctx, id, func(tc *models.TeamChallenge) error {
		if err := transitionTeamChallenge(tc, models.TeamChallengeCompleted); err != nil {
			return err
		}
		if finalScore != nil {
			tc.Score = *finalScore
			if tc.MaxScore != nil && tc.Score > *tc.MaxScore {
				tc.Score = *tc.MaxScore
			}
		}
		return nil
	})
}

func (s *TeamChallengeService) Fail(ctx context.Context, id, reason string) (*models.TeamChallenge, error) {
	return s.apply(ctx, id, func(tc *models.TeamChallenge) error {
		if err := transitionTeamChallenge(tc, models.TeamChallengeFailed); err != nil {
			return err
		}
		if reason != "" {
			if tc.Metadata == nil {
				tc.Metadata = models.Metadata{}
			}
			tc.Metadata[models.MetaFailReason] = reason
		}
		return nil
	})
}

// Cancel is restricted to whoever assigned the challenge.
func (s *TeamChallengeService) Cancel(ctx context.Context, id, callerID string) (*models.TeamChallenge, error) {
	return s.apply(ctx, id, func(tc *models.TeamChallenge) error {
		if tc.AssignedBy != callerID {
			return forbidden("only the assigner can cancel team challenge %s", id)
		}
		return transitionTeamChallenge(tc, models.TeamChallengeCancelled)
	})
}

// GetLeaderboard ranks every team on challengeID by score, earliest completion first on ties.
// Cancelled runs are left out.
func (s *TeamChallengeService) GetLeaderboard(ctx context.Context, challengeID string) ([]models.TeamLeaderboardEntry, error) {
	var runs []models.TeamChallenge
	err := s.DB.WithContext(ctx).
		Where("challenge_id = ? AND status <> ?", challengeID, models.TeamChallengeCancelled).
		Order(standingOrder("team_id")).
		Find(&runs).Error
	if err != nil {
		return nil, errors.Wrap(err, "loading team challenges")
	}

	entries := make([]models.TeamLeaderboardEntry, 0, len(runs))
	for i, r := range runs {
		entries = append(entries, models.TeamLeaderboardEntry{
			Rank:        i + 1,
			TeamID:      r.TeamID,
			Score:       r.Score,
			Status:      r.Status,
			CompletedAt: r.CompletedAt,
		})
	}
	return entries, nil
}

func (s *TeamChallengeService) apply(ctx context.Context, id string, fn func(tc *models.TeamChallenge) error) (*models.TeamChallenge, error) {
	var tc *models.TeamChallenge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if tc, err = findTeamChallenge(tx, id, true); err != nil {
			return err
		}
		if err := fn(tc); err != nil {
			return err
		}
		return errors.Wrapf(tx.Save(tc).Error, "saving team challenge %s", id)
	})
	if err != nil {
		return nil, err
	}
	return tc, nil
}
