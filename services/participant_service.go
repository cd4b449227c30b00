package services

import (
	"context"
	"math"
	"time"

	"challenge-arena/logger"
	"challenge-arena/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ParticipantService struct {
	DB    *gorm.DB
	Log   logger.Logger
	Cache LeaderboardCache
}

func NewParticipantService(db *gorm.DB, log logger.Logger, cache LeaderboardCache) *ParticipantService {
	return &ParticipantService{DB: db, Log: log, Cache: cache}
}

func findParticipant(tx *gorm.DB, challengeID, userID string, forUpdate bool) (*models.ChallengeParticipant, error) {
	q := tx
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p models.ChallengeParticipant
	err := q.Where("challenge_id = ? AND user_id = ?", challengeID, userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user %s is not a participant of challenge %s", userID, challengeID)
		}
		return nil, errors.Wrapf(err, "loading participant %s/%s", challengeID, userID)
	}
	return &p, nil
}

// AddParticipant enrolls userID. With invitedBy the participant starts as
// invited, otherwise as accepted. The challenge row stays locked from the
// capacity check to the insert so concurrent joins cannot overfill it.
func (s *ParticipantService) AddParticipant(ctx context.Context, challengeID, userID string, invitedBy *string) (*models.ChallengeParticipant, error) {
	if userID == "" {
		return nil, badRequest("user_id is required")
	}

	var participant *models.ChallengeParticipant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, err := findChallenge(tx, challengeID, true)
		if err != nil {
			return err
		}
		if ch.Status != models.ChallengeStatusOpen && ch.Status != models.ChallengeStatusFull {
			return badRequest("challenge %s is not accepting participants (status: %s)", challengeID, ch.Status)
		}

		var existing int64
		if err := tx.Model(&models.ChallengeParticipant{}).
			Where("challenge_id = ? AND user_id = ?", challengeID, userID).
			Count(&existing).Error; err != nil {
			return errors.Wrap(err, "checking existing participant")
		}
		if existing > 0 {
			return conflict("user %s already joined challenge %s", userID, challengeID)
		}

		count, err := countParticipants(tx, challengeID)
		if err != nil {
			return err
		}
		if count >= int64(ch.MaxParticipants) {
			return badRequest("challenge %s is full", challengeID)
		}

		now := nowFunc()
		participant = &models.ChallengeParticipant{
			ChallengeID: challengeID,
			UserID:      userID,
		}
		if invitedBy != nil && *invitedBy != "" {
			inviter := *invitedBy
			participant.Status = models.ParticipationInvited
			participant.InvitedBy = &inviter
			participant.InvitedAt = &now
		} else {
			participant.Status = models.ParticipationAccepted
			participant.AcceptedAt = &now
		}
		if err := tx.Create(participant).Error; err != nil {
			return errors.Wrap(err, "creating participant")
		}

		if count+1 == int64(ch.MaxParticipants) {
			return transitionChallenge(tx, ch, models.ChallengeStatusFull)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateLeaderboard(ctx, s.Cache, challengeID)
	s.Log.Info("[ENROLL] joined", challengeID, userID, participant.Status)
	return participant, nil
}

// AcceptInvitation is only valid for an invited participant.
func (s *ParticipantService) AcceptInvitation(ctx context.Context, challengeID, userID string) (*models.ChallengeParticipant, error) {
	return s.mutate(ctx, challengeID, userID, func(p *models.ChallengeParticipant) error {
		if p.Status != models.ParticipationInvited {
			return badRequest("invitation cannot be accepted from status %s", p.Status)
		}
		p.Status = models.ParticipationAccepted
		if p.AcceptedAt == nil {
			now := nowFunc()
			p.AcceptedAt = &now
		}
		return nil
	})
}

// UpdateStatus sets any participation status; completed stamps completed_at once.
func (s *ParticipantService) UpdateStatus(ctx context.Context, challengeID, userID string, status models.ParticipationStatus) (*models.ChallengeParticipant, error) {
	if !status.Valid() {
		return nil, badRequest("unknown participation_status %q", status)
	}
	return s.mutate(ctx, challengeID, userID, func(p *models.ChallengeParticipant) error {
		setParticipationStatus(p, status, nowFunc())
		return nil
	})
}

func (s *ParticipantService) Forfeit(ctx context.Context, challengeID, userID string) (*models.ChallengeParticipant, error) {
	return s.UpdateStatus(ctx, challengeID, userID, models.ParticipationForfeit)
}

// Disqualify records the reason and time in the participant's metadata.
func (s *ParticipantService) Disqualify(ctx context.Context, challengeID, userID, reason string) (*models.ChallengeParticipant, error) {
	return s.mutate(ctx, challengeID, userID, func(p *models.ChallengeParticipant) error {
		now := nowFunc()
		setParticipationStatus(p, models.ParticipationDisqualified, now)
		if reason != "" {
			p.SetMeta(models.MetaDisqualificationReason, reason)
		}
		p.SetMeta(models.MetaDisqualifiedAt, now.Format(time.RFC3339))
		return nil
	})
}

// UpdateScore records a participant's score while the challenge is still live.
func (s *ParticipantService) UpdateScore(ctx context.Context, challengeID, userID string, score float64) (*models.ChallengeParticipant, error) {
	if score < 0 || math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, badRequest("score must be a non-negative number")
	}
	var participant *models.ChallengeParticipant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, err := findChallenge(tx, challengeID, false)
		if err != nil {
			return err
		}
		if ch.Status.IsTerminal() {
			return badRequest("challenge %s is %s; scores are frozen", challengeID, ch.Status)
		}
		if participant, err = findParticipant(tx, challengeID, userID, true); err != nil {
			return err
		}
		participant.Score = score
		return errors.Wrap(tx.Save(participant).Error, "saving score")
	})
	if err != nil {
		return nil, err
	}
	invalidateLeaderboard(ctx, s.Cache, challengeID)
	return participant, nil
}

// RemoveParticipant deletes the enrollment; a full challenge reopens.
func (s *ParticipantService) RemoveParticipant(ctx context.Context, challengeID, userID string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, err := findChallenge(tx, challengeID, true)
		if err != nil {
			return err
		}
		if ch.Status == models.ChallengeStatusInProgress {
			return badRequest("cannot remove participants while challenge %s is in progress", challengeID)
		}
		p, err := findParticipant(tx, challengeID, userID, false)
		if err != nil {
			return err
		}
		if err := tx.Delete(p).Error; err != nil {
			return errors.Wrap(err, "deleting participant")
		}
		if ch.Status == models.ChallengeStatusFull {
			return transitionChallenge(tx, ch, models.ChallengeStatusOpen)
		}
		return nil
	})
	if err != nil {
		return err
	}
	invalidateLeaderboard(ctx, s.Cache, challengeID)
	s.Log.Info("[ENROLL] removed", challengeID, userID)
	return nil
}

func (s *ParticipantService) Get(ctx context.Context, challengeID, userID string) (*models.ChallengeParticipant, error) {
	return findParticipant(s.DB.WithContext(ctx), challengeID, userID, false)
}

func (s *ParticipantService) List(ctx context.Context, challengeID string) ([]models.ChallengeParticipant, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findChallenge(db, challengeID, false); err != nil {
		return nil, err
	}
	var out []models.ChallengeParticipant
	if err := db.Where("challenge_id = ?", challengeID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "listing participants")
	}
	return out, nil
}

func (s *ParticipantService) mutate(ctx context.Context, challengeID, userID string, fn func(p *models.ChallengeParticipant) error) (*models.ChallengeParticipant, error) {
	var participant *models.ChallengeParticipant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if participant, err = findParticipant(tx, challengeID, userID, true); err != nil {
			return err
		}
		if err := fn(participant); err != nil {
			return err
		}
		return errors.Wrap(tx.Save(participant).Error, "saving participant")
	})
	if err != nil {
		return nil, err
	}
	invalidateLeaderboard(ctx, s.Cache, challengeID)
	return participant, nil
}

func setParticipationStatus(p *models.ChallengeParticipant, status models.ParticipationStatus, now time.Time) {
	p.Status = status
	if status == models.ParticipationCompleted && p.CompletedAt == nil {
		p.CompletedAt = &now
	}
}
