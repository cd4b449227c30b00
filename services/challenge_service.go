package services

import (
	"context"
	"strings"
	"time"

	"challenge-arena/logger"
	"challenge-arena/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nowFunc is the clock every service stamps times with.
var nowFunc = func() time.Time { return time.Now().UTC() }

type ChallengeService struct {
	DB    *gorm.DB
	Log   logger.Logger
	Cache LeaderboardCache
}

func NewChallengeService(db *gorm.DB, log logger.Logger, cache LeaderboardCache) *ChallengeService {
	return &ChallengeService{DB: db, Log: log, Cache: cache}
}

type CreateChallengeInput struct {
	Title           string
	Description     string
	ChallengeType   models.ChallengeType
	MaxParticipants int
	CreatedBy       string
	StartTime       *time.Time
	EndTime         *time.Time
}

// ChallengeUpdate holds the fields an open challenge may change; nil means keep.
type ChallengeUpdate struct {
	Title           *string
	Description     *string
	MaxParticipants *int
	StartTime       *time.Time
	EndTime         *time.Time
}

type ChallengeFilter struct {
	Status        models.ChallengeStatus
	ChallengeType models.ChallengeType
	CreatedBy     string
	Limit         int
	Offset        int
}

// findChallenge loads a challenge, optionally holding a row lock for the
// rest of the surrounding transaction.
func findChallenge(tx *gorm.DB, id string, forUpdate bool) (*models.Challenge, error) {
	q := tx
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var ch models.Challenge
	if err := q.First(&ch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("challenge %s not found", id)
		}
		return nil, errors.Wrapf(err, "loading challenge %s", id)
	}
	return &ch, nil
}

// transitionChallenge validates from → to against the state machine and persists it.
func transitionChallenge(tx *gorm.DB, ch *models.Challenge, to models.ChallengeStatus) error {
	if !ch.Status.CanTransitionTo(to) {
		return badRequest("cannot move challenge from %s to %s", ch.Status, to)
	}
	ch.Status = to
	now := nowFunc()
	switch to {
	case models.ChallengeStatusInProgress:
		ch.StartedAt = &now
	case models.ChallengeStatusCompleted:
		ch.CompletedAt = &now
	}
	if err := tx.Save(ch).Error; err != nil {
		return errors.Wrapf(err, "saving challenge %s", ch.ID)
	}
	return nil
}

func makeSlug(title, id string) string {
	base := slug.Make(title)
	if base == "" {
		base = "challenge"
	}
	return base + "-" + strings.SplitN(id, "-", 2)[0]
}

func (s *ChallengeService) Create(ctx context.Context, in CreateChallengeInput) (*models.Challenge, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, badRequest("title is required")
	}
	if in.CreatedBy == "" {
		return nil, badRequest("created_by is required")
	}
	if !in.ChallengeType.Valid() {
		return nil, badRequest("unknown challenge_type %q", in.ChallengeType)
	}
	if in.MaxParticipants == 0 && in.ChallengeType == models.ChallengeTypeHeadToHead {
		in.MaxParticipants = 2
	}
	if in.MaxParticipants <= 0 {
		return nil, badRequest("max_participants must be positive")
	}
	if in.StartTime != nil && in.EndTime != nil && !in.EndTime.After(*in.StartTime) {
		return nil, badRequest("end_time must be after start_time")
	}

	id := uuid.NewString()
	ch := &models.Challenge{
		ID:              id,
		Title:           in.Title,
		Slug:            makeSlug(in.Title, id),
		Description:     in.Description,
		ChallengeType:   in.ChallengeType,
		Status:          models.ChallengeStatusOpen,
		MaxParticipants: in.MaxParticipants,
		CreatedBy:       in.CreatedBy,
		StartTime:       utcPtr(in.StartTime),
		EndTime:         utcPtr(in.EndTime),
	}
	if err := s.DB.WithContext(ctx).Create(ch).Error; err != nil {
		return nil, errors.Wrap(err, "creating challenge")
	}
	s.Log.Info("[CHALLENGE] created", ch.ID, ch.Slug)
	return ch, nil
}

func (s *ChallengeService) Get(ctx context.Context, id string) (*models.Challenge, error) {
	return findChallenge(s.DB.WithContext(ctx), id, false)
}

func (s *ChallengeService) List(ctx context.Context, f ChallengeFilter) ([]models.Challenge, error) {
	q := s.DB.WithContext(ctx).Model(&models.Challenge{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ChallengeType != "" {
		q = q.Where("challenge_type = ?", f.ChallengeType)
	}
	if f.CreatedBy != "" {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []models.Challenge
	if err := q.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "listing challenges")
	}
	return out, nil
}

// Update edits an open challenge; only its creator may do so.
func (s *ChallengeService) Update(ctx context.Context, id, callerID string, patch ChallengeUpdate) (*models.Challenge, error) {
	var ch *models.Challenge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ch, err = findChallenge(tx, id, true); err != nil {
			return err
		}
		if ch.Status != models.ChallengeStatusOpen {
			return badRequest("challenge %s can only be updated while open (status: %s)", id, ch.Status)
		}
		if ch.CreatedBy != callerID {
			return forbidden("only the creator can update challenge %s", id)
		}

		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return badRequest("title cannot be empty")
			}
			ch.Title = title
			ch.Slug = makeSlug(title, ch.ID)
		}
		if patch.Description != nil {
			ch.Description = *patch.Description
		}
		if patch.MaxParticipants != nil {
			count, err := countParticipants(tx, ch.ID)
			if err != nil {
				return err
			}
			if *patch.MaxParticipants <= 0 {
				return badRequest("max_participants must be positive")
			}
			if int64(*patch.MaxParticipants) < count {
				return badRequest("max_participants cannot drop below the %d enrolled participants", count)
			}
			ch.MaxParticipants = *patch.MaxParticipants
		}
		if patch.StartTime != nil {
			ch.StartTime = utcPtr(patch.StartTime)
		}
		if patch.EndTime != nil {
			ch.EndTime = utcPtr(patch.EndTime)
		}
		if ch.StartTime != nil && ch.EndTime != nil && !ch.EndTime.After(*ch.StartTime) {
			return badRequest("end_time must be after start_time")
		}

		if err := tx.Save(ch).Error; err != nil {
			return errors.Wrapf(err, "saving challenge %s", id)
		}
		// A cap lowered to the live count fills the challenge.
		if count, err := countParticipants(tx, ch.ID); err != nil {
			return err
		} else if int(count) == ch.MaxParticipants {
			return transitionChallenge(tx, ch, models.ChallengeStatusFull)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Delete removes a challenge and its participants; creator only, never mid-run.
func (s *ChallengeService) Delete(ctx context.Context, id, callerID string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, err := findChallenge(tx, id, true)
		if err != nil {
			return err
		}
		if ch.CreatedBy != callerID {
			return forbidden("only the creator can delete challenge %s", id)
		}
		if ch.Status == models.ChallengeStatusInProgress {
			return badRequest("challenge %s is in progress and cannot be deleted", id)
		}
		if err := tx.Where("challenge_id = ?", id).Delete(&models.ChallengeParticipant{}).Error; err != nil {
			return errors.Wrapf(err, "deleting participants of %s", id)
		}
		return errors.Wrapf(tx.Delete(ch).Error, "deleting challenge %s", id)
	})
	if err != nil {
		return err
	}
	invalidateLeaderboard(ctx, s.Cache, id)
	s.Log.Info("[CHALLENGE] deleted", id)
	return nil
}

// Start moves an open or full challenge to in_progress; accepted
// participants start playing with it.
func (s *ChallengeService) Start(ctx context.Context, id string) (*models.Challenge, error) {
	var ch *models.Challenge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ch, err = findChallenge(tx, id, true); err != nil {
			return err
		}
		if err := transitionChallenge(tx, ch, models.ChallengeStatusInProgress); err != nil {
			return err
		}
		return tx.Model(&models.ChallengeParticipant{}).
			Where("challenge_id = ? AND participation_status = ?", id, models.ParticipationAccepted).
			Update("participation_status", models.ParticipationInProgress).Error
	})
	if err != nil {
		return nil, err
	}
	invalidateLeaderboard(ctx, s.Cache, id)
	return ch, nil
}

func (s *ChallengeService) Complete(ctx context.Context, id string) (*models.Challenge, error) {
	return s.apply(ctx, id, func(tx *gorm.DB, ch *models.Challenge) error {
		return transitionChallenge(tx, ch, models.ChallengeStatusCompleted)
	})
}

// Cancel is restricted to the creator.
func (s *ChallengeService) Cancel(ctx context.Context, id, callerID string) (*models.Challenge, error) {
	return s.apply(ctx, id, func(tx *gorm.DB, ch *models.Challenge) error {
		if ch.CreatedBy != callerID {
			return forbidden("only the creator can cancel challenge %s", id)
		}
		return transitionChallenge(tx, ch, models.ChallengeStatusCancelled)
	})
}

// MarkExpired moves every non-terminal challenge whose end_time has passed
// to expired and returns how many changed.
func (s *ChallengeService) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Challenge{}).
		Where("status IN ? AND end_time IS NOT NULL AND end_time < ?", models.NonTerminalChallengeStatuses(), now.UTC()).
		Update("status", models.ChallengeStatusExpired)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "expiring challenges")
	}
	if res.RowsAffected > 0 {
		s.Log.Info("[CHALLENGE] expired", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

func (s *ChallengeService) apply(ctx context.Context, id string, fn func(tx *gorm.DB, ch *models.Challenge) error) (*models.Challenge, error) {
	var ch *models.Challenge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ch, err = findChallenge(tx, id, true); err != nil {
			return err
		}
		return fn(tx, ch)
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func countParticipants(tx *gorm.DB, challengeID string) (int64, error) {
	var count int64
	if err := tx.Model(&models.ChallengeParticipant{}).Where("challenge_id = ?", challengeID).Count(&count).Error; err != nil {
		return 0, errors.Wrapf(err, "counting participants of %s", challengeID)
	}
	return count, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
