package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ParticipationStatus string

const (
	ParticipationInvited      ParticipationStatus = "invited"
	ParticipationAccepted     ParticipationStatus = "accepted"
	ParticipationInProgress   ParticipationStatus = "in_progress"
	ParticipationCompleted    ParticipationStatus = "completed"
	ParticipationForfeit      ParticipationStatus = "forfeit"
	ParticipationDisqualified ParticipationStatus = "disqualified"
)

func (s ParticipationStatus) Valid() bool {
	switch s {
	case ParticipationInvited, ParticipationAccepted, ParticipationInProgress,
		ParticipationCompleted, ParticipationForfeit, ParticipationDisqualified:
		return true
	}
	return false
}

// Metadata keys written by enrollment and reward operations.
const (
	MetaDisqualificationReason = "disqualification_reason"
	MetaDisqualifiedAt         = "disqualified_at"
	MetaRewardedAt             = "rewarded_at"
)

// ChallengeParticipant is a user's enrollment in one challenge.
// Rows are hard-deleted on removal so (challenge_id, user_id) can be reused.
type ChallengeParticipant struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChallengeID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_participant_challenge_user" json:"challenge_id"`
	UserID      string `gorm:"type:varchar(64);not null;uniqueIndex:idx_participant_challenge_user;index" json:"user_id"`

	Status   ParticipationStatus `gorm:"column:participation_status;type:varchar(20);not null" json:"participation_status"`
	Score    float64             `gorm:"not null;default:0" json:"score"`
	Rank     *int                `json:"rank,omitempty"`
	IsWinner bool                `gorm:"not null;default:false" json:"is_winner"`

	XPEarned      int64 `gorm:"column:xp_earned;not null;default:0" json:"xp_earned"`
	MLCoinsEarned int64 `gorm:"column:ml_coins_earned;not null;default:0" json:"ml_coins_earned"`

	InvitedBy   *string    `gorm:"type:varchar(64)" json:"invited_by,omitempty"`
	InvitedAt   *time.Time `json:"invited_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Metadata Metadata `gorm:"serializer:json;type:text" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (p *ChallengeParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// SetMeta writes a metadata key, allocating the map on first use.
func (p *ChallengeParticipant) SetMeta(key string, value any) {
	if p.Metadata == nil {
		p.Metadata = Metadata{}
	}
	p.Metadata[key] = value
}

// LeaderboardEntry is the ranked, read-only view of a participant.
type LeaderboardEntry struct {
	Rank          int                 `json:"rank"`
	UserID        string              `json:"user_id"`
	Score         float64             `json:"score"`
	Status        ParticipationStatus `json:"participation_status"`
	IsWinner      bool                `json:"is_winner"`
	XPEarned      int64               `json:"xp_earned"`
	MLCoinsEarned int64               `json:"ml_coins_earned"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}
