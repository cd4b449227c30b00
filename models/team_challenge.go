package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeamChallengeStatus string

const (
	TeamChallengeActive     TeamChallengeStatus = "active"
	TeamChallengeInProgress TeamChallengeStatus = "in_progress"
	TeamChallengeCompleted  TeamChallengeStatus = "completed"
	TeamChallengeFailed     TeamChallengeStatus = "failed"
	TeamChallengeCancelled  TeamChallengeStatus = "cancelled"
)

var teamChallengeTransitions = map[TeamChallengeStatus][]TeamChallengeStatus{
	TeamChallengeActive:     {TeamChallengeInProgress, TeamChallengeCancelled},
	TeamChallengeInProgress: {TeamChallengeCompleted, TeamChallengeFailed, TeamChallengeCancelled},
}

func (s TeamChallengeStatus) IsTerminal() bool {
	return len(teamChallengeTransitions[s]) == 0
}

func (s TeamChallengeStatus) CanTransitionTo(to TeamChallengeStatus) bool {
	for _, next := range teamChallengeTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

const MetaFailReason = "fail_reason"

// TeamChallenge is one team's run of a shared challenge.
// Teams on the same ChallengeID are ranked against each other.
type TeamChallenge struct {
	ID          string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TeamID      string              `gorm:"type:varchar(64);not null;uniqueIndex:idx_team_challenge" json:"team_id"`
	ChallengeID string              `gorm:"type:varchar(64);not null;uniqueIndex:idx_team_challenge;index" json:"challenge_id"`
	Title       string              `json:"title"`
	Status      TeamChallengeStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Score       float64             `gorm:"not null;default:0" json:"score"`
	MaxScore    *float64            `json:"max_score,omitempty"`
	AssignedBy  string              `gorm:"type:varchar(64);not null" json:"assigned_by"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`

	Metadata Metadata `gorm:"serializer:json;type:text" json:"metadata,omitempty"`

	Timestamps
}

func (t *TeamChallenge) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TeamChallengeActive
	}
	return nil
}

type TeamLeaderboardEntry struct {
	Rank        int                 `json:"rank"`
	TeamID      string              `json:"team_id"`
	Score       float64             `json:"score"`
	Status      TeamChallengeStatus `json:"status"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}
