package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeStatus string

const (
	ChallengeStatusOpen       ChallengeStatus = "open"
	ChallengeStatusFull       ChallengeStatus = "full"
	ChallengeStatusInProgress ChallengeStatus = "in_progress"
	ChallengeStatusCompleted  ChallengeStatus = "completed"
	ChallengeStatusCancelled  ChallengeStatus = "cancelled"
	ChallengeStatusExpired    ChallengeStatus = "expired"
)

type ChallengeType string

const (
	ChallengeTypeHeadToHead  ChallengeType = "head_to_head"
	ChallengeTypeMultiplayer ChallengeType = "multiplayer"
	ChallengeTypeTournament  ChallengeType = "tournament"
	ChallengeTypeLeaderboard ChallengeType = "leaderboard"
)

// challengeTransitions lists every edge of the challenge state machine.
// Terminal states have no outgoing edges.
var challengeTransitions = map[ChallengeStatus][]ChallengeStatus{
	ChallengeStatusOpen:       {ChallengeStatusFull, ChallengeStatusInProgress, ChallengeStatusCancelled, ChallengeStatusExpired},
	ChallengeStatusFull:       {ChallengeStatusOpen, ChallengeStatusInProgress, ChallengeStatusCancelled, ChallengeStatusExpired},
	ChallengeStatusInProgress: {ChallengeStatusCompleted, ChallengeStatusCancelled, ChallengeStatusExpired},
}

func (s ChallengeStatus) Valid() bool {
	switch s {
	case ChallengeStatusOpen, ChallengeStatusFull, ChallengeStatusInProgress,
		ChallengeStatusCompleted, ChallengeStatusCancelled, ChallengeStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s ChallengeStatus) IsTerminal() bool {
	return s == ChallengeStatusCompleted || s == ChallengeStatusCancelled || s == ChallengeStatusExpired
}

// CanTransitionTo reports whether from → to is an edge of the state machine.
func (s ChallengeStatus) CanTransitionTo(to ChallengeStatus) bool {
	for _, next := range challengeTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// NonTerminalChallengeStatuses is used by the expiry sweep.
func NonTerminalChallengeStatuses() []ChallengeStatus {
	return []ChallengeStatus{ChallengeStatusOpen, ChallengeStatusFull, ChallengeStatusInProgress}
}

func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeTypeHeadToHead, ChallengeTypeMultiplayer, ChallengeTypeTournament, ChallengeTypeLeaderboard:
		return true
	}
	return false
}

type Challenge struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title           string          `gorm:"not null" json:"title"`
	Slug            string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description     string          `json:"description,omitempty"`
	ChallengeType   ChallengeType   `gorm:"type:varchar(20);not null;index" json:"challenge_type"`
	Status          ChallengeStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	MaxParticipants int             `gorm:"not null" json:"max_participants"`
	CreatedBy       string          `gorm:"type:varchar(64);not null;index" json:"created_by"`

	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `gorm:"index" json:"end_time,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Set by the results archive worker once standings are uploaded.
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	ArchiveKey string     `json:"archive_key,omitempty"`

	Timestamps
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = ChallengeStatusOpen
	}
	return nil
}
