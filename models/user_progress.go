package models

// UserProgress is the challenge progression summary for one user.
// It is computed from participant rows, not stored.
type UserProgress struct {
	UserID string `json:"user_id"`

	// Core progression
	TotalXP      int64 `json:"total_xp"`
	TotalMLCoins int64 `json:"total_ml_coins"`
	Level        int   `json:"level"`
	Tier         int   `json:"tier"` // Bronze(1)→Silver(2)→Gold(3)→Platinum(4)→Diamond(5)

	// Activity counters
	ChallengesJoined    int64 `json:"challenges_joined"`
	ChallengesCompleted int64 `json:"challenges_completed"`
	ChallengesWon       int64 `json:"challenges_won"`

	XPToNextLevel int64 `json:"xp_to_next_level"`
}
