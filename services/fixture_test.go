package services

import (
	"context"
	"testing"
	"time"

	"challenge-arena/logger"
	"challenge-arena/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const creatorID = "creator-1"

type fixture struct {
	ctx          context.Context
	db           *gorm.DB
	challenges   *ChallengeService
	participants *ParticipantService
	rankings     *RankingService
	rewards      *RewardService
	teams        *TeamChallengeService
	progression  *ProgressionService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database shared and serializes transactions
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newFixture(t *testing.T, cache LeaderboardCache) *fixture {
	t.Helper()
	return newFixtureOn(t, newTestDB(t), cache)
}

func newFixtureOn(t *testing.T, db *gorm.DB, cache LeaderboardCache) *fixture {
	t.Helper()
	log := logger.NewDiscard()
	return &fixture{
		ctx:          context.Background(),
		db:           db,
		challenges:   NewChallengeService(db, log, cache),
		participants: NewParticipantService(db, log, cache),
		rankings:     NewRankingService(db, log, cache),
		rewards:      NewRewardService(db, log, cache),
		teams:        NewTeamChallengeService(db, log),
		progression:  NewProgressionService(db),
	}
}

func (f *fixture) challenge(t *testing.T, maxParticipants int) *models.Challenge {
	t.Helper()
	ch, err := f.challenges.Create(f.ctx, CreateChallengeInput{
		Title:           "Fractions Face-Off",
		ChallengeType:   models.ChallengeTypeMultiplayer,
		MaxParticipants: maxParticipants,
		CreatedBy:       creatorID,
	})
	require.NoError(t, err)
	return ch
}

func (f *fixture) join(t *testing.T, challengeID string, userIDs ...string) {
	t.Helper()
	for _, id := range userIDs {
		_, err := f.participants.AddParticipant(f.ctx, challengeID, id, nil)
		require.NoError(t, err)
	}
}

// result writes score and completion time straight to the store.
func (f *fixture) result(t *testing.T, challengeID, userID string, score float64, completedAt *time.Time) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Updates(map[string]interface{}{"score": score, "completed_at": completedAt}).Error)
}

func (f *fixture) reload(t *testing.T, challengeID string) *models.Challenge {
	t.Helper()
	ch, err := f.challenges.Get(f.ctx, challengeID)
	require.NoError(t, err)
	return ch
}

func (f *fixture) participant(t *testing.T, challengeID, userID string) *models.ChallengeParticipant {
	t.Helper()
	p, err := f.participants.Get(f.ctx, challengeID, userID)
	require.NoError(t, err)
	return p
}

// freezeClock pins nowFunc for the duration of the test.
func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = prev })
}

func ptrTime(t time.Time) *time.Time { return &t }
