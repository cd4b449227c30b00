package services

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"challenge-arena/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestParticipantService_AddParticipant(t *testing.T) {
	f := newFixture(t, nil)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	freezeClock(t, at)
	ch := f.challenge(t, 4)

	joined, err := f.participants.AddParticipant(f.ctx, ch.ID, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationAccepted, joined.Status)
	require.NotNil(t, joined.AcceptedAt)
	assert.True(t, joined.AcceptedAt.Equal(at))
	assert.Nil(t, joined.InvitedAt)

	invited, err := f.participants.AddParticipant(f.ctx, ch.ID, "bob", ptrString("alice"))
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationInvited, invited.Status)
	require.NotNil(t, invited.InvitedBy)
	assert.Equal(t, "alice", *invited.InvitedBy)
	assert.NotNil(t, invited.InvitedAt)
	assert.Nil(t, invited.AcceptedAt)

	stored := f.participant(t, ch.ID, "bob")
	assert.Zero(t, stored.Score)
	assert.Nil(t, stored.Rank)
	assert.False(t, stored.IsWinner)
}

func TestParticipantService_AddParticipant_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 3)
	f.join(t, ch.ID, "alice")

	_, err := f.participants.AddParticipant(f.ctx, "missing", "alice", nil)
	assert.IsType(t, &NotFoundError{}, err)

	_, err = f.participants.AddParticipant(f.ctx, ch.ID, "alice", nil)
	assert.IsType(t, &ConflictError{}, err)

	_, err = f.participants.AddParticipant(f.ctx, ch.ID, "", nil)
	assert.IsType(t, &BadRequestError{}, err)

	_, err = f.challenges.Start(f.ctx, ch.ID)
	require.NoError(t, err)
	_, err = f.participants.AddParticipant(f.ctx, ch.ID, "bob", nil)
	assert.IsType(t, &BadRequestError{}, err)
}

func TestParticipantService_Capacity(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 2)

	f.join(t, ch.ID, "alice")
	assert.Equal(t, models.ChallengeStatusOpen, f.reload(t, ch.ID).Status)

	f.join(t, ch.ID, "bob")
	assert.Equal(t, models.ChallengeStatusFull, f.reload(t, ch.ID).Status)

	_, err := f.participants.AddParticipant(f.ctx, ch.ID, "carol", nil)
	assert.IsType(t, &BadRequestError{}, err)

	list, err := f.participants.List(f.ctx, ch.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// assertConcurrentJoinsNeverOverfill races ten joins for three seats.
func assertConcurrentJoinsNeverOverfill(t *testing.T, f *fixture) {
	t.Helper()
	ch := f.challenge(t, 3)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.participants.AddParticipant(f.ctx, ch.ID, fmt.Sprintf("user-%d", i), nil); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, successes)
	count, err := countParticipants(f.db, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, models.ChallengeStatusFull, f.reload(t, ch.ID).Status)
}

// SQLite runs one transaction at a time here, so this only covers the
// check-then-insert sequence. Row locking is covered by
// TestFindChallenge_LocksRowForUpdate and, against a live postgres, by
// TestParticipantService_ConcurrentJoins_Postgres.
func TestParticipantService_ConcurrentJoinsNeverOverfill(t *testing.T) {
	assertConcurrentJoinsNeverOverfill(t, newFixture(t, nil))
}

func TestParticipantService_ConcurrentJoins_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assertConcurrentJoinsNeverOverfill(t, newFixtureOn(t, db, nil))
}

func TestParticipantService_RemoveReopensFullChallenge(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 2)
	f.join(t, ch.ID, "alice", "bob")

	require.NoError(t, f.participants.RemoveParticipant(f.ctx, ch.ID, "bob"))
	assert.Equal(t, models.ChallengeStatusOpen, f.reload(t, ch.ID).Status)

	_, err := f.participants.AddParticipant(f.ctx, ch.ID, "carol", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusFull, f.reload(t, ch.ID).Status)

	// the removed user may come back once there is room again
	require.NoError(t, f.participants.RemoveParticipant(f.ctx, ch.ID, "carol"))
	_, err = f.participants.AddParticipant(f.ctx, ch.ID, "bob", nil)
	require.NoError(t, err)
}

func TestParticipantService_Remove_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 3)
	f.join(t, ch.ID, "alice")

	assert.IsType(t, &NotFoundError{}, f.participants.RemoveParticipant(f.ctx, ch.ID, "ghost"))
	assert.IsType(t, &NotFoundError{}, f.participants.RemoveParticipant(f.ctx, "missing", "alice"))

	_, err := f.challenges.Start(f.ctx, ch.ID)
	require.NoError(t, err)
	assert.IsType(t, &BadRequestError{}, f.participants.RemoveParticipant(f.ctx, ch.ID, "alice"))
}

func TestParticipantService_AcceptInvitation(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 3)
	_, err := f.participants.AddParticipant(f.ctx, ch.ID, "bob", ptrString(creatorID))
	require.NoError(t, err)

	p, err := f.participants.AcceptInvitation(f.ctx, ch.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationAccepted, p.Status)
	assert.NotNil(t, p.AcceptedAt)

	_, err = f.participants.AcceptInvitation(f.ctx, ch.ID, "bob")
	assert.IsType(t, &BadRequestError{}, err)

	_, err = f.participants.AcceptInvitation(f.ctx, ch.ID, "ghost")
	assert.IsType(t, &NotFoundError{}, err)
}

func TestParticipantService_UpdateStatus(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 3)
	f.join(t, ch.ID, "alice")

	first := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	freezeClock(t, first)
	p, err := f.participants.UpdateStatus(f.ctx, ch.ID, "alice", models.ParticipationCompleted)
	require.NoError(t, err)
	require.NotNil(t, p.CompletedAt)
	assert.True(t, p.CompletedAt.Equal(first))

	freezeClock(t, first.Add(time.Hour))
	_, err = f.participants.UpdateStatus(f.ctx, ch.ID, "alice", models.ParticipationInProgress)
	require.NoError(t, err)
	p, err = f.participants.UpdateStatus(f.ctx, ch.ID, "alice", models.ParticipationCompleted)
	require.NoError(t, err)
	assert.True(t, p.CompletedAt.Equal(first), "completed_at is set once")

	_, err = f.participants.UpdateStatus(f.ctx, ch.ID, "alice", "napping")
	assert.IsType(t, &BadRequestError{}, err)
}

func TestParticipantService_ForfeitAndDisqualify(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 3)
	f.join(t, ch.ID, "alice", "bob")

	p, err := f.participants.Forfeit(f.ctx, ch.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationForfeit, p.Status)

	at := time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC)
	freezeClock(t, at)
	_, err = f.participants.Disqualify(f.ctx, ch.ID, "bob", "copied answers")
	require.NoError(t, err)

	stored := f.participant(t, ch.ID, "bob")
	assert.Equal(t, models.ParticipationDisqualified, stored.Status)
	assert.Equal(t, "copied answers", stored.Metadata[models.MetaDisqualificationReason])
	assert.Equal(t, at.Format(time.RFC3339), stored.Metadata[models.MetaDisqualifiedAt])
}

func TestParticipantService_UpdateScore(t *testing.T) {
	f := newFixture(t, nil)
	ch := f.challenge(t, 3)
	f.join(t, ch.ID, "alice")

	p, err := f.participants.UpdateScore(f.ctx, ch.ID, "alice", 72.5)
	require.NoError(t, err)
	assert.Equal(t, 72.5, p.Score)

	_, err = f.participants.UpdateScore(f.ctx, ch.ID, "alice", -1)
	assert.IsType(t, &BadRequestError{}, err)

	_, err = f.participants.UpdateScore(f.ctx, ch.ID, "ghost", 10)
	assert.IsType(t, &NotFoundError{}, err)

	_, err = f.challenges.Cancel(f.ctx, ch.ID, creatorID)
	require.NoError(t, err)
	_, err = f.participants.UpdateScore(f.ctx, ch.ID, "alice", 90)
	assert.IsType(t, &BadRequestError{}, err)
	assert.Equal(t, 72.5, f.participant(t, ch.ID, "alice").Score)
}
