package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newDryRunPostgres builds statements with the postgres dialect without
// connecting, and records every SELECT it would have sent.
func newDryRunPostgres(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=arena dbname=arena sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	var statements []string
	err = db.Callback().Query().After("gorm:query").Register("test:capture_sql", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	})
	require.NoError(t, err)
	return db, &statements
}

func TestFindChallenge_LocksRowForUpdate(t *testing.T) {
	db, statements := newDryRunPostgres(t)

	_, err := findChallenge(db, "c1", true)
	require.NoError(t, err)
	_, err = findChallenge(db, "c1", false)
	require.NoError(t, err)

	require.Len(t, *statements, 2)
	assert.Contains(t, (*statements)[0], "FOR UPDATE")
	assert.NotContains(t, (*statements)[1], "FOR UPDATE")
}

func TestFindParticipant_LocksRowForUpdate(t *testing.T) {
	db, statements := newDryRunPostgres(t)

	_, err := findParticipant(db, "c1", "alice", true)
	require.NoError(t, err)

	require.Len(t, *statements, 1)
	assert.Contains(t, (*statements)[0], "FOR UPDATE")
}

func TestStandingOrder_PutsUnfinishedLast(t *testing.T) {
	db, statements := newDryRunPostgres(t)

	var ps []struct{ UserID string }
	require.NoError(t, db.Table("challenge_participants").Order(standingOrder("user_id")).Find(&ps).Error)

	require.Len(t, *statements, 1)
	assert.Contains(t, (*statements)[0], "ORDER BY score DESC, completed_at ASC NULLS LAST, user_id ASC")
}
