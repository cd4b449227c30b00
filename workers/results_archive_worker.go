// workers/results_archive_worker.go
package workers

import (
	"context"
	"fmt"
	"time"

	"challenge-arena/logger"
	"challenge-arena/models"
	"challenge-arena/services"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Uploader stores a JSON document and returns where it ended up.
type Uploader interface {
	UploadJSON(ctx context.Context, key string, v any) (string, error)
}

// Standings is the archived snapshot of a completed challenge.
type Standings struct {
	Challenge   models.Challenge          `json:"challenge"`
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	ArchivedAt  time.Time                 `json:"archived_at"`
}

type ResultsArchiveWorker struct {
	db        *gorm.DB
	rankings  *services.RankingService
	uploader  Uploader
	interval  time.Duration
	batchSize int
	log       logger.Logger
}

func NewResultsArchiveWorker(db *gorm.DB, rankings *services.RankingService, uploader Uploader, interval time.Duration, log logger.Logger) *ResultsArchiveWorker {
	return &ResultsArchiveWorker{
		db:        db,
		rankings:  rankings,
		uploader:  uploader,
		interval:  interval,
		batchSize: 20,
		log:       log,
	}
}

func (w *ResultsArchiveWorker) Start(ctx context.Context) {
	w.log.Info("🔁 Starting Results Archive Worker (completed challenges → R2)…")
	go w.run(ctx)
}

func (w *ResultsArchiveWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.ArchiveBatch(ctx); err != nil {
				w.log.Error("[ARCHIVE] ❌ batch failed", err)
			}
		case <-ctx.Done():
			w.log.Info("⏹️ Results Archive Worker stopped")
			return
		}
	}
}

func archiveKey(challengeID string) string {
	return fmt.Sprintf("challenges/%s/standings.json", challengeID)
}

// ArchiveBatch uploads standings for completed challenges that have not been
// archived yet and returns how many were archived. One failing challenge
// does not stop the rest of the batch.
func (w *ResultsArchiveWorker) ArchiveBatch(ctx context.Context) (int, error) {
	var pending []models.Challenge
	err := w.db.WithContext(ctx).
		Where("status = ? AND archived_at IS NULL", models.ChallengeStatusCompleted).
		Order("completed_at ASC").
		Limit(w.batchSize).
		Find(&pending).Error
	if err != nil {
		return 0, errors.Wrap(err, "loading completed challenges")
	}

	archived := 0
	for _, ch := range pending {
		board, err := w.rankings.GetLeaderboard(ctx, ch.ID)
		if err != nil {
			w.log.Warn("[ARCHIVE] ⚠️ leaderboard failed", ch.ID, err)
			continue
		}

		now := time.Now().UTC()
		key := archiveKey(ch.ID)
		if _, err := w.uploader.UploadJSON(ctx, key, Standings{Challenge: ch, Leaderboard: board, ArchivedAt: now}); err != nil {
			w.log.Warn("[ARCHIVE] ⚠️ upload failed", ch.ID, err)
			continue
		}

		if err := w.db.WithContext(ctx).Model(&models.Challenge{}).
			Where("id = ?", ch.ID).
			Updates(map[string]interface{}{"archived_at": now, "archive_key": key}).Error; err != nil {
			w.log.Warn("[ARCHIVE] ⚠️ failed to mark archived", ch.ID, err)
			continue
		}
		archived++
	}

	if archived > 0 {
		w.log.Info("[ARCHIVE] ✅ archived challenges", archived)
	}
	return archived, nil
}
