package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"challenge-arena/config"
	"challenge-arena/handlers"
	"challenge-arena/logger"
	"challenge-arena/middleware"
	"challenge-arena/models"
	"challenge-arena/services"
	"challenge-arena/utils"
	"challenge-arena/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()

	appLog := logger.NewRollbarLogger(log.New(os.Stdout, "", log.LstdFlags), cfg.RollbarToken, cfg.Env)
	defer appLog.Close()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	if cfg.ServiceToken == "" {
		log.Fatal("❌ CHALLENGE_SERVICE_TOKEN is not set, service cannot authenticate Gateway")
	}

	gormLogLevel := gormlogger.Warn
	if cfg.Env == "DEV" {
		gormLogLevel = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Leaderboard cache is optional; without redis every read hits postgres.
	var cache services.LeaderboardCache
	if cfg.RedisURL != "" {
		client, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to connect to redis:", err)
		}
		defer client.Close()
		cache = services.NewRedisLeaderboardCache(client, cfg.LeaderboardTTL, appLog)
		log.Println("✅ Leaderboard cache enabled")
	}

	challengeService := services.NewChallengeService(db, appLog, cache)
	participantService := services.NewParticipantService(db, appLog, cache)
	rankingService := services.NewRankingService(db, appLog, cache)
	rewardService := services.NewRewardService(db, appLog, cache)
	teamService := services.NewTeamChallengeService(db, appLog)
	progressionService := services.NewProgressionService(db)

	if cfg.ExpirySweepInterval > 0 {
		if _, err := challengeService.StartExpiryScheduler(ctx, cfg.ExpirySweepInterval); err != nil {
			log.Fatal("failed to start expiry scheduler:", err)
		}
		log.Printf("✅ Expiry sweep running (every %s)", cfg.ExpirySweepInterval)
	}

	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Client(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		workers.NewResultsArchiveWorker(db, rankingService, r2, cfg.ArchiveInterval, appLog).Start(ctx)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(appLog),
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, appLog))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	handlers.SetupRoutes(app, handlers.NewHandler(handlers.Services{
		Challenges:   challengeService,
		Participants: participantService,
		Rankings:     rankingService,
		Rewards:      rewardService,
		Teams:        teamService,
		Progression:  progressionService,
	}, cfg.DefaultWinnerMultiplier))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Println("✅ GatewayAuthMiddleware enforced globally: all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
