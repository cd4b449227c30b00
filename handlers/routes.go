package handlers

import (
	"challenge-arena/middleware"
	"challenge-arena/services"

	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Challenges   *services.ChallengeService
	Participants *services.ParticipantService
	Rankings     *services.RankingService
	Rewards      *services.RewardService
	Teams        *services.TeamChallengeService
	Progression  *services.ProgressionService
}

type Handler struct {
	svc              Services
	v                *Validator
	winnerMultiplier float64
}

func NewHandler(svc Services, winnerMultiplier float64) *Handler {
	if winnerMultiplier <= 0 {
		winnerMultiplier = services.DefaultWinnerMultiplier
	}
	return &Handler{svc: svc, v: NewValidator(), winnerMultiplier: winnerMultiplier}
}

// StaffRoles may run challenges, score them and pay out rewards.
var StaffRoles = []string{"admin", "instructor"}

func SetupRoutes(app *fiber.App, h *Handler) {
	// 🔐 Every route needs the caller identity forwarded by the Gateway
	secured := app.Group("/", middleware.UserContextMiddleware())
	staff := middleware.RequireRole(StaffRoles...)

	// Challenge lifecycle (update, delete and cancel check the creator)
	secured.Post("/challenges", h.CreateChallenge)
	secured.Get("/challenges", h.ListChallenges)
	secured.Get("/challenges/:id", h.GetChallenge)
	secured.Put("/challenges/:id", h.UpdateChallenge)
	secured.Delete("/challenges/:id", h.DeleteChallenge)
	secured.Post("/challenges/:id/start", staff, h.StartChallenge)
	secured.Post("/challenges/:id/complete", staff, h.CompleteChallenge)
	secured.Post("/challenges/:id/cancel", h.CancelChallenge)

	// Enrollment
	secured.Get("/challenges/:id/participants", h.ListParticipants)
	secured.Post("/challenges/:id/participants", h.AddParticipant)
	secured.Get("/challenges/:id/participants/:user_id", h.GetParticipant)
	secured.Delete("/challenges/:id/participants/:user_id", h.RemoveParticipant)
	secured.Post("/challenges/:id/participants/:user_id/accept", h.AcceptInvitation)
	secured.Post("/challenges/:id/participants/:user_id/forfeit", h.Forfeit)
	secured.Post("/challenges/:id/participants/:user_id/disqualify", staff, h.Disqualify)
	secured.Patch("/challenges/:id/participants/:user_id/status", staff, h.UpdateParticipantStatus)
	secured.Patch("/challenges/:id/participants/:user_id/score", staff, h.UpdateScore)

	// Ranking & rewards
	secured.Post("/challenges/:id/rankings", staff, h.CalculateRankings)
	secured.Post("/challenges/:id/winner", staff, h.DetermineWinner)
	secured.Delete("/challenges/:id/winner", staff, h.ResetWinner)
	secured.Get("/challenges/:id/leaderboard", h.GetLeaderboard)
	secured.Post("/challenges/:id/rewards", staff, h.DistributeRewardsToAll)
	secured.Put("/challenges/:id/participants/:user_id/rewards", staff, h.DistributeRewards)

	// Team challenges (cancel checks the assigner)
	secured.Post("/team-challenges", staff, h.AssignTeamChallenge)
	secured.Get("/team-challenges/:id", h.GetTeamChallenge)
	secured.Get("/teams/:team_id/challenges", h.ListTeamChallenges)
	secured.Post("/team-challenges/:id/start", staff, h.StartTeamChallenge)
	secured.Post("/team-challenges/:id/score", staff, h.RecordTeamScore)
	secured.Post("/team-challenges/:id/complete", staff, h.CompleteTeamChallenge)
	secured.Post("/team-challenges/:id/fail", staff, h.FailTeamChallenge)
	secured.Post("/team-challenges/:id/cancel", h.CancelTeamChallenge)
	secured.Get("/challenges/:id/team-leaderboard", h.GetTeamLeaderboard)

	// Progression
	secured.Get("/users/me/progress", h.GetMyProgress)
	secured.Get("/users/:user_id/progress", h.GetUserProgress)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/challenges/expire", h.ExpireChallenges)
}

// selfOrStaff allows acting on a participant only as that participant or as staff.
func selfOrStaff(c *fiber.Ctx, userID string) error {
	if middleware.UserID(c) == userID || middleware.HasRole(c, StaffRoles...) {
		return nil
	}
	return &services.ForbiddenError{Msg: "cannot act on another participant's enrollment"}
}
