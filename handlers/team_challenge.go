package handlers

import (
	"challenge-arena/middleware"
	"challenge-arena/services"

	"github.com/gofiber/fiber/v2"
)

type assignTeamChallengeRequest struct {
	TeamID      string   `json:"team_id" validate:"required,max=64"`
	ChallengeID string   `json:"challenge_id" validate:"required,max=64"`
	Title       string   `json:"title" validate:"max=200"`
	MaxScore    *float64 `json:"max_score" validate:"omitempty,gt=0"`
}

type completeTeamChallengeRequest struct {
	Score *float64 `json:"score" validate:"omitempty,min=0"`
}

type failTeamChallengeRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) AssignTeamChallenge(c *fiber.Ctx) error {
	var req assignTeamChallengeRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	tc, err := h.svc.Teams.Assign(c.UserContext(), services.AssignTeamChallengeInput{
		TeamID:      req.TeamID,
		ChallengeID: req.ChallengeID,
		Title:       req.Title,
		MaxScore:    req.MaxScore,
		AssignedBy:  middleware.UserID(c),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tc)
}

func (h *Handler) GetTeamChallenge(c *fiber.Ctx) error {
	tc, err := h.svc.Teams.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(tc)
}

func (h *Handler) ListTeamChallenges(c *fiber.Ctx) error {
	list, err := h.svc.Teams.ListForTeam(c.UserContext(), c.Params("team_id"))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (h *Handler) StartTeamChallenge(c *fiber.Ctx) error {
	tc, err := h.svc.Teams.Start(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(tc)
}

func (h *Handler) RecordTeamScore(c *fiber.Ctx) error {
	var req scoreRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	tc, err := h.svc.Teams.RecordScore(c.UserContext(), c.Params("id"), *req.Score)
	if err != nil {
		return err
	}
	return c.JSON(tc)
}

func (h *Handler) CompleteTeamChallenge(c *fiber.Ctx) error {
	var req completeTeamChallengeRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	tc, err := h.svc.Teams.Complete(c.UserContext(), c.Params("id"), req.Score)
	if err != nil {
		return err
	}
	return c.JSON(tc)
}

func (h *Handler) FailTeamChallenge(c *fiber.Ctx) error {
	var req failTeamChallengeRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	tc, err := h.svc.Teams.Fail(c.UserContext(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(tc)
}

func (h *Handler) CancelTeamChallenge(c *fiber.Ctx) error {
	tc, err := h.svc.Teams.Cancel(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(tc)
}

func (h *Handler) GetTeamLeaderboard(c *fiber.Ctx) error {
	board, err := h.svc.Teams.GetLeaderboard(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(board)
}
