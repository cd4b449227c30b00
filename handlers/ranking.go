package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type rewardRequest struct {
	XP      *int64 `json:"xp" validate:"required,min=0"`
	MLCoins *int64 `json:"ml_coins" validate:"required,min=0"`
}

type rewardAllRequest struct {
	BaseXP           *int64   `json:"base_xp" validate:"required,min=0"`
	BaseMLCoins      *int64   `json:"base_ml_coins" validate:"required,min=0"`
	WinnerMultiplier *float64 `json:"winner_multiplier" validate:"omitempty,gt=0"`
}

func (h *Handler) CalculateRankings(c *fiber.Ctx) error {
	ranked, err := h.svc.Rankings.CalculateRankings(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ranked)
}

func (h *Handler) DetermineWinner(c *fiber.Ctx) error {
	winner, err := h.svc.Rankings.DetermineWinner(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(winner)
}

func (h *Handler) ResetWinner(c *fiber.Ctx) error {
	n, err := h.svc.Rankings.ResetWinner(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cleared": n})
}

func (h *Handler) GetLeaderboard(c *fiber.Ctx) error {
	board, err := h.svc.Rankings.GetLeaderboard(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(board)
}

func (h *Handler) DistributeRewards(c *fiber.Ctx) error {
	var req rewardRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Rewards.DistributeRewards(c.UserContext(), c.Params("id"), c.Params("user_id"), *req.XP, *req.MLCoins)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) DistributeRewardsToAll(c *fiber.Ctx) error {
	var req rewardAllRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	multiplier := h.winnerMultiplier
	if req.WinnerMultiplier != nil {
		multiplier = *req.WinnerMultiplier
	}
	ps, err := h.svc.Rewards.DistributeRewardsToAll(c.UserContext(), c.Params("id"), *req.BaseXP, *req.BaseMLCoins, multiplier)
	if err != nil {
		return err
	}
	return c.JSON(ps)
}
