package handlers

import (
	"time"

	"challenge-arena/middleware"
	"challenge-arena/models"
	"challenge-arena/services"

	"github.com/gofiber/fiber/v2"
)

type createChallengeRequest struct {
	Title           string     `json:"title" validate:"required,max=200"`
	Description     string     `json:"description" validate:"max=2000"`
	ChallengeType   string     `json:"challenge_type" validate:"required,challenge_type"`
	MaxParticipants int        `json:"max_participants" validate:"omitempty,min=1,max=1000"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
}

type updateChallengeRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string    `json:"description" validate:"omitempty,max=2000"`
	MaxParticipants *int       `json:"max_participants" validate:"omitempty,min=1,max=1000"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
}

func (h *Handler) CreateChallenge(c *fiber.Ctx) error {
	var req createChallengeRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	ch, err := h.svc.Challenges.Create(c.UserContext(), services.CreateChallengeInput{
		Title:           req.Title,
		Description:     req.Description,
		ChallengeType:   models.ChallengeType(req.ChallengeType),
		MaxParticipants: req.MaxParticipants,
		CreatedBy:       middleware.UserID(c),
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ch)
}

func (h *Handler) ListChallenges(c *fiber.Ctx) error {
	list, err := h.svc.Challenges.List(c.UserContext(), services.ChallengeFilter{
		Status:        models.ChallengeStatus(c.Query("status")),
		ChallengeType: models.ChallengeType(c.Query("type")),
		CreatedBy:     c.Query("created_by"),
		Limit:         c.QueryInt("limit", 20),
		Offset:        c.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (h *Handler) GetChallenge(c *fiber.Ctx) error {
	ch, err := h.svc.Challenges.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ch)
}

func (h *Handler) UpdateChallenge(c *fiber.Ctx) error {
	var req updateChallengeRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	ch, err := h.svc.Challenges.Update(c.UserContext(), c.Params("id"), middleware.UserID(c), services.ChallengeUpdate{
		Title:           req.Title,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	})
	if err != nil {
		return err
	}
	return c.JSON(ch)
}

func (h *Handler) DeleteChallenge(c *fiber.Ctx) error {
	if err := h.svc.Challenges.Delete(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) StartChallenge(c *fiber.Ctx) error {
	ch, err := h.svc.Challenges.Start(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ch)
}

func (h *Handler) CompleteChallenge(c *fiber.Ctx) error {
	ch, err := h.svc.Challenges.Complete(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ch)
}

func (h *Handler) CancelChallenge(c *fiber.Ctx) error {
	ch, err := h.svc.Challenges.Cancel(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(ch)
}

// ExpireChallenges runs the expiry sweep on demand.
func (h *Handler) ExpireChallenges(c *fiber.Ctx) error {
	n, err := h.svc.Challenges.MarkExpired(c.UserContext(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"expired": n})
}
