package handlers

import (
	"challenge-arena/middleware"
	"challenge-arena/models"

	"github.com/gofiber/fiber/v2"
)

// addParticipantRequest: without user_id (or with the caller's own id) the
// caller joins; any other user_id is invited by the caller.
type addParticipantRequest struct {
	UserID string `json:"user_id" validate:"omitempty,max=64"`
}

type participantStatusRequest struct {
	Status string `json:"participation_status" validate:"required,participation_status"`
}

type scoreRequest struct {
	Score *float64 `json:"score" validate:"required,min=0"`
}

type disqualifyRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) AddParticipant(c *fiber.Ctx) error {
	var req addParticipantRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	caller := middleware.UserID(c)
	userID := req.UserID
	var invitedBy *string
	if userID == "" || userID == caller {
		userID = caller
	} else {
		invitedBy = &caller
	}

	p, err := h.svc.Participants.AddParticipant(c.UserContext(), c.Params("id"), userID, invitedBy)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *Handler) ListParticipants(c *fiber.Ctx) error {
	list, err := h.svc.Participants.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (h *Handler) GetParticipant(c *fiber.Ctx) error {
	p, err := h.svc.Participants.Get(c.UserContext(), c.Params("id"), c.Params("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) RemoveParticipant(c *fiber.Ctx) error {
	if err := selfOrStaff(c, c.Params("user_id")); err != nil {
		return err
	}
	if err := h.svc.Participants.RemoveParticipant(c.UserContext(), c.Params("id"), c.Params("user_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) AcceptInvitation(c *fiber.Ctx) error {
	if err := selfOrStaff(c, c.Params("user_id")); err != nil {
		return err
	}
	p, err := h.svc.Participants.AcceptInvitation(c.UserContext(), c.Params("id"), c.Params("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) Forfeit(c *fiber.Ctx) error {
	if err := selfOrStaff(c, c.Params("user_id")); err != nil {
		return err
	}
	p, err := h.svc.Participants.Forfeit(c.UserContext(), c.Params("id"), c.Params("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) Disqualify(c *fiber.Ctx) error {
	var req disqualifyRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Participants.Disqualify(c.UserContext(), c.Params("id"), c.Params("user_id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) UpdateParticipantStatus(c *fiber.Ctx) error {
	var req participantStatusRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Participants.UpdateStatus(c.UserContext(), c.Params("id"), c.Params("user_id"), models.ParticipationStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) UpdateScore(c *fiber.Ctx) error {
	var req scoreRequest
	if err := h.v.bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Participants.UpdateScore(c.UserContext(), c.Params("id"), c.Params("user_id"), *req.Score)
	if err != nil {
		return err
	}
	return c.JSON(p)
}
