package admin

import (
	"rewmo/controllers"
	"rewmo/helpers"
	"rewmo/services"

	"github.com/gofiber/fiber/v2"
)

type PayoutRequest struct {
	MemberID  string `json:"member_id" validate:"required,max=128"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required"`
	Reference string `json:"reference" validate:"max=128"`
	Notes     string `json:"notes" validate:"max=255"`
}

func (h *Handler) CreatePayout(c *fiber.Ctx) error {
	var req PayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := controllers.Validate(req); err != nil {
		return helpers.JSONError(c, "MEMBER_AMOUNT_AND_METHOD_REQUIRED")
	}

	payout, err := h.Payouts.Payout(c.UserContext(), services.PayoutInput{
		MemberID:  req.MemberID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
	})
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Payout created", payout)
}

func (h *Handler) MemberPayouts(c *fiber.Ctx) error {
	payouts, err := h.Payouts.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Payouts retrieved successfully", payouts)
}
