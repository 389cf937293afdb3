package admin

import (
	"rewmo/controllers"
	"rewmo/helpers"
	"rewmo/models"
	"rewmo/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ApproveManyRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
}

type AssignRequest struct {
	MemberID string `json:"member_id" validate:"required,max=128"`
}

func (h *Handler) ListCommissions(c *fiber.Ctx) error {
	filter := services.CommissionFilter{
		MemberID:      c.Query("member_id"),
		Status:        models.CommissionStatus(c.Query("status")),
		Network:       c.Query("network"),
		UnmatchedOnly: c.QueryBool("unmatched"),
		Limit:         c.QueryInt("limit"),
		Offset:        c.QueryInt("offset"),
	}

	items, total, err := h.Ledger.List(c.UserContext(), filter)
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Commissions retrieved successfully", fiber.Map{
		"items": items,
		"total": total,
	})
}

func (h *Handler) Approve(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	commission, err := h.Ledger.Approve(c.UserContext(), id)
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Commission approved", commission)
}

// ApproveMany reports a result per id; one bad id does not stop the rest.
func (h *Handler) ApproveMany(c *fiber.Ctx) error {
	var req ApproveManyRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := controllers.Validate(req); err != nil {
		return helpers.JSONError(c, "IDS_REQUIRED")
	}
	return helpers.JSONSuccess(c, "Approval processed", h.Ledger.ApproveMany(c.UserContext(), req.IDs))
}

func (h *Handler) MarkPaid(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	commission, err := h.Ledger.MarkPaid(c.UserContext(), id)
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Commission marked paid", commission)
}

func (h *Handler) Assign(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := controllers.Validate(req); err != nil {
		return helpers.JSONError(c, "MEMBER_ID_REQUIRED")
	}

	commission, err := h.Ledger.Assign(c.UserContext(), id, req.MemberID)
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Commission assigned", commission)
}

func (h *Handler) MemberBalance(c *fiber.Ctx) error {
	bal, err := h.Ledger.Balance(c.UserContext(), c.Params("id"))
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Balance retrieved successfully", bal)
}

func (h *Handler) RebuildBalance(c *fiber.Ctx) error {
	bal, err := h.Ledger.RebuildBalance(c.UserContext(), c.Params("id"))
	if err != nil {
		return controllers.ServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Balance rebuilt", bal)
}
