package callback

import (
	"log"

	"rewmo/controllers"
	"rewmo/helpers"
	"rewmo/models"
	"rewmo/services"

	"github.com/gofiber/fiber/v2"
)

type PostbackRequest struct {
	TrackingID models.FlexibleString `json:"tracking_id"`
	OrderID    models.FlexibleString `json:"order_id" validate:"required"`
	Earnings   models.FlexibleString `json:"earnings" validate:"required"`
	Date       models.FlexibleString `json:"date"`
}

type Handler struct {
	Importer *services.Importer
}

// Postback records a single conversion pushed by a network. Anything the
// ledger has settled, including duplicates and unparseable rows, is
// acknowledged with 200; only storage failures ask the network to retry.
func (h *Handler) Postback(c *fiber.Ctx) error {
	network := c.Params("network")

	var req PostbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "rejected", "msg": "INVALID_JSON"})
	}
	if err := controllers.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "rejected", "msg": "ORDER_AND_EARNINGS_REQUIRED"})
	}

	summary := h.Importer.CommitRows(c.UserContext(), network, nil, models.SourcePostback, []services.FeedRow{{
		TrackingID: req.TrackingID,
		OrderID:    req.OrderID,
		Earnings:   req.Earnings,
		Date:       req.Date,
	}})
	row := summary.Rows[0]

	if row.Retryable {
		log.Printf("❌ postback %s order %s: %s", network, row.OrderID, row.Message)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": string(row.Outcome), "msg": "RETRY"})
	}

	log.Printf("📥 postback %s order %s: %s", network, row.OrderID, row.Outcome)
	return helpers.PostbackAck(c, string(row.Outcome), row)
}
