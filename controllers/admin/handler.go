package admin

import (
	"rewmo/helpers"
	"rewmo/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handler struct {
	Ledger   *services.Ledger
	Importer *services.Importer
	Payouts  *services.PayoutProcessor
	Feeds    *services.FeedClient
}

func paramID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func invalidID(c *fiber.Ctx) error {
	return helpers.JSONError(c, "INVALID_ID")
}
