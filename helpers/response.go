package helpers

import (
	"github.com/gofiber/fiber/v2"
)

func JSONSuccess(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONError(c *fiber.Ctx, message string) error {
	return JSONErrorStatus(c, fiber.StatusBadRequest, message, nil)
}

func JSONErrorStatus(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
		"data":    data,
	})
}

// PostbackAck always answers 200 so networks stop retrying a delivery the
// ledger has already accepted or deliberately ignored.
func PostbackAck(c *fiber.Ctx, status string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": status,
		"data":   data,
	})
}
