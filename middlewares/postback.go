package middlewares

import (
	"github.com/gofiber/fiber/v2"
)

// PostbackAuth verifies X-Postback-Signature = HMAC(secret, network + body).
func PostbackAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sig := c.Get("X-Postback-Signature")
		if !validSignature(secret, sig, c.Params("network"), string(c.Body())) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status": "rejected",
				"msg":    "INVALID_SIGNATURE",
			})
		}
		return c.Next()
	}
}
