package middlewares

import (
	"strings"

	"rewmo/helpers"

	"github.com/gofiber/fiber/v2"
)

// MemberAuth trusts the member id forwarded by the session gateway when it
// is signed with the shared gateway secret.
func MemberAuth(gatewaySecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		memberID := strings.TrimSpace(c.Get("X-Member-ID"))
		sig := c.Get("X-Gateway-Signature")

		if memberID == "" || sig == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "MEMBER_SESSION_REQUIRED", nil)
		}
		if !validSignature(gatewaySecret, sig, memberID) {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_MEMBER_SESSION", nil)
		}

		c.Locals("member_id", memberID)
		return c.Next()
	}
}

func MemberID(c *fiber.Ctx) string {
	id, _ := c.Locals("member_id").(string)
	return id
}
