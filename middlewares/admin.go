package middlewares

import (
	"strconv"
	"time"

	"rewmo/helpers"

	"github.com/gofiber/fiber/v2"
)

const adminSignatureSkew = 5 * time.Minute

// AdminAuth checks X-Admin-Code, X-Timestamp and X-Signature, where the
// signature is HMAC(secret, code + timestamp + body).
func AdminAuth(code, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		gotCode := c.Get("X-Admin-Code")
		ts := c.Get("X-Timestamp")
		sig := c.Get("X-Signature")

		if gotCode == "" || ts == "" || sig == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "ADMIN_SIGNATURE_REQUIRED", nil)
		}
		if gotCode != code {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_ADMIN_CREDENTIALS", nil)
		}

		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_TIMESTAMP", nil)
		}
		if skew := time.Since(time.Unix(unix, 0)); skew > adminSignatureSkew || skew < -adminSignatureSkew {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "SIGNATURE_EXPIRED", nil)
		}

		if !validSignature(secret, sig, gotCode, ts, string(c.Body())) {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_SIGNATURE", nil)
		}

		c.Locals("admin", gotCode)
		return c.Next()
	}
}
