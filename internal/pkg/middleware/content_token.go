package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/quizdeck/quizdeck/internal/pkg/env"
	"github.com/quizdeck/quizdeck/internal/pkg/security"
	"github.com/quizdeck/quizdeck/internal/pkg/usercontext"
)

// ContentTokenAuthMiddleware authenticates content delivery requests with the
// short-lived access token minted by the access check. The token must match
// the question set named in the route, so a token for one set cannot fetch
// another.
func ContentTokenAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractContentToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing access token"})
		}

		secret := env.GetEnv("CONTENT_TOKEN_SECRET", "")
		if secret == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_unavailable", "message": "Content tokens are not configured"})
		}

		claims, err := security.VerifyAccessToken(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid or expired access token"})
		}

		setID, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid question set id"})
		}
		if claims.QuestionSetID != uint(setID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Token does not cover this question set"})
		}

		c.Locals(usercontext.KeyContentTokenClaims, claims)
		return c.Next()
	}
}

func extractContentToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Get("X-Access-Token")); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query("token"))
}
