package middleware

import (
	"slices"
	"strings"

	contextutil "github.com/Larry-Schultz/FFTBViewerV3/internal/context"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ADMIN_ROLE     = "admin"
	RELAY_ROLE     = "relay"
	ActorLocalKey  = "actor"
	anonymousAdmin = "anonymous"
)

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAdmin guards operator endpoints with an HS256 bearer token signed
// with ADMIN_JWT_SECRET. When no secret is configured the guard is open.
func (m *Middleware) RequireAdmin() fiber.Handler {
	return m.RequireRole(ADMIN_ROLE)
}

// RequireRole accepts a token whose role claim is one of roles.
func (m *Middleware) RequireRole(roles ...string) fiber.Handler {
	secret := []byte(m.Config.AdminJWTSecret)

	return func(c *fiber.Ctx) error {
		log := m.log.TraceFromContext(c.UserContext()).Function("RequireRole")

		if len(secret) == 0 {
			c.Locals(ActorLocalKey, anonymousAdmin)
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			log.Info("missing or malformed authorization header")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Authorization required",
			})
		}

		claims := &AdminClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid {
			log.Info("token validation failed", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid token",
			})
		}

		if !slices.Contains(roles, claims.Role) {
			log.Info("token role not permitted", "subject", claims.Subject, "role", claims.Role)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  "error",
				"message": "Insufficient role",
			})
		}

		actor := claims.Subject
		if actor == "" {
			actor = claims.Role
		}
		c.Locals(ActorLocalKey, actor)
		c.SetUserContext(contextutil.WithActor(c.UserContext(), actor))

		return c.Next()
	}
}

func GetActor(c *fiber.Ctx) string {
	if actor, ok := c.Locals(ActorLocalKey).(string); ok {
		return actor
	}
	return ""
}
