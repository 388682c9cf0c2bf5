package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

// RequireRole ensures the actor has one of the allowed roles. Unknown roles are
// evaluated as collaborators.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[actor.EffectiveRole()]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireActor ensures the caller is authenticated.
func RequireActor() fiber.Handler {
	return RequireRole()
}
