package auth

import (
	"github.com/gofiber/fiber/v2"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	authenticator *Authenticator
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authenticator *Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Handle enforces authentication for protected routes. Handlers behind it never
// run for an unauthenticated request.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.authenticator.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
