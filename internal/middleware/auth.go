package middleware

import (
	"context"
	"strings"

	"quill/internal/auth"
	"quill/internal/models"
	"quill/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by IdentityRequired.
const (
	LocalIdentity = "identity"
	LocalUserID   = "userID"
	LocalClaims   = "claims"
)

const msgTokenMissing = "Access denied. Token missing or malformed."

// IdentityResolver turns a raw bearer token into the caller's identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, raw string) (models.Identity, *auth.Claims, error)
}

// IdentityRequired is a middleware that enforces authentication for protected routes.
// The resolved identity is stored in c.Locals and in the request context.
func IdentityRequired(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			err := models.NewUnauthorizedError(msgTokenMissing)
			return models.RespondWithError(c, err.Code.Status(), err)
		}

		identity, claims, err := resolver.Resolve(c.UserContext(), raw)
		if err != nil {
			return models.RespondWithError(c, models.KindOf(err).Status(), err)
		}

		setIdentity(c, identity, claims)
		return c.Next()
	}
}

// ResolveIdentity attaches the caller's identity when a valid token is
// present and otherwise lets the request through as anonymous.
func ResolveIdentity(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return c.Next()
		}
		identity, claims, err := resolver.Resolve(c.UserContext(), raw)
		if err == nil {
			setIdentity(c, identity, claims)
		}
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, identity models.Identity, claims *auth.Claims) {
	c.Locals(LocalIdentity, identity)
	c.Locals(LocalUserID, identity.ID)
	c.Locals(LocalClaims, claims)

	ctx := models.WithIdentity(c.UserContext(), identity)
	ctx = context.WithValue(ctx, observability.UserIDKey, identity.ID)
	c.SetUserContext(ctx)
}

// CurrentIdentity returns the identity set by IdentityRequired, or the
// anonymous identity on public routes.
func CurrentIdentity(c *fiber.Ctx) models.Identity {
	if id, ok := c.Locals(LocalIdentity).(models.Identity); ok {
		return id
	}
	return models.Identity{}
}

// CurrentClaims returns the verified token claims, if any.
func CurrentClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(LocalClaims).(*auth.Claims)
	return claims
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
