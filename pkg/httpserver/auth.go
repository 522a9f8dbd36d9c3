package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/DmitryPogrebniuk/qms-sub001/pkg/api"
	"github.com/labstack/echo/v4"
)

const claimsContextKey = "qms/claims"

// TokenVerifier is the external collaborator that checks a bearer token's
// signature and yields its claims. The middleware below trusts whatever a
// verifier returns; it never inspects the token itself.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*api.Claims, error)
}

// Authentication extracts the bearer credential, runs it through the
// verifier, and stores the resulting claims on the request context. Requests
// without a valid token are rejected with 401 before any handler runs.
func Authentication(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			authHeader := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			claims, err := verifier.Verify(ctx.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx.Set(claimsContextKey, claims)
			return next(ctx)
		}
	}
}

func AuthorizeHandler(h echo.HandlerFunc, minRole api.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := RequireMinRole(ctx, minRole); err != nil {
			return err
		}

		return h(ctx)
	}
}

func RequireMinRole(ctx echo.Context, minRole api.Role) error {
	claims := GetClaims(ctx)
	if claims == nil || !api.HasAccess(claims.MaxRole(), minRole) {
		return echo.NewHTTPError(http.StatusForbidden, "missing required permission")
	}

	return nil
}

// GetClaims returns the claims stored by the Authentication middleware, or
// nil when the request never passed through it.
func GetClaims(ctx echo.Context) *api.Claims {
	claims, ok := ctx.Get(claimsContextKey).(*api.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetUser returns the acting principal's name for audit trails.
func GetUser(ctx echo.Context) string {
	claims := GetClaims(ctx)
	if claims == nil {
		return ""
	}
	if claims.PreferredUsername != "" {
		return claims.PreferredUsername
	}
	return claims.Subject
}
