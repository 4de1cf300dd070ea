package middleware

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/jortega/karaokejam/internal/infra/appctx"
)

// IdentityClaims is what the identity provider signs: a registered claim set
// plus the display name shown next to queued songs.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// IdentityMiddleware extracts the provider-supplied display name from the
// jwt cookie, when present and valid, and stores it in the request context.
// It never rejects: whether an identity is required is decided per endpoint
// (the websocket attach flow closes unauthenticated remotes itself).
func IdentityMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}

			cookie, err := c.Cookie("jwt")
			if err != nil {
				return next(c)
			}

			token, err := jwt.ParseWithClaims(cookie.Value, &IdentityClaims{}, func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			})
			if err != nil {
				return next(c)
			}

			claims, ok := token.Claims.(*IdentityClaims)
			if !ok || !token.Valid || claims.Name == "" {
				return next(c)
			}

			c.SetRequest(
				c.Request().WithContext(
					appctx.WithUserName(c.Request().Context(), claims.Name),
				),
			)

			return next(c)
		}
	}
}
