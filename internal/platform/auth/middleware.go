package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Claims are the JWT claims issued for staff users. Subject is the staff
// user id.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
}

// JWTMiddleware authenticates bearer tokens and places the caller Identity
// on the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"HS256"}),
			}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.Secret, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			ctx := WithIdentity(c.Request().Context(), Identity{UserID: userID, Roles: claims.Roles})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware grants every request an admin identity. Development
// only; config validation refuses to start production without a secret.
func DevAuthMiddleware() echo.MiddlewareFunc {
	devUser := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithIdentity(c.Request().Context(), Identity{
				UserID: devUser,
				Roles:  []string{RoleAdmin},
			})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
