package middleware

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

func jwtConfig(cfg *config.Config) jwtware.Config {
	return jwtware.Config{
		SigningKey:  jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ContextKey:  identity.ContextKey,
		TokenLookup: "header:Authorization,cookie:" + cfg.AuthCookieName,
		AuthScheme:  "Bearer",
	}
}

// JWTProtected accepts a bearer token or the auth cookie.
func JWTProtected(cfg *config.Config) fiber.Handler {
	conf := jwtConfig(cfg)
	conf.ErrorHandler = func(c *fiber.Ctx, err error) error {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Unauthorized: invalid or expired token",
		})
	}
	return jwtware.New(conf)
}

// OptionalJWT reads a token when present and lets anonymous or invalid
// callers through without an identity.
func OptionalJWT(cfg *config.Config) fiber.Handler {
	conf := jwtConfig(cfg)
	conf.Filter = func(c *fiber.Ctx) bool {
		return c.Get(fiber.HeaderAuthorization) == "" && c.Cookies(cfg.AuthCookieName) == ""
	}
	conf.ErrorHandler = func(c *fiber.Ctx, err error) error {
		c.Locals(identity.ContextKey, nil)
		return c.Next()
	}
	return jwtware.New(conf)
}
