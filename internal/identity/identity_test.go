package identity

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParseAccessToken(t *testing.T) {
	id := uuid.New()
	raw, err := SignAccessToken("secret", time.Minute, id, "a@b.c", "user")
	require.NoError(t, err)

	got, err := ParseAccessToken("secret", raw)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseAccessToken("other", raw)
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	raw, err := SignAccessToken("secret", -time.Minute, uuid.New(), "a@b.c", "user")
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", raw)
	assert.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	id := uuid.New()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		c.Locals(ContextKey, &jwt.Token{Claims: jwt.MapClaims{"sub": id.String(), "email": "x@y.z", "role": "admin"}})
		got, err := GetUserID(c)
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.Equal(t, "x@y.z", GetEmail(c))
		assert.True(t, IsAdmin(c))
		return c.SendString("ok")
	})
	app.Get("/anon", func(c *fiber.Ctx) error {
		_, ok := OptionalUserID(c)
		assert.False(t, ok)
		assert.Equal(t, "", GetRole(c))
		return c.SendString("ok")
	})

	for _, path := range []string{"/", "/anon"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "ok", string(body))
	}
}
