package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whoami(c *fiber.Ctx) error {
	id, ok := identity.OptionalUserID(c)
	if !ok {
		return c.SendString("anonymous")
	}
	return c.SendString(id.String())
}

func body(t *testing.T, app *fiber.App, path string, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	buf := make([]byte, 256)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestJWTProtected(t *testing.T) {
	cfg := testutil.Config()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "jwt@example.com")
	token := testutil.Token(t, cfg, user)

	app := fiber.New()
	app.Get("/me", JWTProtected(cfg), whoami)

	status, _ := body(t, app, "/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, got := body(t, app, "/me", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, user.ID.String(), got)

	status, got = body(t, app, "/me", map[string]string{"Cookie": "access_token=" + token})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, user.ID.String(), got)

	status, _ = body(t, app, "/me", map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestOptionalJWT(t *testing.T) {
	cfg := testutil.Config()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "optional@example.com")

	app := fiber.New()
	app.Get("/feed", OptionalJWT(cfg), whoami)

	_, got := body(t, app, "/feed", nil)
	assert.Equal(t, "anonymous", got)

	_, got = body(t, app, "/feed", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, "anonymous", got)

	_, got = body(t, app, "/feed", map[string]string{"Authorization": "Bearer " + testutil.Token(t, cfg, user)})
	assert.Equal(t, user.ID.String(), got)
}

func TestAdminRequired(t *testing.T) {
	cfg := testutil.Config()
	cfg.AdminEmails = "Boss@Example.com, other@example.com"
	db := testutil.NewDB(t)

	regular := testutil.CreateUser(t, db, "regular@example.com")
	listed := testutil.CreateUser(t, db, "boss@example.com")
	roleAdmin := testutil.CreateUser(t, db, "role@example.com")
	require.NoError(t, db.Model(roleAdmin).Update("role", models.RoleAdmin).Error)
	bannedAdmin := testutil.CreateUser(t, db, "banned@example.com")
	require.NoError(t, db.Model(bannedAdmin).Updates(map[string]interface{}{"role": models.RoleAdmin, "banned": true}).Error)

	app := fiber.New()
	app.Get("/admin", JWTProtected(cfg), AdminRequired(db, cfg), func(c *fiber.Ctx) error {
		assert.True(t, identity.IsAdmin(c))
		return c.SendString("ok")
	})

	cases := map[*models.User]int{
		regular:     fiber.StatusForbidden,
		listed:      fiber.StatusOK,
		roleAdmin:   fiber.StatusOK,
		bannedAdmin: fiber.StatusForbidden,
	}
	for user, want := range cases {
		status, _ := body(t, app, "/admin", map[string]string{"Authorization": "Bearer " + testutil.Token(t, cfg, user)})
		assert.Equal(t, want, status, user.Email)
	}
}
