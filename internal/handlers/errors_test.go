package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.Invalid("bad input"), fiber.StatusBadRequest},
		{services.ErrInvalidResetToken, fiber.StatusBadRequest},
		{services.ErrInvalidSignature, fiber.StatusBadRequest},
		{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{services.ErrAccountBanned, fiber.StatusForbidden},
		{fmt.Errorf("wrapped: %w", services.ErrForbidden), fiber.StatusForbidden},
		{services.ErrTargetNotFound, fiber.StatusNotFound},
		{services.ErrAlreadyBlocked, fiber.StatusConflict},
		{services.ErrAlreadyPromoted, fiber.StatusConflict},
		{services.ErrCheckoutFailed, fiber.StatusBadGateway},
		{errors.New("db on fire"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestFailHidesInternalErrors(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error { return fail(c, errors.New("connection refused on 10.0.0.5")) })
	app.Get("/taken", func(c *fiber.Ctx) error { return fail(c, services.ErrEmailTaken) })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Error)
	assert.Equal(t, "Internal server error", body.Message)

	resp, err = app.Test(httptest.NewRequest("GET", "/taken", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, services.ErrEmailTaken.Error(), body.Message)
}
