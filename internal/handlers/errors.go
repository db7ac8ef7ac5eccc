package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps service errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case services.IsValidation(err),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrPasswordRequired),
		errors.Is(err, services.ErrInvalidResetToken),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidSignature):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrAccountBanned), errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrPlanNotFound),
		errors.Is(err, services.ErrTargetNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrSelfBlock),
		errors.Is(err, services.ErrAlreadyBlocked),
		errors.Is(err, services.ErrAlreadyPromoted):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrCheckoutFailed):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// fail writes err as a dto.ErrorResponse. 5xx details are logged, not sent.
func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	message := err.Error()
	if status >= fiber.StatusInternalServerError && status != fiber.StatusBadGateway {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		message = "Internal server error"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}
