package messaging

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessagingHandler struct {
	service *MessagingService
}

func NewMessagingHandler(service *MessagingService) *MessagingHandler {
	return &MessagingHandler{service: service}
}

func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Something went wrong"
	switch {
	case services.IsValidation(err), errors.Is(err, ErrSelfMessage):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, ErrRecipientNotFound), errors.Is(err, ErrAdNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrBlocked):
		status, message = fiber.StatusForbidden, err.Error()
	default:
		slog.Error("messaging request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func (h *MessagingHandler) Start(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req StartConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	conv, created, err := h.service.Start(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(conv)
	}
	return c.JSON(conv)
}

func (h *MessagingHandler) List(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	convs, err := h.service.List(userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"conversations": convs})
}

func (h *MessagingHandler) Messages(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid conversation ID")
	}

	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageSize)))
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return badRequest(c, "before must be an RFC 3339 timestamp")
		}
		before = &ts
	}

	messages, err := h.service.Messages(userID, convID, before, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

func (h *MessagingHandler) Send(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid conversation ID")
	}
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.service.Send(c.UserContext(), userID, convID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *MessagingHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	convID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid conversation ID")
	}

	receipt, err := h.service.MarkRead(c.UserContext(), userID, convID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(receipt)
}
