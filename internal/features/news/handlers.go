package news

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NewsHandler struct {
	service *NewsService
}

func NewNewsHandler(service *NewsService) *NewsHandler {
	return &NewsHandler{service: service}
}

func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Something went wrong"
	switch {
	case services.IsValidation(err):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, ErrPostNotFound), errors.Is(err, ErrCommentNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, ErrNotAuthor), errors.Is(err, ErrCompanyNotOwned):
		status, message = fiber.StatusForbidden, err.Error()
	default:
		slog.Error("news request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid ID"})
}

func (h *NewsHandler) List(c *fiber.Ctx) error {
	page, limit := features.PageParams(c, 20, 50)
	var viewer *uuid.UUID
	if id, ok := identity.OptionalUserID(c); ok {
		viewer = &id
	}

	posts, total, err := h.service.List(viewer, page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ListResponse[PostView]{Items: posts, Total: total, Page: page, Limit: limit})
}

func (h *NewsHandler) Create(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	post, err := h.service.Create(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *NewsHandler) Delete(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	postID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	if err := h.service.Delete(userID, postID, identity.IsAdmin(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

func (h *NewsHandler) ToggleLike(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	postID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	resp, err := h.service.ToggleLike(userID, postID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}

func (h *NewsHandler) Comments(c *fiber.Ctx) error {
	postID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}
	page, limit := features.PageParams(c, 50, 100)

	comments, total, err := h.service.Comments(postID, page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ListResponse[CommentView]{Items: comments, Total: total, Page: page, Limit: limit})
}

func (h *NewsHandler) AddComment(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	postID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}
	var req CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	comment, err := h.service.AddComment(userID, postID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (h *NewsHandler) DeleteComment(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	commentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	if err := h.service.DeleteComment(userID, commentID, identity.IsAdmin(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}
