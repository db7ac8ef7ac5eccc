package handlers

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdminHandler struct {
	adminService *services.AdminService
	mailService  *services.MailService
}

func NewAdminHandler(adminService *services.AdminService, mailService *services.MailService) *AdminHandler {
	return &AdminHandler{adminService: adminService, mailService: mailService}
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.adminService.Stats()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, limit := features.PageParams(c, 20, 100)
	users, total, err := h.adminService.ListUsers(c.Query("q"), page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ListResponse[models.User]{Items: users, Total: total, Page: page, Limit: limit})
}

func (h *AdminHandler) SetBanned(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}
	var req dto.BanUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.adminService.SetBanned(userID, req.Banned); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"id": userID, "banned": req.Banned})
}

func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.adminService.SetRole(userID, req.Role); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"id": userID, "role": req.Role})
}

func (h *AdminHandler) EmailLogs(c *fiber.Ctx) error {
	page, limit := features.PageParams(c, 50, 200)
	logs, total, err := h.mailService.ListLogs(c.Query("status"), page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ListResponse[models.EmailLog]{Items: logs, Total: total, Page: page, Limit: limit})
}
