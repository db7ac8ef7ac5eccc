package companies

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CompanyHandler struct {
	service *CompanyService
}

func NewCompanyHandler(service *CompanyService) *CompanyHandler {
	return &CompanyHandler{service: service}
}

func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Something went wrong"
	switch {
	case services.IsValidation(err):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, ErrCompanyNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, ErrNotOwner):
		status, message = fiber.StatusForbidden, err.Error()
	default:
		slog.Error("companies request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid company ID"})
}

func (h *CompanyHandler) List(c *fiber.Ctx) error {
	page, limit := features.PageParams(c, 20, 50)
	companies, total, err := h.service.List(c.Query("q"), c.Query("city"), page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ListResponse[models.Company]{Items: companies, Total: total, Page: page, Limit: limit})
}

func (h *CompanyHandler) Get(c *fiber.Ctx) error {
	company, err := h.service.GetBySlug(c.Params("slug"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(company)
}

func (h *CompanyHandler) Mine(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	companies, err := h.service.Mine(userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"items": companies})
}

func (h *CompanyHandler) Create(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req CreateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	company, err := h.service.Create(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(company)
}

func (h *CompanyHandler) Update(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	var req UpdateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	company, err := h.service.Update(userID, id, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(company)
}

func (h *CompanyHandler) Delete(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	if err := h.service.Delete(userID, id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CompanyHandler) Verify(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	company, err := h.service.SetVerified(id, req.Verified)
	if err != nil {
		return fail(c, err)
	}
	slog.Info("company verification changed", "action", "admin_verify_company", "company_id", id.String(), "verified", req.Verified)
	return c.JSON(company)
}
