package handlers

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type PromotionHandler struct {
	paymentService *services.PaymentService
}

func NewPromotionHandler(paymentService *services.PaymentService) *PromotionHandler {
	return &PromotionHandler{paymentService: paymentService}
}

func (h *PromotionHandler) Plans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": h.paymentService.Plans()})
}

func (h *PromotionHandler) Checkout(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.PlanID == "" {
		return badRequest(c, "plan_id is required")
	}

	resp, err := h.paymentService.Checkout(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *PromotionHandler) Mine(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	promos, err := h.paymentService.ListForUser(userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"promotions": promos})
}

func (h *PromotionHandler) AdminList(c *fiber.Ctx) error {
	page, limit := features.PageParams(c, 20, 100)
	promos, total, err := h.paymentService.List(c.Query("status"), page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ListResponse[models.Promotion]{Items: promos, Total: total, Page: page, Limit: limit})
}
