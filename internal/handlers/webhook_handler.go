package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	paymentService *services.PaymentService
}

func NewWebhookHandler(paymentService *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{paymentService: paymentService}
}

// HandleStripe verifies the Stripe-Signature header against the raw body
// before anything is decoded.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	eventType, err := h.paymentService.HandleWebhook(payload, c.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			slog.Warn("stripe webhook rejected", "ip", c.IP())
			return fail(c, err)
		}
		slog.Error("webhook processing failed", "event_type", eventType, "error", err)
		return fail(c, err)
	}

	slog.Info("webhook processed", "event_type", eventType)
	return c.JSON(fiber.Map{"received": true})
}
