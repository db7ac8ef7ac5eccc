package dto

import "github.com/google/uuid"

type CheckoutRequest struct {
	PlanID   string    `json:"plan_id"`
	TargetID uuid.UUID `json:"target_id"`
}

type CheckoutResponse struct {
	PromotionID uuid.UUID `json:"promotion_id"`
	CheckoutURL string    `json:"checkout_url"`
}
