package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound     = errors.New("promotion plan not found")
	ErrTargetNotFound   = errors.New("promotion target not found")
	ErrAlreadyPromoted  = errors.New("target already has an active or pending promotion")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrCheckoutFailed   = errors.New("failed to start checkout")
)

// pendingCheckoutWindow matches the default Checkout Session lifetime.
const pendingCheckoutWindow = 24 * time.Hour

// CheckoutParams describes one promotion purchase.
type CheckoutParams struct {
	PromotionID   uuid.UUID
	PlanName      string
	AmountCents   int64
	Currency      string
	CustomerEmail string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutProvider creates hosted payment pages.
type CheckoutProvider interface {
	CreateCheckoutSession(p CheckoutParams) (*CheckoutSession, error)
}

// StripeCheckout creates Stripe Checkout Sessions in payment mode.
type StripeCheckout struct {
	successURL string
	cancelURL  string
}

func NewStripeCheckout(cfg *config.Config) *StripeCheckout {
	stripe.Key = cfg.StripeSecretKey
	return &StripeCheckout{successURL: cfg.CheckoutSuccessURL, cancelURL: cfg.CheckoutCancelURL}
}

func (s *StripeCheckout) CreateCheckoutSession(p CheckoutParams) (*CheckoutSession, error) {
	id := p.PromotionID.String()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL + "?promotion_id=" + id),
		CancelURL:         stripe.String(s.cancelURL + "?promotion_id=" + id),
		ClientReferenceID: stripe.String(id),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(p.Currency)),
				UnitAmount: stripe.Int64(p.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.PlanName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.AddMetadata("promotion_id", id)

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

type PaymentService struct {
	db            *gorm.DB
	plans         *catalog.Catalog
	checkout      CheckoutProvider
	mail          *MailService
	webhookSecret string
	now           func() time.Time
}

func NewPaymentService(db *gorm.DB, plans *catalog.Catalog, checkout CheckoutProvider, mail *MailService, webhookSecret string) *PaymentService {
	return &PaymentService{
		db:            db,
		plans:         plans,
		checkout:      checkout,
		mail:          mail,
		webhookSecret: webhookSecret,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *PaymentService) Plans() []*catalog.Plan {
	return s.plans.All()
}

// targetOwner returns the user that owns an ad or a company.
func (s *PaymentService) targetOwner(targetType string, targetID uuid.UUID) (uuid.UUID, error) {
	switch targetType {
	case models.TargetAd:
		var ad models.Ad
		if err := s.db.Select("id", "user_id").First(&ad, "id = ?", targetID).Error; err != nil {
			return uuid.Nil, ErrTargetNotFound
		}
		return ad.UserID, nil
	case models.TargetCompany:
		var company models.Company
		if err := s.db.Select("id", "owner_id").First(&company, "id = ?", targetID).Error; err != nil {
			return uuid.Nil, ErrTargetNotFound
		}
		return company.OwnerID, nil
	}
	return uuid.Nil, ErrTargetNotFound
}

// Checkout creates a pending promotion and a hosted checkout page for it.
func (s *PaymentService) Checkout(userID uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	plan := s.plans.Get(req.PlanID)
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	owner, err := s.targetOwner(plan.TargetType, req.TargetID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, ErrForbidden
	}

	var live int64
	s.db.Model(&models.Promotion{}).
		Where("target_type = ? AND target_id = ?", plan.TargetType, req.TargetID).
		Where("(active = ? OR (status = ? AND created_at > ?))", true, models.PromotionPending, s.now().Add(-pendingCheckoutWindow)).
		Count(&live)
	if live > 0 {
		return nil, ErrAlreadyPromoted
	}

	var user models.User
	s.db.Select("id", "email").First(&user, "id = ?", userID)

	promo := models.Promotion{
		UserID:       userID,
		TargetType:   plan.TargetType,
		TargetID:     req.TargetID,
		PlanID:       plan.ID,
		DurationDays: plan.DurationDays,
		AmountCents:  plan.AmountCents,
		Currency:     plan.Currency,
		Status:       models.PromotionPending,
	}
	if err := s.db.Create(&promo).Error; err != nil {
		return nil, fmt.Errorf("failed to create promotion: %w", err)
	}

	sess, err := s.checkout.CreateCheckoutSession(CheckoutParams{
		PromotionID:   promo.ID,
		PlanName:      plan.Name,
		AmountCents:   plan.AmountCents,
		Currency:      plan.Currency,
		CustomerEmail: user.Email,
	})
	if err != nil {
		slog.Error("checkout session creation failed", "action", "stripe_checkout", "promotion_id", promo.ID.String(), "error", err)
		s.db.Model(&promo).Update("status", models.PromotionCancelled)
		return nil, ErrCheckoutFailed
	}

	if err := s.db.Model(&promo).Update("stripe_session_id", sess.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to store checkout session: %w", err)
	}

	return &dto.CheckoutResponse{PromotionID: promo.ID, CheckoutURL: sess.URL}, nil
}

// HandleWebhook verifies a Stripe event and applies it.
func (s *PaymentService) HandleWebhook(payload []byte, signature string) (string, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		return "", ErrInvalidSignature
	}

	eventType := string(event.Type)
	err = s.applyEvent(eventType, event.Data.Raw)
	if errors.Is(err, ErrNotFound) {
		// Sessions created elsewhere on the same Stripe account.
		slog.Warn("webhook for unknown checkout session", "event_type", eventType, "error", err)
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		return eventType, nil
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, "error").Inc()
		return eventType, err
	}
	metrics.WebhookEvents.WithLabelValues(eventType, "ok").Inc()
	return eventType, nil
}

func (s *PaymentService) applyEvent(eventType string, raw json.RawMessage) error {
	switch eventType {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		sess, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
			sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
			// Delayed payment methods: wait for async_payment_succeeded.
			return nil
		}
		return s.activate(sess)
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		sess, err := decodeSession(raw)
		if err != nil {
			return err
		}
		return s.cancel(sess)
	default:
		return nil
	}
}

func decodeSession(raw json.RawMessage) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &sess, nil
}

func (s *PaymentService) findBySession(sess *stripe.CheckoutSession) (*models.Promotion, error) {
	var promo models.Promotion
	if id, err := uuid.Parse(sess.Metadata["promotion_id"]); err == nil {
		if err := s.db.First(&promo, "id = ?", id).Error; err == nil {
			return &promo, nil
		}
	}
	if err := s.db.First(&promo, "stripe_session_id = ?", sess.ID).Error; err != nil {
		return nil, fmt.Errorf("promotion for session %s: %w", sess.ID, ErrNotFound)
	}
	return &promo, nil
}

func (s *PaymentService) activate(sess *stripe.CheckoutSession) error {
	promo, err := s.findBySession(sess)
	if err != nil {
		return err
	}
	if promo.Status != models.PromotionPending {
		slog.Info("promotion already processed", "promotion_id", promo.ID.String(), "status", promo.Status)
		return nil
	}

	var end time.Time
	activated := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		start := s.now()
		// Queue behind a live promotion on the same target.
		var current models.Promotion
		if err := tx.Where("target_type = ? AND target_id = ? AND active = ? AND id <> ?",
			promo.TargetType, promo.TargetID, true, promo.ID).
			Order("ends_at DESC").Limit(1).Find(&current).Error; err != nil {
			return err
		}
		if current.EndsAt != nil && current.EndsAt.After(start) {
			start = *current.EndsAt
		}
		end = start.AddDate(0, 0, promo.DurationDays)

		result := tx.Model(&models.Promotion{}).
			Where("id = ? AND status = ?", promo.ID, models.PromotionPending).
			Updates(map[string]interface{}{
				"status":    models.PromotionActive,
				"active":    true,
				"starts_at": start,
				"ends_at":   end,
			})
		if result.Error != nil {
			return result.Error
		}
		activated = result.RowsAffected > 0
		return nil
	})
	if err != nil || !activated {
		return err
	}

	slog.Info("promotion activated", "promotion_id", promo.ID.String(), "target_type", promo.TargetType)
	s.notifyOwner(promo, TemplatePromotionActivated, end)
	return nil
}

func (s *PaymentService) cancel(sess *stripe.CheckoutSession) error {
	promo, err := s.findBySession(sess)
	if err != nil {
		return err
	}
	return s.db.Model(&models.Promotion{}).
		Where("id = ? AND status = ?", promo.ID, models.PromotionPending).
		Update("status", models.PromotionCancelled).Error
}

func (s *PaymentService) notifyOwner(promo *models.Promotion, template string, endsAt time.Time) {
	var user models.User
	if err := s.db.Select("id", "email").First(&user, "id = ?", promo.UserID).Error; err != nil {
		return
	}
	planName := promo.PlanID
	if plan := s.plans.Get(promo.PlanID); plan != nil {
		planName = plan.Name
	}
	s.mail.Dispatch(user.Email, template, map[string]any{
		"PlanName":   planName,
		"TargetType": promo.TargetType,
		"EndsAt":     endsAt.Format("2 Jan 2006"),
	})
}

// ExpireDue deactivates promotions whose end date has passed.
func (s *PaymentService) ExpireDue(ctx context.Context) (int64, error) {
	var due []models.Promotion
	now := s.now()
	if err := s.db.WithContext(ctx).
		Where("active = ? AND ends_at < ?", true, now).
		Find(&due).Error; err != nil {
		return 0, err
	}

	var expired int64
	for i := range due {
		result := s.db.WithContext(ctx).Model(&models.Promotion{}).
			Where("id = ? AND active = ?", due[i].ID, true).
			Updates(map[string]interface{}{"status": models.PromotionExpired, "active": false})
		if result.Error != nil {
			return expired, result.Error
		}
		if result.RowsAffected > 0 {
			expired++
			s.notifyOwner(&due[i], TemplatePromotionExpired, *due[i].EndsAt)
		}
	}
	return expired, nil
}

func (s *PaymentService) ListForUser(userID uuid.UUID) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&promos).Error
	return promos, err
}

func (s *PaymentService) List(status string, page, limit int) ([]models.Promotion, int64, error) {
	var promos []models.Promotion
	var total int64

	query := s.db.Model(&models.Promotion{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query.Count(&total)

	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&promos).Error
	return promos, total, err
}

// PromotedIDs returns which of the given targets currently have an active promotion.
func PromotedIDs(db *gorm.DB, targetType string, ids []uuid.UUID) map[uuid.UUID]bool {
	result := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return result
	}
	var promos []models.Promotion
	db.Select("target_id").
		Where("target_type = ? AND active = ? AND target_id IN ?", targetType, true, ids).
		Find(&promos)
	for _, p := range promos {
		result[p.TargetID] = true
	}
	return result
}
