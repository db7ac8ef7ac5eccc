package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features/ads"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features/companies"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features/messaging"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features/news"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_routes_test"

type stubCheckout struct{}

func (stubCheckout) CreateCheckoutSession(p services.CheckoutParams) (*services.CheckoutSession, error) {
	return &services.CheckoutSession{ID: "cs_" + p.PromotionID.String(), URL: "https://pay.test/" + p.PromotionID.String()}, nil
}

type server struct {
	app   *fiber.App
	db    *gorm.DB
	token func(*models.User) string
}

func newServer(t *testing.T, opts Options) *server {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testutil.Config()
	cfg.AdminEmails = "boss@example.com"
	cfg.StripeWebhookSecret = webhookSecret

	mail := services.NewMailService(db, services.LogSender{}, cfg.PublicURL)
	t.Cleanup(mail.Wait)

	plans, err := catalog.Parse([]byte(`{"plans":[{"id":"ad-7","name":"Ad week","target_type":"ad","duration_days":7,"amount_cents":499,"currency":"eur"}]}`))
	require.NoError(t, err)

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)
	moderation := services.NewModerationService(db)
	auth := services.NewAuthService(db, cfg, mail)
	payments := services.NewPaymentService(db, plans, stubCheckout{}, mail, cfg.StripeWebhookSecret)

	deps := &features.Deps{
		DB:           db,
		Config:       cfg,
		Moderation:   moderation,
		Mail:         mail,
		Realtime:     hub,
		Auth:         middleware.JWTProtected(cfg),
		OptionalAuth: middleware.OptionalJWT(cfg),
	}
	h := Handlers{
		Auth:       handlers.NewAuthHandler(auth, cfg),
		Users:      handlers.NewUserHandler(services.NewUserService(db)),
		Health:     handlers.NewHealthHandler(db, hub),
		Webhook:    handlers.NewWebhookHandler(payments),
		Moderation: handlers.NewModerationHandler(moderation),
		Promotions: handlers.NewPromotionHandler(payments),
		Search:     handlers.NewSearchHandler(services.NewSearchService(db)),
		Admin:      handlers.NewAdminHandler(services.NewAdminService(db, auth), mail),
		Realtime:   realtime.NewHandler(hub, hub, messaging.NewMembership(db), cfg.JWTSecret, cfg.AuthCookieName),
	}

	app := fiber.New()
	Setup(app, deps, h, []features.Module{ads.New(), companies.New(), messaging.New(), news.New()}, opts)

	return &server{
		app:   app,
		db:    db,
		token: func(u *models.User) string { return testutil.Token(t, cfg, u) },
	}
}

func (s *server) do(t *testing.T, method, path string, user *models.User, body any, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(user))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func authCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "access_token" {
			return c
		}
	}
	return nil
}

func TestAuthFlowUsesCookie(t *testing.T) {
	s := newServer(t, Options{})

	resp := s.do(t, http.MethodPost, "/api/auth/register", nil, dto.RegisterRequest{Email: "New@Example.com", Password: "password123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cookie := authCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	var auth dto.AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&auth))
	assert.Equal(t, "new@example.com", auth.User.Email)

	resp = s.do(t, http.MethodPost, "/api/auth/register", nil, dto.RegisterRequest{Email: "new@example.com", Password: "password123"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/auth/register", nil, dto.RegisterRequest{Email: "short@example.com", Password: "123"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/users/me", nil, nil, "Cookie", "access_token="+cookie.Value)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/auth/login", nil, dto.LoginRequest{Email: "new@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/auth/forgot-password", nil, dto.ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/auth/reset-password", nil, dto.ResetPasswordRequest{Token: "bogus", Password: "password456"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/auth/logout", nil, dto.LogoutRequest{RefreshToken: auth.RefreshToken}, "Cookie", "access_token="+cookie.Value)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := authCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	resp = s.do(t, http.MethodPost, "/api/auth/refresh", nil, dto.RefreshRequest{RefreshToken: auth.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBannedUserCannotLogin(t *testing.T) {
	s := newServer(t, Options{})
	user := testutil.CreateUser(t, s.db, "banned@example.com")
	require.NoError(t, s.db.Model(user).Update("banned", true).Error)

	resp := s.do(t, http.MethodPost, "/api/auth/login", nil, dto.LoginRequest{Email: "banned@example.com", Password: "password123"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthRateLimit(t *testing.T) {
	s := newServer(t, Options{AuthRequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		resp := s.do(t, http.MethodPost, "/api/auth/login", nil, dto.LoginRequest{Email: "x@example.com", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := s.do(t, http.MethodPost, "/api/auth/login", nil, dto.LoginRequest{Email: "x@example.com", Password: "password123"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Other API routes keep their own budget.
	resp = s.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, Options{})

	resp := s.do(t, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health dto.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.DB)
	assert.Equal(t, 0, health.WSClients)

	resp = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "bazaar_http_requests_total")
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newServer(t, Options{})
	resp := s.do(t, http.MethodGet, "/ws", nil, nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestAdminGate(t *testing.T) {
	s := newServer(t, Options{})
	user := testutil.CreateUser(t, s.db, "user@example.com")
	boss := testutil.CreateUser(t, s.db, "boss@example.com")

	resp := s.do(t, http.MethodGet, "/api/admin/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/admin/stats", user, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/admin/stats", boss, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats dto.DashboardStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(2), stats.Users)

	resp = s.do(t, http.MethodPut, "/api/admin/users/"+user.ID.String()+"/role", boss, dto.SetRoleRequest{Role: "owner"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/api/admin/users/"+user.ID.String()+"/ban", boss, dto.BanUserRequest{Banned: true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/admin/users?q=user", boss, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users dto.ListResponse[models.User]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	require.Len(t, users.Items, 1)
	assert.True(t, users.Items[0].Banned)

	resp = s.do(t, http.MethodGet, "/api/admin/email-logs", boss, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Module admin routes sit behind the same gate.
	company := models.Company{OwnerID: user.ID, Name: "Bikes", Slug: "bikes"}
	require.NoError(t, s.db.Create(&company).Error)
	resp = s.do(t, http.MethodPut, "/api/admin/companies/"+company.ID.String()+"/verify", user, map[string]bool{"verified": true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = s.do(t, http.MethodPut, "/api/admin/companies/"+company.ID.String()+"/verify", boss, map[string]bool{"verified": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReportsAndBlocks(t *testing.T) {
	s := newServer(t, Options{})
	alice := testutil.CreateUser(t, s.db, "alice@example.com")
	bob := testutil.CreateUser(t, s.db, "bob@example.com")
	boss := testutil.CreateUser(t, s.db, "boss@example.com")

	resp := s.do(t, http.MethodPost, "/api/reports", alice, dto.CreateReportRequest{ContentType: "planet", ContentID: "x", Reason: "spam"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/reports", alice, dto.CreateReportRequest{ContentType: "user", ContentID: bob.ID.String(), Reason: "rude"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var report models.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))

	resp = s.do(t, http.MethodPost, "/api/blocks", alice, dto.BlockUserRequest{BlockedID: alice.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/blocks", alice, dto.BlockUserRequest{BlockedID: bob.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = s.do(t, http.MethodPost, "/api/blocks", alice, dto.BlockUserRequest{BlockedID: bob.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/api/blocks/"+bob.ID.String(), alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/admin/reports?status=pending", boss, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed struct {
		Reports []models.Report `json:"reports"`
		Total   int64           `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	assert.Equal(t, int64(1), listed.Total)

	resp = s.do(t, http.MethodPut, "/api/admin/reports/"+report.ID.String(), boss, dto.ActionReportRequest{Status: "actioned", AdminNote: "warned"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearchValidation(t *testing.T) {
	s := newServer(t, Options{})
	resp := s.do(t, http.MethodGet, "/api/search?q=a", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/search?q=bike&type=planets", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/search?q=bike", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPromotionCheckoutAndWebhook(t *testing.T) {
	s := newServer(t, Options{})
	seller := testutil.CreateUser(t, s.db, "seller@example.com")
	other := testutil.CreateUser(t, s.db, "other@example.com")
	ad := models.Ad{UserID: seller.ID, Title: "Road bike", Category: "bikes", Status: models.AdActive}
	require.NoError(t, s.db.Create(&ad).Error)

	resp := s.do(t, http.MethodGet, "/api/promotions/plans", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/promotions/checkout", other, dto.CheckoutRequest{PlanID: "ad-7", TargetID: ad.ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/promotions/checkout", seller, dto.CheckoutRequest{PlanID: "gold", TargetID: ad.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/promotions/checkout", seller, dto.CheckoutRequest{PlanID: "ad-7", TargetID: ad.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var checkout dto.CheckoutResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&checkout))
	assert.True(t, strings.HasPrefix(checkout.CheckoutURL, "https://pay.test/"))

	payload, err := json.Marshal(map[string]any{
		"id":     "evt_1",
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]any{"object": map[string]any{
			"id":             "cs_" + checkout.PromotionID.String(),
			"object":         "checkout.session",
			"payment_status": "paid",
			"metadata":       map[string]string{"promotion_id": checkout.PromotionID.String()},
		}},
	})
	require.NoError(t, err)

	bad := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	bad.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	badResp, err := s.app.Test(bad)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	req.Header.Set("Content-Type", "application/json")
	okResp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, okResp.StatusCode)

	var promo models.Promotion
	require.NoError(t, s.db.First(&promo, "id = ?", checkout.PromotionID).Error)
	assert.Equal(t, models.PromotionActive, promo.Status)
	assert.True(t, promo.Active)

	resp = s.do(t, http.MethodGet, "/api/promotions/mine", seller, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Promoted ads report the flag on their detail page.
	resp = s.do(t, http.MethodGet, "/api/ads/"+ad.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Promoted bool `json:"promoted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.True(t, view.Promoted)
}
