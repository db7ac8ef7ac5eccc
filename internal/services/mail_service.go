package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/wneessen/go-mail"
	"gorm.io/gorm"
)

const (
	TemplateWelcome            = "welcome"
	TemplatePasswordReset      = "password_reset"
	TemplateNewMessage         = "new_message"
	TemplatePromotionActivated = "promotion_activated"
	TemplatePromotionExpired   = "promotion_expired"
)

var subjects = map[string]string{
	TemplateWelcome:            "Welcome to Bazaar",
	TemplatePasswordReset:      "Reset your Bazaar password",
	TemplateNewMessage:         "You have a new message on Bazaar",
	TemplatePromotionActivated: "Your promotion is live",
	TemplatePromotionExpired:   "Your promotion has ended",
}

//go:embed templates/*.html
var templateFS embed.FS

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	mu     sync.Mutex
	client *mail.Client
	from   string
}

func NewSMTPSender(cfg *config.Config) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.MailFrom}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	// One SMTP session at a time per client.
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.DialAndSendWithContext(ctx, msg)
}

// LogSender is used when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, _ string) error {
	slog.Info("email not sent (smtp disabled)", "to", to, "subject", subject)
	return nil
}

type MailService struct {
	db        *gorm.DB
	sender    Sender
	templates *template.Template
	publicURL string
	wg        sync.WaitGroup
}

func NewMailService(db *gorm.DB, sender Sender, publicURL string) *MailService {
	return &MailService{
		db:        db,
		sender:    sender,
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
		publicURL: publicURL,
	}
}

// Render produces the subject and HTML body for a template.
func (m *MailService) Render(name string, data map[string]any) (string, string, error) {
	subject, ok := subjects[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	if data == nil {
		data = map[string]any{}
	}
	data["PublicURL"] = m.publicURL

	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return subject, buf.String(), nil
}

// Send renders and delivers one email and records the attempt.
func (m *MailService) Send(ctx context.Context, to, name string, data map[string]any) error {
	subject, body, err := m.Render(name, data)
	if err != nil {
		return err
	}

	entry := models.EmailLog{
		Recipient: to,
		Template:  name,
		Subject:   subject,
		Status:    models.EmailSent,
	}
	sendErr := m.sender.Send(ctx, to, subject, body)
	if sendErr != nil {
		entry.Status = models.EmailFailed
		entry.Error = sendErr.Error()
	} else if _, dryRun := m.sender.(LogSender); dryRun {
		entry.Error = "dry-run"
	}
	metrics.EmailsSent.WithLabelValues(name, entry.Status).Inc()

	if err := m.db.Create(&entry).Error; err != nil {
		slog.Error("failed to store email log", "error", err, "template", name)
	}
	return sendErr
}

// Dispatch sends in the background. Failures are logged and recorded in the
// email log, never returned to the request that triggered them.
func (m *MailService) Dispatch(to, name string, data map[string]any) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.Send(ctx, to, name, data); err != nil {
			slog.Error("email delivery failed", "action", "send_email", "template", name, "error", err)
		}
	}()
}

// Wait blocks until in-flight dispatches finish.
func (m *MailService) Wait() {
	m.wg.Wait()
}

// ListLogs returns email log rows newest first.
func (m *MailService) ListLogs(status string, page, limit int) ([]models.EmailLog, int64, error) {
	var logs []models.EmailLog
	var total int64

	query := m.db.Model(&models.EmailLog{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query.Count(&total)

	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&logs).Error
	return logs, total, err
}
