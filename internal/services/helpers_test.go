package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/testutil"
	"gorm.io/gorm"
)

// recordingSender captures outbound mail instead of delivering it.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{To: to, Subject: subject, Body: body})
	return r.err
}

func (r *recordingSender) Sent() []sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMail(nil), r.sent...)
}

func newMailFixture(t *testing.T) (*gorm.DB, *MailService, *recordingSender) {
	t.Helper()
	db := testutil.NewDB(t)
	sender := &recordingSender{}
	mail := NewMailService(db, sender, "http://bazaar.test")
	t.Cleanup(mail.Wait)
	return db, mail, sender
}
