package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID sets a fresh UUID when the caller left the primary key empty.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(_ *gorm.DB) error          { assignID(&u.ID); return nil }
func (t *RefreshToken) BeforeCreate(_ *gorm.DB) error  { assignID(&t.ID); return nil }
func (p *PasswordReset) BeforeCreate(_ *gorm.DB) error { assignID(&p.ID); return nil }
func (r *Report) BeforeCreate(_ *gorm.DB) error        { assignID(&r.ID); return nil }
func (b *Block) BeforeCreate(_ *gorm.DB) error         { assignID(&b.ID); return nil }
func (p *Promotion) BeforeCreate(_ *gorm.DB) error     { assignID(&p.ID); return nil }
func (e *EmailLog) BeforeCreate(_ *gorm.DB) error      { assignID(&e.ID); return nil }
func (l *SystemLog) BeforeCreate(_ *gorm.DB) error     { assignID(&l.ID); return nil }
