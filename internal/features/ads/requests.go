package ads

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/google/uuid"
)

type CreateAdRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	City        string     `json:"city"`
	PriceCents  int64      `json:"price_cents"`
	Currency    string     `json:"currency"`
	CompanyID   *uuid.UUID `json:"company_id"`
}

type UpdateAdRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	City        *string `json:"city"`
	PriceCents  *int64  `json:"price_cents"`
	Status      *string `json:"status"`
}

// ListFilter narrows the public listing. Zero values mean "any".
type ListFilter struct {
	Query     string
	Category  string
	City      string
	MinPrice  *int64
	MaxPrice  *int64
	CompanyID *uuid.UUID
	UserID    *uuid.UUID
	Page      int
	Limit     int
}

// AdView is an ad as returned to clients.
type AdView struct {
	models.Ad
	Promoted bool `json:"promoted"`
}

type FavoriteResponse struct {
	Favorited bool `json:"favorited"`
}
