package dto

import "github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"

type SearchResults struct {
	Query     string            `json:"query"`
	Ads       []models.Ad       `json:"ads,omitempty"`
	Users     []PublicProfile   `json:"users,omitempty"`
	Companies []models.Company  `json:"companies,omitempty"`
	News      []models.NewsPost `json:"news,omitempty"`
}
