package companies

import "github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"

type CreateCompanyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	City        string `json:"city"`
	LogoURL     string `json:"logo_url"`
}

type UpdateCompanyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Website     *string `json:"website"`
	City        *string `json:"city"`
	LogoURL     *string `json:"logo_url"`
}

type VerifyRequest struct {
	Verified bool `json:"verified"`
}

type CompanyView struct {
	models.Company
	ActiveAds int64 `json:"active_ads"`
	Promoted  bool  `json:"promoted"`
}
