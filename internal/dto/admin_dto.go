package dto

type DashboardStats struct {
	Users            int64 `json:"users"`
	BannedUsers      int64 `json:"banned_users"`
	ActiveAds        int64 `json:"active_ads"`
	Companies        int64 `json:"companies"`
	PendingReports   int64 `json:"pending_reports"`
	ActivePromotions int64 `json:"active_promotions"`
	RevenueCents     int64 `json:"revenue_cents"`
	Messages24h      int64 `json:"messages_24h"`
	EmailsFailed24h  int64 `json:"emails_failed_24h"`
}

type BanUserRequest struct {
	Banned bool `json:"banned"`
}

type SetRoleRequest struct {
	Role string `json:"role"`
}
