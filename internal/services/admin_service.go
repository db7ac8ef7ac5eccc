package services

import (
	"errors"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidRole = errors.New("role must be user or admin")

type AdminService struct {
	db   *gorm.DB
	auth *AuthService
}

func NewAdminService(db *gorm.DB, auth *AuthService) *AdminService {
	return &AdminService{db: db, auth: auth}
}

// Stats aggregates the dashboard counters. Revenue counts every promotion
// that was paid for, including ones that have since expired.
func (s *AdminService) Stats() (*dto.DashboardStats, error) {
	var stats dto.DashboardStats
	since := time.Now().UTC().Add(-24 * time.Hour)

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&stats.Users, s.db.Model(&models.User{})},
		{&stats.BannedUsers, s.db.Model(&models.User{}).Where("banned = ?", true)},
		{&stats.ActiveAds, s.db.Model(&models.Ad{}).Where("status = ?", models.AdActive)},
		{&stats.Companies, s.db.Model(&models.Company{})},
		{&stats.PendingReports, s.db.Model(&models.Report{}).Where("status = ?", models.ReportPending)},
		{&stats.ActivePromotions, s.db.Model(&models.Promotion{}).Where("active = ?", true)},
		{&stats.Messages24h, s.db.Model(&models.Message{}).Where("created_at >= ?", since)},
		{&stats.EmailsFailed24h, s.db.Model(&models.EmailLog{}).Where("status = ? AND created_at >= ?", models.EmailFailed, since)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	if err := s.db.Model(&models.Promotion{}).
		Where("status IN ?", []string{models.PromotionActive, models.PromotionExpired}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&stats.RevenueCents).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *AdminService) ListUsers(q string, page, limit int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := s.db.Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		pattern := LikePattern(q)
		query = query.Where(`(LOWER(email) LIKE ? ESCAPE '\' OR LOWER(display_name) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	query.Count(&total)

	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}

// SetBanned bans or unbans a user. Banning revokes every refresh token so
// sessions end once the current access token expires.
func (s *AdminService) SetBanned(userID uuid.UUID, banned bool) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("banned", banned)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	if banned {
		return s.auth.RevokeAll(userID)
	}
	return nil
}

func (s *AdminService) SetRole(userID uuid.UUID, role string) error {
	if role != models.RoleUser && role != models.RoleAdmin {
		return ErrInvalidRole
	}
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role in the database.
func (s *AdminService) IsAdmin(userID uuid.UUID) bool {
	var user models.User
	if err := s.db.Select("id", "role", "banned").First(&user, "id = ?", userID).Error; err != nil {
		return false
	}
	return user.Role == models.RoleAdmin && !user.Banned
}
