package services

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Get(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	user, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" || len(name) > 100 {
			return nil, &ValidationError{Field: "display_name", Message: "must be 1-100 characters"}
		}
		updates["display_name"] = name
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.City != nil {
		updates["city"] = strings.TrimSpace(*req.City)
	}
	if req.Bio != nil {
		if len(*req.Bio) > 1000 {
			return nil, &ValidationError{Field: "bio", Message: "must be at most 1000 characters"}
		}
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(userID)
}

func (s *UserService) PublicProfile(userID uuid.UUID) (*dto.PublicProfile, error) {
	user, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	var activeAds int64
	s.db.Model(&models.Ad{}).Where("user_id = ? AND status = ?", userID, models.AdActive).Count(&activeAds)

	profile := ToPublicProfile(user)
	profile.ActiveAds = activeAds
	return &profile, nil
}

func ToPublicProfile(u *models.User) dto.PublicProfile {
	return dto.PublicProfile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		City:        u.City,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		MemberSince: u.CreatedAt.Format("2006-01-02"),
	}
}
