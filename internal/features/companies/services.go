package companies

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrNotOwner        = errors.New("you do not own this company")
)

const promotedFirst = "EXISTS (SELECT 1 FROM promotions p WHERE p.target_type = 'company' AND p.target_id = companies.id AND p.active = true) DESC"

type CompanyService struct {
	db         *gorm.DB
	moderation *services.ModerationService
}

func NewCompanyService(db *gorm.DB, moderation *services.ModerationService) *CompanyService {
	return &CompanyService{db: db, moderation: moderation}
}

// Slugify lowercases name and joins its ASCII letter/digit runs with hyphens.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > 100 {
		slug = strings.TrimSuffix(slug[:100], "-")
	}
	if slug == "" {
		slug = "company"
	}
	return slug
}

// uniqueSlug appends -2, -3, ... until the slug is free. Soft-deleted rows
// still hold their slug.
func (s *CompanyService) uniqueSlug(base string) string {
	slug := base
	for i := 2; ; i++ {
		var count int64
		s.db.Unscoped().Model(&models.Company{}).Where("slug = ?", slug).Count(&count)
		if count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func validateName(name string) error {
	if n := len([]rune(name)); n < 2 || n > 100 {
		return &services.ValidationError{Field: "name", Message: "must be 2-100 characters"}
	}
	return nil
}

func (s *CompanyService) checkText(name, description string) error {
	if err := s.moderation.CheckContent("name", name, services.FilterOptions{}); err != nil {
		return err
	}
	return s.moderation.CheckContent("description", description, services.FilterOptions{AllowLinks: true, AllowContact: true})
}

func (s *CompanyService) Create(ownerID uuid.UUID, req *CreateCompanyRequest) (*models.Company, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := s.checkText(name, req.Description); err != nil {
		return nil, err
	}

	company := models.Company{
		OwnerID:     ownerID,
		Name:        name,
		Slug:        s.uniqueSlug(Slugify(name)),
		Description: req.Description,
		Website:     strings.TrimSpace(req.Website),
		City:        strings.TrimSpace(req.City),
		LogoURL:     strings.TrimSpace(req.LogoURL),
	}
	if err := s.db.Create(&company).Error; err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return &company, nil
}

func (s *CompanyService) List(q, city string, page, limit int) ([]models.Company, int64, error) {
	query := s.db.Model(&models.Company{})
	if q = strings.TrimSpace(q); q != "" {
		query = query.Where(`LOWER(companies.name) LIKE ? ESCAPE '\'`, services.LikePattern(q))
	}
	if city != "" {
		query = query.Where("LOWER(companies.city) = ?", strings.ToLower(city))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companies []models.Company
	err := query.
		Order(promotedFirst).
		Order("companies.verified DESC").
		Order("companies.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&companies).Error
	return companies, total, err
}

func (s *CompanyService) GetBySlug(slug string) (*CompanyView, error) {
	var company models.Company
	if err := s.db.First(&company, "slug = ?", slug).Error; err != nil {
		return nil, ErrCompanyNotFound
	}

	view := CompanyView{Company: company}
	s.db.Model(&models.Ad{}).Where("company_id = ? AND status = ?", company.ID, models.AdActive).Count(&view.ActiveAds)
	view.Promoted = services.PromotedIDs(s.db, models.TargetCompany, []uuid.UUID{company.ID})[company.ID]
	return &view, nil
}

func (s *CompanyService) Mine(ownerID uuid.UUID) ([]models.Company, error) {
	var companies []models.Company
	err := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&companies).Error
	return companies, err
}

func (s *CompanyService) owned(ownerID, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := s.db.First(&company, "id = ?", id).Error; err != nil {
		return nil, ErrCompanyNotFound
	}
	if company.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return &company, nil
}

// Update keeps the slug stable even when the name changes so shared links
// keep working.
func (s *CompanyService) Update(ownerID, id uuid.UUID, req *UpdateCompanyRequest) (*models.Company, error) {
	company, err := s.owned(ownerID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	name, description := company.Name, company.Description
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if req.Description != nil {
		description = *req.Description
		updates["description"] = description
	}
	if req.Website != nil {
		updates["website"] = strings.TrimSpace(*req.Website)
	}
	if req.City != nil {
		updates["city"] = strings.TrimSpace(*req.City)
	}
	if req.LogoURL != nil {
		updates["logo_url"] = strings.TrimSpace(*req.LogoURL)
	}
	if err := s.checkText(name, description); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.db.Model(company).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if err := s.db.First(company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return company, nil
}

// Delete removes the company and detaches its ads, which stay listed under
// the owner's personal profile.
func (s *CompanyService) Delete(ownerID, id uuid.UUID) error {
	company, err := s.owned(ownerID, id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Ad{}).Where("company_id = ?", id).Update("company_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(company).Error
	})
}

func (s *CompanyService) SetVerified(id uuid.UUID, verified bool) (*models.Company, error) {
	result := s.db.Model(&models.Company{}).Where("id = ?", id).Update("verified", verified)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCompanyNotFound
	}
	var company models.Company
	if err := s.db.First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}
