package ads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/storage"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrAdNotFound       = errors.New("ad not found")
	ErrNotOwner         = errors.New("you do not own this ad")
	ErrCompanyNotOwned  = errors.New("you do not own this company")
	ErrTooManyImages    = errors.New("an ad can have at most 10 images")
	ErrStorageDisabled  = errors.New("image uploads are not available")
	ErrUnsupportedImage = errors.New("image must be jpeg, png or webp")
	ErrImageTooLarge    = errors.New("image must be at most 4 MB")
)

const (
	MaxImages     = 10
	MaxImageBytes = 4 << 20
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var adStatuses = map[string]bool{
	models.AdActive: true, models.AdSold: true, models.AdArchived: true,
}

// promotedFirst sorts ads that currently hold an active promotion ahead of the rest.
const promotedFirst = "EXISTS (SELECT 1 FROM promotions p WHERE p.target_type = 'ad' AND p.target_id = ads.id AND p.active = true) DESC"

type AdService struct {
	db         *gorm.DB
	moderation *services.ModerationService
	store      storage.ObjectStore
}

func NewAdService(db *gorm.DB, moderation *services.ModerationService, store storage.ObjectStore) *AdService {
	return &AdService{db: db, moderation: moderation, store: store}
}

func (s *AdService) checkText(title, description string) error {
	opts := services.FilterOptions{AllowContact: true}
	if err := s.moderation.CheckContent("title", title, opts); err != nil {
		return err
	}
	return s.moderation.CheckContent("description", description, opts)
}

func validateTitle(title string) error {
	if n := len([]rune(title)); n < 3 || n > 120 {
		return &services.ValidationError{Field: "title", Message: "must be 3-120 characters"}
	}
	return nil
}

func (s *AdService) Create(userID uuid.UUID, req *CreateAdRequest) (*models.Ad, error) {
	title := strings.TrimSpace(req.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	category := strings.TrimSpace(strings.ToLower(req.Category))
	if category == "" {
		return nil, &services.ValidationError{Field: "category", Message: "is required"}
	}
	if req.PriceCents < 0 {
		return nil, &services.ValidationError{Field: "price_cents", Message: "must not be negative"}
	}
	if len(req.Description) > 5000 {
		return nil, &services.ValidationError{Field: "description", Message: "must be at most 5000 characters"}
	}
	if err := s.checkText(title, req.Description); err != nil {
		return nil, err
	}

	if req.CompanyID != nil {
		var count int64
		s.db.Model(&models.Company{}).Where("id = ? AND owner_id = ?", *req.CompanyID, userID).Count(&count)
		if count == 0 {
			return nil, ErrCompanyNotOwned
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}
	if len(currency) != 3 {
		return nil, &services.ValidationError{Field: "currency", Message: "must be a 3-letter code"}
	}

	ad := models.Ad{
		UserID:      userID,
		CompanyID:   req.CompanyID,
		Title:       title,
		Description: req.Description,
		Category:    category,
		City:        strings.TrimSpace(req.City),
		PriceCents:  req.PriceCents,
		Currency:    currency,
		Status:      models.AdActive,
		Images:      []string{},
	}
	if err := s.db.Create(&ad).Error; err != nil {
		return nil, fmt.Errorf("failed to create ad: %w", err)
	}
	return &ad, nil
}

// List returns active ads matching the filter, promoted ads first.
func (s *AdService) List(f ListFilter) ([]AdView, int64, error) {
	query := s.db.Model(&models.Ad{}).Where("ads.status = ?", models.AdActive)
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := services.LikePattern(q)
		query = query.Where(`(LOWER(ads.title) LIKE ? ESCAPE '\' OR LOWER(ads.description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if f.Category != "" {
		query = query.Where("ads.category = ?", strings.ToLower(f.Category))
	}
	if f.City != "" {
		query = query.Where("LOWER(ads.city) = ?", strings.ToLower(f.City))
	}
	if f.MinPrice != nil {
		query = query.Where("ads.price_cents >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("ads.price_cents <= ?", *f.MaxPrice)
	}
	if f.CompanyID != nil {
		query = query.Where("ads.company_id = ?", *f.CompanyID)
	}
	if f.UserID != nil {
		query = query.Where("ads.user_id = ?", *f.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ads []models.Ad
	if err := query.
		Order(promotedFirst).
		Order("ads.created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&ads).Error; err != nil {
		return nil, 0, err
	}

	return s.views(ads), total, nil
}

func (s *AdService) views(ads []models.Ad) []AdView {
	ids := make([]uuid.UUID, len(ads))
	for i := range ads {
		ids[i] = ads[i].ID
	}
	promoted := services.PromotedIDs(s.db, models.TargetAd, ids)

	views := make([]AdView, len(ads))
	for i := range ads {
		views[i] = AdView{Ad: ads[i], Promoted: promoted[ads[i].ID]}
	}
	return views
}

// Get returns an ad and counts the view.
func (s *AdService) Get(id uuid.UUID) (*AdView, error) {
	var ad models.Ad
	if err := s.db.First(&ad, "id = ?", id).Error; err != nil {
		return nil, ErrAdNotFound
	}
	s.db.Model(&ad).UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	ad.ViewCount++

	return &s.views([]models.Ad{ad})[0], nil
}

func (s *AdService) owned(userID, id uuid.UUID) (*models.Ad, error) {
	var ad models.Ad
	if err := s.db.First(&ad, "id = ?", id).Error; err != nil {
		return nil, ErrAdNotFound
	}
	if ad.UserID != userID {
		return nil, ErrNotOwner
	}
	return &ad, nil
}

func (s *AdService) Update(userID, id uuid.UUID, req *UpdateAdRequest) (*models.Ad, error) {
	ad, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	title, description := ad.Title, ad.Description
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if req.Description != nil {
		description = *req.Description
		updates["description"] = description
	}
	if req.Category != nil {
		category := strings.TrimSpace(strings.ToLower(*req.Category))
		if category == "" {
			return nil, &services.ValidationError{Field: "category", Message: "is required"}
		}
		updates["category"] = category
	}
	if req.City != nil {
		updates["city"] = strings.TrimSpace(*req.City)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return nil, &services.ValidationError{Field: "price_cents", Message: "must not be negative"}
		}
		updates["price_cents"] = *req.PriceCents
	}
	if req.Status != nil {
		if !adStatuses[*req.Status] {
			return nil, &services.ValidationError{Field: "status", Message: "must be active, sold or archived"}
		}
		updates["status"] = *req.Status
	}
	if err := s.checkText(title, description); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.db.Model(ad).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if err := s.db.First(ad, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return ad, nil
}

func (s *AdService) Delete(userID, id uuid.UUID) error {
	ad, err := s.owned(userID, id)
	if err != nil {
		return err
	}
	return s.db.Delete(ad).Error
}

// AdminDelete removes any ad regardless of owner.
func (s *AdService) AdminDelete(id uuid.UUID) error {
	result := s.db.Delete(&models.Ad{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAdNotFound
	}
	return nil
}

// AddImage uploads an image and appends its URL to the ad.
func (s *AdService) AddImage(ctx context.Context, userID, id uuid.UUID, contentType string, size int64, body io.Reader) (*models.Ad, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	ad, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	if len(ad.Images) >= MaxImages {
		return nil, ErrTooManyImages
	}
	if _, ok := imageTypes[contentType]; !ok {
		return nil, ErrUnsupportedImage
	}
	if size > MaxImageBytes {
		return nil, ErrImageTooLarge
	}
	body, err = sniffImage(contentType, body)
	if err != nil {
		return nil, err
	}
	ext := imageTypes[contentType]

	key := path.Join("ads", ad.ID.String(), uuid.NewString()+ext)
	url, err := s.store.Put(ctx, key, body, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	images := datatypes.JSONSlice[string](append(append([]string{}, ad.Images...), url))
	if err := s.db.Model(ad).Update("images", images).Error; err != nil {
		_ = s.store.Delete(ctx, key)
		return nil, err
	}
	ad.Images = images
	return ad, nil
}

// sniffImage checks the leading bytes against the declared type and returns a
// reader that still yields the whole body.
func sniffImage(declared string, body io.Reader) (io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	head = head[:n]
	if http.DetectContentType(head) != declared {
		return nil, ErrUnsupportedImage
	}
	return io.MultiReader(bytes.NewReader(head), body), nil
}

// ToggleFavorite adds or removes the ad from the user's favorites and reports
// the new state.
func (s *AdService) ToggleFavorite(userID, adID uuid.UUID) (bool, error) {
	var ad models.Ad
	if err := s.db.Select("id").First(&ad, "id = ?", adID).Error; err != nil {
		return false, ErrAdNotFound
	}

	result := s.db.Where("user_id = ? AND ad_id = ?", userID, adID).Delete(&models.Favorite{})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return false, nil
	}
	if err := s.db.Create(&models.Favorite{UserID: userID, AdID: adID}).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (s *AdService) Favorites(userID uuid.UUID) ([]AdView, error) {
	var ads []models.Ad
	err := s.db.
		Joins("JOIN favorites f ON f.ad_id = ads.id").
		Where("f.user_id = ?", userID).
		Order("f.created_at DESC").
		Find(&ads).Error
	if err != nil {
		return nil, err
	}
	return s.views(ads), nil
}
