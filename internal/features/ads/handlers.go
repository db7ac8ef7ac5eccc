package ads

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdHandler struct {
	service *AdService
}

func NewAdHandler(service *AdService) *AdHandler {
	return &AdHandler{service: service}
}

func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Something went wrong"
	switch {
	case services.IsValidation(err):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, ErrAdNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrCompanyNotOwned):
		status, message = fiber.StatusForbidden, err.Error()
	case errors.Is(err, ErrTooManyImages), errors.Is(err, ErrUnsupportedImage), errors.Is(err, ErrImageTooLarge):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, ErrStorageDisabled):
		status, message = fiber.StatusServiceUnavailable, err.Error()
	default:
		slog.Error("ads request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func parseID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid ad ID",
	})
}

func optionalInt64(c *fiber.Ctx, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &services.ValidationError{Field: key, Message: "must be an integer"}
	}
	return &n, nil
}

func optionalUUID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &services.ValidationError{Field: key, Message: "must be a UUID"}
	}
	return &id, nil
}

func (h *AdHandler) List(c *fiber.Ctx) error {
	page, limit := features.PageParams(c, 20, 50)
	filter := ListFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		City:     c.Query("city"),
		Page:     page,
		Limit:    limit,
	}

	var err error
	if filter.MinPrice, err = optionalInt64(c, "min_price"); err != nil {
		return fail(c, err)
	}
	if filter.MaxPrice, err = optionalInt64(c, "max_price"); err != nil {
		return fail(c, err)
	}
	if filter.CompanyID, err = optionalUUID(c, "company_id"); err != nil {
		return fail(c, err)
	}
	if filter.UserID, err = optionalUUID(c, "user_id"); err != nil {
		return fail(c, err)
	}

	ads, total, err := h.service.List(filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ListResponse[AdView]{Items: ads, Total: total, Page: page, Limit: limit})
}

func (h *AdHandler) Get(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	ad, err := h.service.Get(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(ad)
}

func (h *AdHandler) Create(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	var req CreateAdRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	ad, err := h.service.Create(userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ad)
}

func (h *AdHandler) Update(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}

	var req UpdateAdRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	ad, err := h.service.Update(userID, id, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(ad)
}

func (h *AdHandler) Delete(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}

	if err := h.service.Delete(userID, id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdHandler) UploadImage(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}

	header, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "image file is required"})
	}
	file, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Could not read image"})
	}
	defer file.Close()

	ad, err := h.service.AddImage(c.UserContext(), userID, id, header.Header.Get(fiber.HeaderContentType), header.Size, file)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ad)
}

func (h *AdHandler) ToggleFavorite(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}

	favorited, err := h.service.ToggleFavorite(userID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(FavoriteResponse{Favorited: favorited})
}

func (h *AdHandler) MyFavorites(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}
	ads, err := h.service.Favorites(userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"items": ads})
}

func (h *AdHandler) AdminDelete(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	if err := h.service.AdminDelete(id); err != nil {
		return fail(c, err)
	}
	slog.Info("ad removed by admin", "action", "admin_delete_ad", "ad_id", id.String())
	return c.SendStatus(fiber.StatusNoContent)
}
