package handlers

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SearchHandler struct {
	searchService *services.SearchService
}

func NewSearchHandler(searchService *services.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

func (h *SearchHandler) Search(c *fiber.Ctx) error {
	results, err := h.searchService.Search(c.Query("q"), c.Query("type", services.SearchAll))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(results)
}
