package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ClientCounter reports open realtime connections on this instance.
type ClientCounter interface {
	ClientCount() int
}

type HealthHandler struct {
	db      *gorm.DB
	clients ClientCounter
}

func NewHealthHandler(db *gorm.DB, clients ClientCounter) *HealthHandler {
	return &HealthHandler{db: db, clients: clients}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.UserContext())
	}
	if err != nil {
		status = "degraded"
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		WSClients: h.clients.ClientCount(),
	})
}
