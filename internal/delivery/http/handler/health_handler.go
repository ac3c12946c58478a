package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"signflow/internal/config"
	"signflow/internal/domain/entity"
)

type HealthHandler struct {
	service string
	env     string
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		service: cfg.App.Name,
		env:     cfg.App.Env,
	}
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Env       string    `json:"env"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health godoc
// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} entity.APIResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(entity.NewSuccessResponse(HealthResponse{
		Status:    "healthy",
		Service:   h.service,
		Env:       h.env,
		Timestamp: time.Now(),
		Version:   "1.0.0",
	}, "Service is healthy"))
}
