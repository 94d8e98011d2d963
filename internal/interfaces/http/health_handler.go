package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Check verificación de una dependencia (base, redis).
type Check func(ctx context.Context) error

// HealthHandler responde el estado del servicio y de sus dependencias.
type HealthHandler struct {
	service string
	checks  map[string]Check
}

// NewHealthHandler construye el handler; checks puede ser nil.
func NewHealthHandler(service string, checks map[string]Check) *HealthHandler {
	return &HealthHandler{service: service, checks: checks}
}

// Health godoc
// @Summary      Estado del servicio
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	deps := fiber.Map{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = "down"
			status = fiber.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	body := fiber.Map{"status": "ok", "service": h.service, "dependencies": deps}
	if status != fiber.StatusOK {
		body["status"] = "degraded"
	}
	return c.Status(status).JSON(body)
}
