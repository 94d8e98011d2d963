package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
)

// RouterDeps dependencias para el router.
// Converter y Contracts suelen ser el mismo *contract.UseCase; Plan y Ledger el mismo *ledger.UseCase.
type RouterDeps struct {
	Reservations ReservationService
	Converter    ReservationConverter
	Contracts    ContractService
	Plan         PlanGenerator
	Ledger       LedgerService
	Health       *HealthHandler
	JWTSecret    string
	Log          *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Health != nil {
		app.Get("/health", deps.Health.Health)
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	reservations := protected.Group("/reservations")
	reservationHandler := NewReservationHandler(deps.Reservations, deps.Converter, deps.Log)
	reservations.Post("/", reservationHandler.Create)
	reservations.Post("/:id/cancel", reservationHandler.Cancel)
	reservations.Post("/:id/expire", reservationHandler.Expire)
	reservations.Post("/:id/convert", reservationHandler.Convert)

	contracts := protected.Group("/contracts")
	contractHandler := NewContractHandler(deps.Contracts, deps.Plan, deps.Log)
	contracts.Get("/:id", contractHandler.GetByID)
	contracts.Patch("/:id/status", contractHandler.UpdateStatus)
	// El distrato deshace una venta cerrada: solo administración y gerencia.
	contracts.Post("/:id/rescission", RequireRole(entity.RoleAdmin, entity.RoleManager), contractHandler.Rescind)
	contracts.Post("/:id/payment-plan", contractHandler.GeneratePlan)

	installments := protected.Group("/installments")
	installmentHandler := NewInstallmentHandler(deps.Ledger, deps.Log)
	installments.Post("/:id/payments", installmentHandler.RecordPayment)
	installments.Get("/:id/indexation", installmentHandler.PreviewIndexation)
	installments.Post("/:id/indexation", installmentHandler.PersistIndexation)
}
