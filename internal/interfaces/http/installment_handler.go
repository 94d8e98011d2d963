package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/crm-inmobiliario/internal/application/dto"
	"github.com/jhoicas/crm-inmobiliario/internal/application/ledger"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
)

// LedgerService pagos y reajustes sobre cuotas.
type LedgerService interface {
	RecordPayment(ctx context.Context, actor domain.Actor, in ledger.RecordPaymentInput) (*entity.Payment, *entity.Installment, error)
	ApplyIndexation(ctx context.Context, actor domain.Actor, installmentID string) (*ledger.IndexationResult, error)
	PersistIndexation(ctx context.Context, actor domain.Actor, installmentID string) (*entity.Installment, *ledger.IndexationResult, error)
}

// InstallmentHandler maneja las peticiones HTTP de cuotas (protegido).
type InstallmentHandler struct {
	uc  LedgerService
	log *logger.Logger
}

// NewInstallmentHandler construye el handler.
func NewInstallmentHandler(uc LedgerService, log *logger.Logger) *InstallmentHandler {
	return &InstallmentHandler{uc: uc, log: logger.OrNop(log).Component("http")}
}

// RecordPayment godoc
// @Summary      Registrar un pago sobre la cuota
// @Tags         installments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID de la cuota"
// @Param        body  body  dto.RecordPaymentRequest  true  "Monto, método y fecha"
// @Success      201   {object}  dto.PaymentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/installments/{id}/payments [post]
func (h *InstallmentHandler) RecordPayment(c *fiber.Ctx) error {
	var in dto.RecordPaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	var paidOn time.Time
	if in.PaidOn != nil {
		paidOn = in.PaidOn.Time
	}
	p, inst, err := h.uc.RecordPayment(c.UserContext(), GetActor(c), ledger.RecordPaymentInput{
		InstallmentID: c.Params("id"),
		Amount:        in.Amount,
		Method:        strings.TrimSpace(in.Method),
		PaidOn:        paidOn,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToPaymentResponse(p, inst))
}

// PreviewIndexation godoc
// @Summary      Calcular el reajuste de la cuota sin persistir
// @Tags         installments
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la cuota"
// @Success      200  {object}  ledger.IndexationResult
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/installments/{id}/indexation [get]
func (h *InstallmentHandler) PreviewIndexation(c *fiber.Ctx) error {
	res, err := h.uc.ApplyIndexation(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// PersistIndexation godoc
// @Summary      Aplicar el reajuste a la cuota
// @Tags         installments
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la cuota"
// @Success      200  {object}  dto.IndexationResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/installments/{id}/indexation [post]
func (h *InstallmentHandler) PersistIndexation(c *fiber.Ctx) error {
	inst, res, err := h.uc.PersistIndexation(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.IndexationResponse{Result: res, Installment: dto.ToInstallmentResponse(inst)})
}
