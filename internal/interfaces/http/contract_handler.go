package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/crm-inmobiliario/internal/application/contract"
	"github.com/jhoicas/crm-inmobiliario/internal/application/dto"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
)

// ContractService lo que el handler usa del motor de contratos.
type ContractService interface {
	UpdateStatus(ctx context.Context, actor domain.Actor, contractID string, to entity.ContractStatus, extra contract.StatusExtra) (*entity.Contract, error)
	RegisterRescission(ctx context.Context, actor domain.Actor, contractID, reason string) (*entity.Contract, error)
	GetContract(ctx context.Context, actor domain.Actor, contractID string) (*entity.Contract, []*entity.Installment, error)
}

// PlanGenerator generación del plan de cuotas (libro de pagos).
type PlanGenerator interface {
	GeneratePaymentPlan(ctx context.Context, actor domain.Actor, contractID string) ([]*entity.Installment, error)
}

// ContractHandler maneja las peticiones HTTP de contratos (protegido).
type ContractHandler struct {
	uc   ContractService
	plan PlanGenerator
	log  *logger.Logger
}

// NewContractHandler construye el handler.
func NewContractHandler(uc ContractService, plan PlanGenerator, log *logger.Logger) *ContractHandler {
	return &ContractHandler{uc: uc, plan: plan, log: logger.OrNop(log).Component("http")}
}

// GetByID godoc
// @Summary      Obtener contrato con su plan de cuotas
// @Tags         contracts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del contrato"
// @Success      200  {object}  dto.ContractResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/contracts/{id} [get]
func (h *ContractHandler) GetByID(c *fiber.Ctx) error {
	ct, installments, err := h.uc.GetContract(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToContractResponse(ct, installments))
}

// UpdateStatus godoc
// @Summary      Cambiar el estado del contrato
// @Tags         contracts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                            true  "ID del contrato"
// @Param        body  body  dto.UpdateContractStatusRequest  true  "Estado destino"
// @Success      200   {object}  dto.ContractResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/contracts/{id}/status [patch]
func (h *ContractHandler) UpdateStatus(c *fiber.Ctx) error {
	var in dto.UpdateContractStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	to := entity.ContractStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	ct, err := h.uc.UpdateStatus(c.UserContext(), GetActor(c), c.Params("id"), to, contract.StatusExtra{
		SignedAt:     in.SignedAt,
		SaleClosedAt: in.SaleClosedAt,
		Reason:       strings.TrimSpace(in.Reason),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToContractResponse(ct, nil))
}

// Rescind godoc
// @Summary      Registrar distrato de una venta
// @Tags         contracts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del contrato"
// @Param        body  body  dto.RescissionRequest  true  "Motivo"
// @Success      200   {object}  dto.ContractResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/contracts/{id}/rescission [post]
func (h *ContractHandler) Rescind(c *fiber.Ctx) error {
	var in dto.RescissionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	ct, err := h.uc.RegisterRescission(c.UserContext(), GetActor(c), c.Params("id"), strings.TrimSpace(in.Reason))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToContractResponse(ct, nil))
}

// GeneratePlan godoc
// @Summary      Generar (o regenerar) el plan de cuotas
// @Tags         contracts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del contrato"
// @Success      201  {object}  dto.PaymentPlanResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/contracts/{id}/payment-plan [post]
func (h *ContractHandler) GeneratePlan(c *fiber.Ctx) error {
	contractID := c.Params("id")
	list, err := h.plan.GeneratePaymentPlan(c.UserContext(), GetActor(c), contractID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := dto.PaymentPlanResponse{ContractID: contractID, Installments: dto.ToInstallmentResponses(list)}
	if out.Installments == nil {
		out.Installments = []dto.InstallmentResponse{}
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
