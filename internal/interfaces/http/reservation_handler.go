package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/crm-inmobiliario/internal/application/contract"
	"github.com/jhoicas/crm-inmobiliario/internal/application/dto"
	"github.com/jhoicas/crm-inmobiliario/internal/application/reservation"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
)

// ReservationService lo que el handler usa del gestor de reservas.
type ReservationService interface {
	CreateReservation(ctx context.Context, actor domain.Actor, in reservation.CreateInput) (*entity.Reservation, error)
	CancelReservation(ctx context.Context, actor domain.Actor, reservationID, reason string) (*entity.Reservation, error)
	ExpireReservation(ctx context.Context, actor domain.Actor, reservationID string) (*entity.Reservation, error)
}

// ReservationConverter conversión de reserva en propuesta (motor de contratos).
type ReservationConverter interface {
	ConvertReservation(ctx context.Context, actor domain.Actor, reservationID string, terms contract.Terms) (*entity.Contract, error)
}

// ReservationHandler maneja las peticiones HTTP de reservas (protegido).
type ReservationHandler struct {
	uc        ReservationService
	converter ReservationConverter
	log       *logger.Logger
}

// NewReservationHandler construye el handler.
func NewReservationHandler(uc ReservationService, converter ReservationConverter, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{uc: uc, converter: converter, log: logger.OrNop(log).Component("http")}
}

// Create godoc
// @Summary      Reservar un ítem para un lead
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReservationRequest  true  "Lead, ítem y vencimiento"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.uc.CreateReservation(c.UserContext(), GetActor(c), reservation.CreateInput{
		LeadID:       strings.TrimSpace(in.LeadID),
		Item:         entity.ItemRef{Kind: entity.ItemKind(strings.ToUpper(strings.TrimSpace(in.ItemKind))), ID: strings.TrimSpace(in.ItemID)},
		ExpiresAt:    in.ExpiresAt,
		SignalAmount: in.SignalAmount,
		Notes:        in.Notes,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToReservationResponse(res))
}

// Cancel godoc
// @Summary      Cancelar una reserva
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                         true   "ID de la reserva"
// @Param        body  body  dto.CancelReservationRequest  false  "Motivo"
// @Success      200   {object}  dto.ReservationResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelReservationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	res, err := h.uc.CancelReservation(c.UserContext(), GetActor(c), c.Params("id"), strings.TrimSpace(in.Reason))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToReservationResponse(res))
}

// Expire godoc
// @Summary      Expirar una reserva vencida
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/expire [post]
func (h *ReservationHandler) Expire(c *fiber.Ctx) error {
	res, err := h.uc.ExpireReservation(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToReservationResponse(res))
}

// Convert godoc
// @Summary      Convertir la reserva en propuesta
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "ID de la reserva"
// @Param        body  body  dto.ConvertReservationRequest  true  "Condiciones comerciales"
// @Success      201   {object}  dto.ContractResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/convert [post]
func (h *ReservationHandler) Convert(c *fiber.Ctx) error {
	var in dto.ConvertReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	planTerms, rules := in.Terms()
	ct, err := h.converter.ConvertReservation(c.UserContext(), GetActor(c), c.Params("id"), contract.Terms{
		ProposedPrice:     in.ProposedPrice,
		ResponsibleUserID: strings.TrimSpace(in.ResponsibleUserID),
		PaymentPlanTerms:  planTerms,
		IndexationRules:   rules,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToContractResponse(ct, nil))
}
