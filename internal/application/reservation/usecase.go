package reservation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/crm-inmobiliario/internal/application/pipeline"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
	"github.com/shopspring/decimal"
)

// UseCase gestor de reservas: único escritor que mueve un ítem de AVAILABLE a RESERVED y de vuelta.
// La exclusión entre pedidos concurrentes la garantiza la base (bloqueo de fila del ítem
// + índice único parcial de reservas ACTIVE), nunca un mutex del proceso.
type UseCase struct {
	txRunner repository.TxRunner
	sync     *pipeline.Synchronizer
	log      *logger.Logger
	now      func() time.Time
}

// Option ajustes opcionales del caso de uso.
type Option func(*UseCase)

// WithClock reemplaza el reloj (tests y barridos).
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// NewUseCase construye el gestor de reservas.
func NewUseCase(txRunner repository.TxRunner, sync *pipeline.Synchronizer, log *logger.Logger, opts ...Option) *UseCase {
	uc := &UseCase{
		txRunner: txRunner,
		sync:     sync,
		log:      logger.OrNop(log).Component("reservation"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CreateInput datos para reservar un ítem para un lead.
type CreateInput struct {
	LeadID       string
	Item         entity.ItemRef
	ExpiresAt    time.Time
	SignalAmount *decimal.Decimal
	Notes        string
}

func (in CreateInput) validate(now time.Time) error {
	if strings.TrimSpace(in.LeadID) == "" {
		return domain.Validation("lead_id requerido")
	}
	if !in.Item.Kind.Valid() || strings.TrimSpace(in.Item.ID) == "" {
		return domain.Validation("ítem inválido: tipo UNIT o PROPERTY e id requeridos")
	}
	if in.ExpiresAt.IsZero() {
		return domain.Validation("fecha de expiración requerida")
	}
	if !in.ExpiresAt.After(now) {
		return domain.Validation("la fecha de expiración debe ser futura")
	}
	if in.SignalAmount != nil && in.SignalAmount.IsNegative() {
		return domain.Validation("el valor de la señal no puede ser negativo")
	}
	return nil
}

// CreateReservation reserva el ítem en una sola unidad atómica: inserta la reserva ACTIVE,
// marca el ítem RESERVED, lleva al lead a la etapa de reserva y agrega el historial.
func (uc *UseCase) CreateReservation(ctx context.Context, actor domain.Actor, in CreateInput) (*entity.Reservation, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	now := uc.now()
	if err := in.validate(now); err != nil {
		return nil, err
	}

	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		lead, err := uow.Leads.GetForUpdate(ctx, in.LeadID)
		if err != nil {
			return domain.AsPersistence("leer lead", err)
		}
		if lead == nil || lead.CompanyID != actor.CompanyID {
			return domain.NotFound("lead")
		}
		if uc.sync.IsTerminal(lead) {
			return domain.InvalidState("el lead está en una etapa final (%s)", lead.StageName)
		}

		// Fast-path: la fila del ítem queda bloqueada hasta el commit; un segundo pedido
		// espera aquí y luego ve el estado ya cambiado.
		item, err := uow.Items.GetForUpdate(ctx, in.Item)
		if err != nil {
			return domain.AsPersistence("leer ítem", err)
		}
		if item == nil {
			return domain.NotFound("ítem")
		}
		if item.CompanyID() != lead.CompanyID {
			return domain.Validation("el ítem y el lead pertenecen a empresas distintas")
		}
		if !item.IsActive() {
			return domain.Conflict(nil, "el ítem está desactivado")
		}
		if item.Status() != entity.ItemStatusAvailable {
			return domain.Conflict(nil, "el ítem ya no está disponible (estado %s)", item.Status())
		}

		res = entity.NewReservation(uuid.New().String(), lead, item, in.ExpiresAt, in.SignalAmount, actor.UserID, now)
		res.Notes = in.Notes
		// Respaldo de correctitud: el índice único parcial rechaza una segunda ACTIVE.
		if err := uow.Reservations.Create(ctx, res); err != nil {
			return domain.AsPersistence("crear reserva", err)
		}

		item.Hold(res.ID, lead.ID, now)
		if err := uow.Items.SaveAvailability(ctx, item); err != nil {
			return domain.AsPersistence("actualizar ítem", err)
		}

		return uc.sync.Advance(ctx, uow, lead, uc.sync.Names().InReservation, pipeline.Transition{
			Actor:  actor,
			Action: entity.ActionReservationCreated,
			Details: map[string]any{
				"reservation_id": res.ID,
				"item":           res.Item.String(),
				"expires_at":     res.ExpiresAt.Format(time.RFC3339),
			},
		})
	})
	if err != nil {
		uc.log.Debug().Err(err).Str("lead_id", in.LeadID).Str("item", in.Item.String()).Msg("reserva rechazada")
		return nil, err
	}
	uc.log.Info().
		Str("reservation_id", res.ID).
		Str("lead_id", res.LeadID).
		Str("item", res.Item.String()).
		Msg("reserva creada")
	return res, nil
}

// ExpireReservation vence una reserva ACTIVE/PENDING cuyo plazo ya pasó y libera el ítem.
func (uc *UseCase) ExpireReservation(ctx context.Context, actor domain.Actor, reservationID string) (*entity.Reservation, error) {
	return uc.release(ctx, actor, reservationID, entity.ReservationExpired, "")
}

// CancelReservation cancela una reserva ACTIVE/PENDING y libera el ítem.
func (uc *UseCase) CancelReservation(ctx context.Context, actor domain.Actor, reservationID, reason string) (*entity.Reservation, error) {
	return uc.release(ctx, actor, reservationID, entity.ReservationCancelled, reason)
}

// release cierra la reserva y devuelve el ítem a AVAILABLE si todavía apunta a ella.
// La etapa del lead no se revierte: queda una entrada de historial para que el flujo
// comercial decida el siguiente paso.
func (uc *UseCase) release(ctx context.Context, actor domain.Actor, reservationID string, to entity.ReservationStatus, reason string) (*entity.Reservation, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reservationID) == "" {
		return nil, domain.Validation("reservation_id requerido")
	}
	now := uc.now()

	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		res, err = uow.Reservations.GetForUpdate(ctx, reservationID)
		if err != nil {
			return domain.AsPersistence("leer reserva", err)
		}
		if res == nil || res.CompanyID != actor.CompanyID {
			return domain.NotFound("reserva")
		}
		if !res.IsOpen() {
			return &domain.TransitionError{Entity: "reserva", From: string(res.Status), To: string(to)}
		}
		if to == entity.ReservationExpired && now.Before(res.ExpiresAt) {
			return domain.InvalidState("la reserva vence el %s", res.ExpiresAt.Format(time.RFC3339))
		}

		// Orden de bloqueo: reserva, lead, ítem (el mismo que usan contratos).
		lead, err := uow.Leads.GetForUpdate(ctx, res.LeadID)
		if err != nil {
			return domain.AsPersistence("leer lead", err)
		}
		if lead == nil {
			return domain.NotFound("lead")
		}
		item, err := uow.Items.GetForUpdate(ctx, res.Item)
		if err != nil {
			return domain.AsPersistence("leer ítem", err)
		}
		if item == nil {
			return domain.NotFound("ítem")
		}

		from := res.Status
		res.Status = to
		res.UpdatedAt = now
		if err := uow.Reservations.Update(ctx, res); err != nil {
			return domain.AsPersistence("actualizar reserva", err)
		}
		if item.CurrentReservationID() == res.ID {
			item.Release(now)
			if err := uow.Items.SaveAvailability(ctx, item); err != nil {
				return domain.AsPersistence("liberar ítem", err)
			}
		}

		action := entity.ActionReservationCancelled
		if to == entity.ReservationExpired {
			action = entity.ActionReservationExpired
		}
		details := map[string]any{
			"reservation_id": res.ID,
			"item":           res.Item.String(),
			"from_status":    string(from),
		}
		if reason != "" {
			details["reason"] = reason
		}
		return uc.sync.Record(ctx, uow, lead, pipeline.Transition{Actor: actor, Action: action, Details: details})
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("reservation_id", res.ID).Str("status", string(res.Status)).Msg("reserva cerrada")
	return res, nil
}
