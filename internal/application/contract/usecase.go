package contract

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/crm-inmobiliario/internal/application/ledger"
	"github.com/jhoicas/crm-inmobiliario/internal/application/pipeline"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
	"github.com/shopspring/decimal"
)

// UseCase motor de conversión: reserva → propuesta → contrato → venta (o distrato).
type UseCase struct {
	txRunner repository.TxRunner
	sync     *pipeline.Synchronizer
	log      *logger.Logger
	now      func() time.Time
}

// Option ajustes opcionales del motor.
type Option func(*UseCase)

// WithClock reemplaza el reloj.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// NewUseCase construye el motor de contratos.
func NewUseCase(txRunner repository.TxRunner, sync *pipeline.Synchronizer, log *logger.Logger, opts ...Option) *UseCase {
	uc := &UseCase{
		txRunner: txRunner,
		sync:     sync,
		log:      logger.OrNop(log).Component("contract"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Terms condiciones comerciales de la propuesta.
type Terms struct {
	ProposedPrice     *decimal.Decimal
	ResponsibleUserID string
	PaymentPlanTerms  []entity.PaymentPlanTerm
	IndexationRules   []entity.IndexationRule
}

func (t Terms) validate() error {
	if t.ProposedPrice == nil {
		return domain.Validation("precio propuesto requerido")
	}
	if !t.ProposedPrice.IsPositive() {
		return domain.Validation("el precio propuesto debe ser positivo")
	}
	if strings.TrimSpace(t.ResponsibleUserID) == "" {
		return domain.Validation("responsable requerido")
	}
	if err := ledger.ValidateTerms(t.PaymentPlanTerms); err != nil {
		return err
	}
	return ledger.ValidateRules(t.IndexationRules)
}

// ConvertReservation crea el contrato en DRAFTING desde una reserva ACTIVE: congela el snapshot,
// pasa la reserva a CONVERTED_TO_PROPOSAL, el ítem a PROPOSED y el lead a la etapa de propuesta.
func (uc *UseCase) ConvertReservation(ctx context.Context, actor domain.Actor, reservationID string, terms Terms) (*entity.Contract, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reservationID) == "" {
		return nil, domain.Validation("reservation_id requerido")
	}
	if err := terms.validate(); err != nil {
		return nil, err
	}
	now := uc.now()

	var c *entity.Contract
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		res, err := uow.Reservations.GetForUpdate(ctx, reservationID)
		if err != nil {
			return domain.AsPersistence("leer reserva", err)
		}
		if res == nil || res.CompanyID != actor.CompanyID {
			return domain.NotFound("reserva")
		}
		if res.Status != entity.ReservationActive {
			return domain.Conflict(nil, "la reserva no está activa (estado %s)", res.Status)
		}
		existing, err := uow.Contracts.GetByReservation(ctx, res.ID)
		if err != nil {
			return domain.AsPersistence("buscar contrato", err)
		}
		if existing != nil {
			return domain.Conflict(nil, "la reserva ya tiene el contrato %s", existing.ID)
		}

		lead, item, err := loadParties(ctx, uow, res)
		if err != nil {
			return err
		}
		if item.CurrentReservationID() != res.ID {
			return domain.Conflict(nil, "el ítem %s no está retenido por esta reserva", res.Item)
		}
		if err := checkResponsible(ctx, uow, actor.CompanyID, terms.ResponsibleUserID); err != nil {
			return err
		}

		c = entity.NewContract(entity.NewContractParams{
			ID:                uuid.New().String(),
			Reservation:       res,
			Lead:              lead,
			Item:              item,
			ProposedPrice:     *terms.ProposedPrice,
			PaymentPlanTerms:  terms.PaymentPlanTerms,
			IndexationRules:   terms.IndexationRules,
			ResponsibleUserID: terms.ResponsibleUserID,
			CreatedBy:         actor.UserID,
			Now:               now,
		})
		if err := uow.Contracts.Create(ctx, c); err != nil {
			return domain.AsPersistence("crear contrato", err)
		}

		res.Status = entity.ReservationConvertedToProposal
		res.ContractID = &c.ID
		res.UpdatedAt = now
		if err := uow.Reservations.Update(ctx, res); err != nil {
			return domain.AsPersistence("actualizar reserva", err)
		}
		item.MarkProposed(now)
		if err := uow.Items.SaveAvailability(ctx, item); err != nil {
			return domain.AsPersistence("actualizar ítem", err)
		}

		return uc.sync.Advance(ctx, uow, lead, uc.sync.Names().ProposalIssued, pipeline.Transition{
			Actor:  actor,
			Action: entity.ActionContractCreated,
			Details: map[string]any{
				"contract_id":    c.ID,
				"reservation_id": res.ID,
				"proposed_price": c.ProposedPrice.String(),
				"discount":       c.Discount.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("contract_id", c.ID).
		Str("reservation_id", reservationID).
		Str("discount", c.Discount.StringFixed(2)).
		Msg("reserva convertida en propuesta")
	return c, nil
}

// StatusExtra campos que exigen algunas transiciones.
type StatusExtra struct {
	SignedAt     *time.Time
	SaleClosedAt *time.Time
	Reason       string
}

// UpdateStatus avanza la máquina de estados del contrato.
// SIGNED exige SignedAt; SOLD exige SaleClosedAt y marca el ítem como vendido.
// REFUSED/CANCELLED liberan el ítem, cancelan la reserva y las cuotas abiertas.
func (uc *UseCase) UpdateStatus(ctx context.Context, actor domain.Actor, contractID string, to entity.ContractStatus, extra StatusExtra) (*entity.Contract, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, domain.Validation("estado desconocido: %q", to)
	}
	switch {
	case to == entity.ContractSigned && extra.SignedAt == nil:
		return nil, domain.Validation("signed_at requerido para pasar a %s", to)
	case to == entity.ContractSold && extra.SaleClosedAt == nil:
		return nil, domain.Validation("sale_closed_at requerido para pasar a %s", to)
	}
	now := uc.now()

	var c *entity.Contract
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		c, err = uow.Contracts.GetForUpdate(ctx, contractID)
		if err != nil {
			return domain.AsPersistence("leer contrato", err)
		}
		if c == nil || c.CompanyID != actor.CompanyID {
			return domain.NotFound("contrato")
		}
		from := c.Status
		if !entity.CanTransition(from, to) {
			return &domain.TransitionError{Entity: "contrato", From: string(from), To: string(to)}
		}

		res, err := uow.Reservations.GetForUpdate(ctx, c.ReservationID)
		if err != nil {
			return domain.AsPersistence("leer reserva", err)
		}
		if res == nil {
			return domain.NotFound("reserva")
		}
		lead, item, err := loadParties(ctx, uow, res)
		if err != nil {
			return err
		}

		t := pipeline.Transition{
			Actor:  actor,
			Action: entity.ActionContractStatus,
			Details: map[string]any{
				"contract_id": c.ID,
				"from_status": string(from),
				"to_status":   string(to),
			},
		}
		if extra.Reason != "" {
			t.Details["reason"] = extra.Reason
		}

		c.Status = to
		c.UpdatedAt = now
		names := uc.sync.Names()
		var stage string
		switch to {
		case entity.ContractAwaitingSignature:
			stage = names.AwaitingSignature
		case entity.ContractSigned:
			signed := *extra.SignedAt
			c.SignedAt = &signed
			stage = names.ContractSigned
		case entity.ContractSold:
			closed := *extra.SaleClosedAt
			c.SaleClosedAt = &closed
			item.MarkSold(now)
			if err := uow.Items.SaveAvailability(ctx, item); err != nil {
				return domain.AsPersistence("actualizar ítem", err)
			}
			if err := setReservationStatus(ctx, uow, res, entity.ReservationConvertedToSale, now); err != nil {
				return err
			}
			stage = names.Sold
		case entity.ContractRefused, entity.ContractCancelled:
			if item.CurrentReservationID() == res.ID {
				item.Release(now)
				if err := uow.Items.SaveAvailability(ctx, item); err != nil {
					return domain.AsPersistence("liberar ítem", err)
				}
			}
			if err := setReservationStatus(ctx, uow, res, entity.ReservationCancelled, now); err != nil {
				return err
			}
			n, err := cancelOpenInstallments(ctx, uow, c.ID, now)
			if err != nil {
				return err
			}
			t.Details["cancelled_installments"] = n
		}

		if err := uow.Contracts.Update(ctx, c); err != nil {
			return domain.AsPersistence("actualizar contrato", err)
		}
		if stage == "" {
			return uc.sync.Record(ctx, uow, lead, t)
		}
		return uc.sync.Advance(ctx, uow, lead, stage, t)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("contract_id", c.ID).Str("status", string(c.Status)).Msg("estado del contrato actualizado")
	return c, nil
}

// RegisterRescission distrato: único camino por el que un ítem vendido vuelve a estar disponible.
func (uc *UseCase) RegisterRescission(ctx context.Context, actor domain.Actor, contractID, reason string) (*entity.Contract, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.Validation("motivo del distrato requerido")
	}
	now := uc.now()

	var c *entity.Contract
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		c, err = uow.Contracts.GetForUpdate(ctx, contractID)
		if err != nil {
			return domain.AsPersistence("leer contrato", err)
		}
		if c == nil || c.CompanyID != actor.CompanyID {
			return domain.NotFound("contrato")
		}
		if c.Status != entity.ContractSold {
			return &domain.TransitionError{Entity: "contrato", From: string(c.Status), To: string(entity.ContractRescinded)}
		}
		res, err := uow.Reservations.GetForUpdate(ctx, c.ReservationID)
		if err != nil {
			return domain.AsPersistence("leer reserva", err)
		}
		if res == nil {
			return domain.NotFound("reserva")
		}
		lead, item, err := loadParties(ctx, uow, res)
		if err != nil {
			return err
		}

		c.Status = entity.ContractRescinded
		c.RescindedAt = &now
		c.RescissionReason = reason
		c.UpdatedAt = now
		if err := uow.Contracts.Update(ctx, c); err != nil {
			return domain.AsPersistence("actualizar contrato", err)
		}
		item.Release(now)
		if err := uow.Items.SaveAvailability(ctx, item); err != nil {
			return domain.AsPersistence("liberar ítem", err)
		}
		if err := setReservationStatus(ctx, uow, res, entity.ReservationRescinded, now); err != nil {
			return err
		}
		n, err := cancelOpenInstallments(ctx, uow, c.ID, now)
		if err != nil {
			return err
		}

		return uc.sync.Advance(ctx, uow, lead, uc.sync.Names().Rescinded, pipeline.Transition{
			Actor:  actor,
			Action: entity.ActionContractRescinded,
			Details: map[string]any{
				"contract_id":            c.ID,
				"reason":                 reason,
				"cancelled_installments": n,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	uc.log.Warn().Str("contract_id", c.ID).Str("reason", reason).Msg("distrato registrado")
	return c, nil
}

// GetContract contrato y sus cuotas.
func (uc *UseCase) GetContract(ctx context.Context, actor domain.Actor, contractID string) (*entity.Contract, []*entity.Installment, error) {
	if err := actor.Validate(); err != nil {
		return nil, nil, err
	}
	var (
		c    *entity.Contract
		list []*entity.Installment
	)
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		c, err = uow.Contracts.GetByID(ctx, contractID)
		if err != nil {
			return domain.AsPersistence("leer contrato", err)
		}
		if c == nil || c.CompanyID != actor.CompanyID {
			return domain.NotFound("contrato")
		}
		list, err = uow.Installments.ListByContract(ctx, c.ID)
		return domain.AsPersistence("leer cuotas", err)
	})
	if err != nil {
		return nil, nil, err
	}
	return c, list, nil
}

// loadParties bloquea lead e ítem de la reserva, en ese orden.
func loadParties(ctx context.Context, uow *repository.UnitOfWork, res *entity.Reservation) (*entity.Lead, entity.Item, error) {
	lead, err := uow.Leads.GetForUpdate(ctx, res.LeadID)
	if err != nil {
		return nil, nil, domain.AsPersistence("leer lead", err)
	}
	if lead == nil {
		return nil, nil, domain.NotFound("lead")
	}
	item, err := uow.Items.GetForUpdate(ctx, res.Item)
	if err != nil {
		return nil, nil, domain.AsPersistence("leer ítem", err)
	}
	if item == nil {
		return nil, nil, domain.NotFound("ítem")
	}
	return lead, item, nil
}

// checkResponsible el responsable debe existir, estar activo y pertenecer a la empresa.
func checkResponsible(ctx context.Context, uow *repository.UnitOfWork, companyID, userID string) error {
	u, err := uow.Users.GetByID(ctx, userID)
	if err != nil {
		return domain.AsPersistence("leer responsable", err)
	}
	if u == nil || u.CompanyID != companyID || !u.IsActive() {
		return domain.NotFound("responsable")
	}
	return nil
}

func setReservationStatus(ctx context.Context, uow *repository.UnitOfWork, res *entity.Reservation, status entity.ReservationStatus, now time.Time) error {
	res.Status = status
	res.UpdatedAt = now
	if err := uow.Reservations.Update(ctx, res); err != nil {
		return domain.AsPersistence("actualizar reserva", err)
	}
	return nil
}

func cancelOpenInstallments(ctx context.Context, uow *repository.UnitOfWork, contractID string, now time.Time) (int, error) {
	list, err := uow.Installments.ListByContractForUpdate(ctx, contractID)
	if err != nil {
		return 0, domain.AsPersistence("leer cuotas", err)
	}
	n := 0
	for _, inst := range list {
		if !inst.Cancel(now) {
			continue
		}
		if err := uow.Installments.Update(ctx, inst); err != nil {
			return n, domain.AsPersistence("cancelar cuota", err)
		}
		n++
	}
	return n, nil
}
