package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
	"github.com/shopspring/decimal"
)

// UseCase libro financiero: plan de cuotas, pagos y reajuste por índice.
type UseCase struct {
	txRunner          repository.TxRunner
	log               *logger.Logger
	now               func() time.Time
	rejectOverpayment bool
}

// Option ajustes opcionales del libro.
type Option func(*UseCase)

// WithClock reemplaza el reloj.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// WithRejectOverpayment rechaza (Conflict) pagos que dejarían amount_paid por encima de amount_due.
func WithRejectOverpayment(reject bool) Option {
	return func(uc *UseCase) { uc.rejectOverpayment = reject }
}

// NewUseCase construye el libro.
func NewUseCase(txRunner repository.TxRunner, log *logger.Logger, opts ...Option) *UseCase {
	uc := &UseCase{
		txRunner: txRunner,
		log:      logger.OrNop(log).Component("ledger"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// GeneratePaymentPlan reemplaza las cuotas del contrato por las que salen de sus condiciones.
// Se rechaza si alguna cuota ya recibió pagos: regenerar borraría dinero registrado.
func (uc *UseCase) GeneratePaymentPlan(ctx context.Context, actor domain.Actor, contractID string) ([]*entity.Installment, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(contractID) == "" {
		return nil, domain.Validation("contract_id requerido")
	}
	now := uc.now()

	var plan []*entity.Installment
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		c, err := uow.Contracts.GetForUpdate(ctx, contractID)
		if err != nil {
			return domain.AsPersistence("leer contrato", err)
		}
		if c == nil || c.CompanyID != actor.CompanyID {
			return domain.NotFound("contrato")
		}
		if c.Status.IsClosed() {
			return domain.InvalidState("el contrato está %s; no admite plan de pagos", c.Status)
		}

		current, err := uow.Installments.ListByContractForUpdate(ctx, c.ID)
		if err != nil {
			return domain.AsPersistence("leer cuotas", err)
		}
		for _, inst := range current {
			if inst.AmountPaid.IsPositive() {
				return domain.Conflict(nil, "la cuota %d ya tiene pagos; no se puede regenerar el plan", inst.SequenceNumber)
			}
		}

		plan, err = ExpandPlan(c.PaymentPlanTerms)
		if err != nil {
			return err
		}
		for _, inst := range plan {
			inst.ID = uuid.New().String()
			inst.ContractID = c.ID
			inst.LeadID = c.LeadID
			inst.CompanyID = c.CompanyID
			inst.CreatedAt = now
			inst.UpdatedAt = now
		}
		if err := uow.Installments.DeleteByContract(ctx, c.ID); err != nil {
			return domain.AsPersistence("borrar cuotas", err)
		}
		if err := uow.Installments.CreateBatch(ctx, plan); err != nil {
			return domain.AsPersistence("crear cuotas", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("contract_id", contractID).Int("installments", len(plan)).Msg("plan de pagos generado")
	return plan, nil
}

// RecordPaymentInput datos de un pago contra una cuota.
type RecordPaymentInput struct {
	InstallmentID string
	Amount        decimal.Decimal
	Method        string
	PaidOn        time.Time // vacío = hoy
}

// RecordPayment inserta el pago y suma el monto a la cuota en la misma transacción.
// Un pago sobre una cuota ya liquidada solo queda en el libro (ver WithRejectOverpayment).
func (uc *UseCase) RecordPayment(ctx context.Context, actor domain.Actor, in RecordPaymentInput) (*entity.Payment, *entity.Installment, error) {
	if err := actor.Validate(); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(in.InstallmentID) == "" {
		return nil, nil, domain.Validation("installment_id requerido")
	}
	if !in.Amount.IsPositive() {
		return nil, nil, domain.Validation("el monto debe ser mayor a cero")
	}
	method := strings.ToUpper(strings.TrimSpace(in.Method))
	if !entity.ValidPaymentMethod(method) {
		return nil, nil, domain.Validation("método de pago inválido: %q", in.Method)
	}
	now := uc.now()
	paidOn := in.PaidOn
	if paidOn.IsZero() {
		paidOn = now
	}

	var (
		pay  *entity.Payment
		inst *entity.Installment
	)
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		inst, err = uow.Installments.GetForUpdate(ctx, in.InstallmentID)
		if err != nil {
			return domain.AsPersistence("leer cuota", err)
		}
		if inst == nil || inst.CompanyID != actor.CompanyID {
			return domain.NotFound("cuota")
		}
		if inst.Status == entity.InstallmentCancelled {
			return domain.InvalidState("la cuota %d está cancelada", inst.SequenceNumber)
		}
		c, err := uow.Contracts.GetByID(ctx, inst.ContractID)
		if err != nil {
			return domain.AsPersistence("leer contrato", err)
		}
		if c == nil {
			return domain.NotFound("contrato")
		}
		if c.Status.IsClosed() {
			return domain.InvalidState("el contrato está %s; no recibe pagos", c.Status)
		}
		if uc.rejectOverpayment && inst.AmountPaid.Add(in.Amount).GreaterThan(inst.AmountDue) {
			return domain.Conflict(nil, "el pago supera el saldo de la cuota (%s)", inst.Balance().StringFixed(2))
		}

		pay = &entity.Payment{
			ID:            uuid.New().String(),
			InstallmentID: inst.ID,
			ContractID:    inst.ContractID,
			LeadID:        inst.LeadID,
			CompanyID:     inst.CompanyID,
			Amount:        in.Amount,
			Method:        method,
			PaidOn:        paidOn,
			RecordedBy:    actor.UserID,
			CreatedAt:     now,
		}
		if err := uow.Payments.Create(ctx, pay); err != nil {
			return domain.AsPersistence("registrar pago", err)
		}
		inst.ApplyPayment(in.Amount, paidOn, now)
		if err := uow.Installments.Update(ctx, inst); err != nil {
			return domain.AsPersistence("actualizar cuota", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	ev := uc.log.Info()
	if inst.Balance().IsNegative() {
		ev = uc.log.Warn().Str("overpaid", inst.Balance().Neg().StringFixed(2))
	}
	ev.Str("installment_id", inst.ID).
		Str("amount", in.Amount.StringFixed(2)).
		Str("status", string(inst.Status)).
		Msg("pago registrado")
	return pay, inst, nil
}

// ApplyIndexation calcula el reajuste de la cuota sin persistir nada.
func (uc *UseCase) ApplyIndexation(ctx context.Context, actor domain.Actor, installmentID string) (*IndexationResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	var res *IndexationResult
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		inst, err := uow.Installments.GetByID(ctx, installmentID)
		if err != nil {
			return domain.AsPersistence("leer cuota", err)
		}
		if inst == nil || inst.CompanyID != actor.CompanyID {
			return domain.NotFound("cuota")
		}
		c, err := uow.Contracts.GetByID(ctx, inst.ContractID)
		if err != nil {
			return domain.AsPersistence("leer contrato", err)
		}
		if c == nil {
			return domain.NotFound("contrato")
		}
		res, err = uc.compute(ctx, uow, inst, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PersistIndexation guarda el monto reajustado en una cuota abierta sin pagos.
// Se calcula siempre sobre el monto original del plan, así que repetirlo no acumula.
func (uc *UseCase) PersistIndexation(ctx context.Context, actor domain.Actor, installmentID string) (*entity.Installment, *IndexationResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, nil, err
	}
	now := uc.now()
	var (
		inst *entity.Installment
		res  *IndexationResult
	)
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		inst, err = uow.Installments.GetForUpdate(ctx, installmentID)
		if err != nil {
			return domain.AsPersistence("leer cuota", err)
		}
		if inst == nil || inst.CompanyID != actor.CompanyID {
			return domain.NotFound("cuota")
		}
		if !inst.IsOpen() {
			return domain.InvalidState("la cuota %d está %s", inst.SequenceNumber, inst.Status)
		}
		if inst.AmountPaid.IsPositive() {
			return domain.Conflict(nil, "la cuota %d ya tiene pagos; no se reajusta", inst.SequenceNumber)
		}
		c, err := uow.Contracts.GetByID(ctx, inst.ContractID)
		if err != nil {
			return domain.AsPersistence("leer contrato", err)
		}
		if c == nil {
			return domain.NotFound("contrato")
		}
		if c.Status.IsClosed() {
			return domain.InvalidState("el contrato está %s", c.Status)
		}
		res, err = uc.compute(ctx, uow, inst, c)
		if err != nil {
			return err
		}
		if !res.Applied || res.AdjustedAmount.Equal(inst.AmountDue) {
			return nil
		}
		inst.BaseAmount = res.OriginalAmount
		inst.AmountDue = res.AdjustedAmount
		inst.UpdatedAt = now
		if err := uow.Installments.Update(ctx, inst); err != nil {
			return domain.AsPersistence("actualizar cuota", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	uc.log.Info().
		Str("installment_id", inst.ID).
		Str("factor", res.Factor.String()).
		Str("amount_due", inst.AmountDue.StringFixed(2)).
		Msg("reajuste aplicado")
	return inst, res, nil
}

func (uc *UseCase) compute(ctx context.Context, uow *repository.UnitOfWork, inst *entity.Installment, c *entity.Contract) (*IndexationResult, error) {
	var series []entity.IndexValue
	if rule := MatchRule(c.IndexationRules, inst.Kind); rule != nil {
		if from, to, inside := window(rule, inst.DueDate); inside && from.Before(to) {
			var err error
			series, err = uow.Indexes.ListRange(ctx, rule.Index, from, to)
			if err != nil {
				return nil, domain.AsPersistence("leer serie del índice", err)
			}
		}
	}
	return ComputeIndexation(inst, c.IndexationRules, series)
}

// MarkOverdue pasa a OVERDUE las cuotas pendientes vencidas antes de hoy.
func (uc *UseCase) MarkOverdue(ctx context.Context) (int64, error) {
	today := uc.now()
	var n int64
	err := uc.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		n, err = uow.Installments.MarkOverdue(ctx, today)
		return domain.AsPersistence("marcar cuotas vencidas", err)
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		uc.log.Info().Int64("installments", n).Msg("cuotas marcadas como vencidas")
	}
	return n, nil
}
