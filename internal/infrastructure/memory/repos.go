package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Los repositorios devuelven copias: un cambio que no pase por Save/Update no llega al estado.

type itemRepo struct{ st *state }

func (r itemRepo) Get(_ context.Context, ref entity.ItemRef) (entity.Item, error) {
	if it, ok := r.st.items[ref]; ok {
		return cloneItem(it), nil
	}
	return nil, nil
}

func (r itemRepo) GetForUpdate(ctx context.Context, ref entity.ItemRef) (entity.Item, error) {
	return r.Get(ctx, ref)
}

func (r itemRepo) SaveAvailability(_ context.Context, item entity.Item) error {
	if _, ok := r.st.items[item.Ref()]; !ok {
		return domain.NotFound("ítem")
	}
	r.st.items[item.Ref()] = cloneItem(item)
	return nil
}

type leadRepo struct{ st *state }

func (r leadRepo) GetForUpdate(_ context.Context, id string) (*entity.Lead, error) {
	l, ok := r.st.leads[id]
	if !ok {
		return nil, nil
	}
	return r.st.withStage(l), nil
}

func (r leadRepo) UpdateStage(_ context.Context, leadID, stageID string) error {
	l, ok := r.st.leads[leadID]
	if !ok {
		return domain.NotFound("lead")
	}
	l.StageID = stageID
	l.UpdatedAt = time.Now().UTC()
	return nil
}

type stageRepo struct{ st *state }

func (r stageRepo) GetByID(_ context.Context, id string) (*entity.PipelineStage, error) {
	s, ok := r.st.stages[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r stageRepo) GetOrCreate(_ context.Context, stage *entity.PipelineStage) (*entity.PipelineStage, bool, error) {
	key := stageKey(stage.CompanyID, stage.NameKey)
	if id, ok := r.st.stageKeys[key]; ok {
		cp := *r.st.stages[id]
		return &cp, false, nil
	}
	cp := *stage
	r.st.stages[cp.ID] = &cp
	r.st.stageKeys[key] = cp.ID
	out := cp
	return &out, true, nil
}

type historyRepo struct{ st *state }

func (r historyRepo) Record(_ context.Context, entry *entity.LeadHistory) error {
	cp := *entry
	r.st.history = append(r.st.history, &cp)
	return nil
}

func (r historyRepo) ListByLead(_ context.Context, leadID string) ([]*entity.LeadHistory, error) {
	var out []*entity.LeadHistory
	for _, h := range r.st.history {
		if h.LeadID == leadID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

type reservationRepo struct{ st *state }

func (r reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	if _, ok := r.st.reservations[res.ID]; ok {
		return domain.Conflict(nil, "reserva duplicada")
	}
	if res.Status == entity.ReservationActive {
		for _, other := range r.st.reservations {
			if other.Item == res.Item && other.Status == entity.ReservationActive {
				return domain.Conflict(nil, "el ítem ya tiene una reserva activa")
			}
		}
	}
	r.st.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r reservationRepo) GetByID(_ context.Context, id string) (*entity.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, nil
	}
	return cloneReservation(res), nil
}

func (r reservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r reservationRepo) Update(_ context.Context, res *entity.Reservation) error {
	if _, ok := r.st.reservations[res.ID]; !ok {
		return domain.NotFound("reserva")
	}
	if res.Status == entity.ReservationActive {
		for id, other := range r.st.reservations {
			if id != res.ID && other.Item == res.Item && other.Status == entity.ReservationActive {
				return domain.Conflict(nil, "el ítem ya tiene una reserva activa")
			}
		}
	}
	r.st.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r reservationRepo) CountActiveByItem(_ context.Context, ref entity.ItemRef) (int, error) {
	n := 0
	for _, res := range r.st.reservations {
		if res.Item == ref && res.Status == entity.ReservationActive {
			n++
		}
	}
	return n, nil
}

func (r reservationRepo) ListExpired(_ context.Context, now time.Time, after *repository.ExpiryCursor, limit int) ([]*entity.Reservation, error) {
	var out []*entity.Reservation
	for _, res := range r.st.reservations {
		if !res.IsOpen() || res.ExpiresAt.After(now) {
			continue
		}
		if after != nil && !expiryAfter(res.ExpiresAt, res.ID, after) {
			continue
		}
		out = append(out, cloneReservation(res))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func expiryAfter(at time.Time, id string, c *repository.ExpiryCursor) bool {
	if at.Equal(c.ExpiresAt) {
		return id > c.ID
	}
	return at.After(c.ExpiresAt)
}

type contractRepo struct{ st *state }

func (r contractRepo) Create(_ context.Context, c *entity.Contract) error {
	for _, other := range r.st.contracts {
		if other.ID == c.ID || other.ReservationID == c.ReservationID {
			return domain.Conflict(nil, "la reserva ya tiene un contrato")
		}
	}
	r.st.contracts[c.ID] = cloneContract(c)
	return nil
}

func (r contractRepo) GetByID(_ context.Context, id string) (*entity.Contract, error) {
	c, ok := r.st.contracts[id]
	if !ok {
		return nil, nil
	}
	return cloneContract(c), nil
}

func (r contractRepo) GetForUpdate(ctx context.Context, id string) (*entity.Contract, error) {
	return r.GetByID(ctx, id)
}

func (r contractRepo) GetByReservation(_ context.Context, reservationID string) (*entity.Contract, error) {
	for _, c := range r.st.contracts {
		if c.ReservationID == reservationID {
			return cloneContract(c), nil
		}
	}
	return nil, nil
}

func (r contractRepo) Update(_ context.Context, c *entity.Contract) error {
	if _, ok := r.st.contracts[c.ID]; !ok {
		return domain.NotFound("contrato")
	}
	r.st.contracts[c.ID] = cloneContract(c)
	return nil
}

type installmentRepo struct{ st *state }

func (r installmentRepo) CreateBatch(_ context.Context, list []*entity.Installment) error {
	for _, inst := range list {
		for _, other := range r.st.installments {
			if other.ID == inst.ID || (other.ContractID == inst.ContractID && other.SequenceNumber == inst.SequenceNumber) {
				return domain.Conflict(nil, "cuota %d duplicada", inst.SequenceNumber)
			}
		}
		r.st.installments[inst.ID] = cloneInstallment(inst)
	}
	return nil
}

func (r installmentRepo) GetByID(_ context.Context, id string) (*entity.Installment, error) {
	inst, ok := r.st.installments[id]
	if !ok {
		return nil, nil
	}
	return cloneInstallment(inst), nil
}

func (r installmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Installment, error) {
	return r.GetByID(ctx, id)
}

func (r installmentRepo) ListByContractForUpdate(_ context.Context, contractID string) ([]*entity.Installment, error) {
	return r.st.installmentsOf(contractID), nil
}

func (r installmentRepo) ListByContract(_ context.Context, contractID string) ([]*entity.Installment, error) {
	return r.st.installmentsOf(contractID), nil
}

func (r installmentRepo) DeleteByContract(_ context.Context, contractID string) error {
	for id, inst := range r.st.installments {
		if inst.ContractID == contractID {
			delete(r.st.installments, id)
		}
	}
	return nil
}

func (r installmentRepo) Update(_ context.Context, inst *entity.Installment) error {
	if _, ok := r.st.installments[inst.ID]; !ok {
		return domain.NotFound("cuota")
	}
	r.st.installments[inst.ID] = cloneInstallment(inst)
	return nil
}

func (r installmentRepo) MarkOverdue(_ context.Context, today time.Time) (int64, error) {
	var n int64
	for _, inst := range r.st.installments {
		if inst.Status == entity.InstallmentPending && dateOnly(inst.DueDate).Before(dateOnly(today)) {
			inst.Status = entity.InstallmentOverdue
			inst.UpdatedAt = today
			n++
		}
	}
	return n, nil
}

type paymentRepo struct{ st *state }

func (r paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	cp := *p
	r.st.payments = append(r.st.payments, &cp)
	return nil
}

func (r paymentRepo) SumByInstallment(_ context.Context, installmentID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range r.st.payments {
		if p.InstallmentID == installmentID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

type indexRepo struct{ st *state }

func (r indexRepo) ListRange(_ context.Context, index string, from, to time.Time) ([]entity.IndexValue, error) {
	from, to = monthStart(from), monthStart(to)
	var out []entity.IndexValue
	for _, v := range r.st.indexes[strings.ToUpper(index)] {
		if !v.Month.Before(from) && v.Month.Before(to) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

type userRepo struct{ st *state }

func (r userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// ---------------------------------------------------------------------------
// Copias y utilidades
// ---------------------------------------------------------------------------

func (st *state) withStage(l *entity.Lead) *entity.Lead {
	cp := cloneLead(l)
	if s, ok := st.stages[l.StageID]; ok {
		cp.StageName = s.Name
		cp.StageTerminal = s.Terminal
	}
	return cp
}

func (st *state) installmentsOf(contractID string) []*entity.Installment {
	var out []*entity.Installment
	for _, inst := range st.installments {
		if inst.ContractID == contractID {
			out = append(out, cloneInstallment(inst))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out
}

func cloneItem(it entity.Item) entity.Item {
	switch v := it.(type) {
	case *entity.Unit:
		cp := *v
		return &cp
	case *entity.StandaloneProperty:
		cp := *v
		return &cp
	}
	return it
}

func cloneLead(l *entity.Lead) *entity.Lead {
	cp := *l
	return &cp
}

func cloneReservation(r *entity.Reservation) *entity.Reservation {
	cp := *r
	return &cp
}

func cloneContract(c *entity.Contract) *entity.Contract {
	cp := *c
	cp.PaymentPlanTerms = append([]entity.PaymentPlanTerm(nil), c.PaymentPlanTerms...)
	cp.IndexationRules = append([]entity.IndexationRule(nil), c.IndexationRules...)
	return &cp
}

func cloneInstallment(i *entity.Installment) *entity.Installment {
	cp := *i
	return &cp
}

func stageKey(companyID, nameKey string) string { return companyID + "|" + nameKey }

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
