package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
)

var _ repository.TxRunner = (*Store)(nil)

// Store almacenamiento en memoria con semántica de unidad de trabajo.
// Cada Run toma el candado, trabaja sobre el estado vivo y, si fn falla, restaura la copia
// tomada al inicio. Las transacciones quedan serializadas; sirve para tests y desarrollo local.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore construye un almacenamiento vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn con repositorios atados al estado; Rollback completo si devuelve error.
func (s *Store) Run(ctx context.Context, fn func(uow *repository.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.st.unitOfWork()); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

type state struct {
	items        map[entity.ItemRef]entity.Item
	leads        map[string]*entity.Lead
	stages       map[string]*entity.PipelineStage
	stageKeys    map[string]string // company|name_key -> stage id
	history      []*entity.LeadHistory
	reservations map[string]*entity.Reservation
	contracts    map[string]*entity.Contract
	installments map[string]*entity.Installment
	payments     []*entity.Payment
	users        map[string]*entity.User
	indexes      map[string][]entity.IndexValue
}

func newState() *state {
	return &state{
		items:        map[entity.ItemRef]entity.Item{},
		leads:        map[string]*entity.Lead{},
		stages:       map[string]*entity.PipelineStage{},
		stageKeys:    map[string]string{},
		reservations: map[string]*entity.Reservation{},
		contracts:    map[string]*entity.Contract{},
		installments: map[string]*entity.Installment{},
		users:        map[string]*entity.User{},
		indexes:      map[string][]entity.IndexValue{},
	}
}

func (st *state) unitOfWork() *repository.UnitOfWork {
	return &repository.UnitOfWork{
		Items:        itemRepo{st},
		Leads:        leadRepo{st},
		Stages:       stageRepo{st},
		History:      historyRepo{st},
		Reservations: reservationRepo{st},
		Contracts:    contractRepo{st},
		Installments: installmentRepo{st},
		Payments:     paymentRepo{st},
		Indexes:      indexRepo{st},
		Users:        userRepo{st},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.items {
		c.items[k] = cloneItem(v)
	}
	for k, v := range st.leads {
		c.leads[k] = cloneLead(v)
	}
	for k, v := range st.stages {
		cp := *v
		c.stages[k] = &cp
	}
	for k, v := range st.stageKeys {
		c.stageKeys[k] = v
	}
	c.history = append(c.history, st.history...)
	for k, v := range st.reservations {
		c.reservations[k] = cloneReservation(v)
	}
	for k, v := range st.contracts {
		c.contracts[k] = cloneContract(v)
	}
	for k, v := range st.installments {
		c.installments[k] = cloneInstallment(v)
	}
	c.payments = append(c.payments, st.payments...)
	for k, v := range st.users {
		cp := *v
		c.users[k] = &cp
	}
	for k, v := range st.indexes {
		c.indexes[k] = append([]entity.IndexValue(nil), v...)
	}
	return c
}

// ---------------------------------------------------------------------------
// Carga e inspección (tests y arranque en modo memoria)
// ---------------------------------------------------------------------------

// PutItem agrega o reemplaza un ítem (Unit o StandaloneProperty).
func (s *Store) PutItem(item entity.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.items[item.Ref()] = cloneItem(item)
}

// PutLead agrega o reemplaza un lead.
func (s *Store) PutLead(l *entity.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.leads[l.ID] = cloneLead(l)
}

// PutStage agrega una etapa del embudo.
func (s *Store) PutStage(st *entity.PipelineStage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.st.stages[st.ID] = &cp
	s.st.stageKeys[stageKey(st.CompanyID, st.NameKey)] = st.ID
}

// PutUser agrega o reemplaza un usuario.
func (s *Store) PutUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.st.users[u.ID] = &cp
}

// PutIndexValues agrega valores mensuales a la serie de un índice.
func (s *Store) PutIndexValues(values ...entity.IndexValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		v.Month = monthStart(v.Month)
		key := strings.ToUpper(v.Index)
		s.st.indexes[key] = append(s.st.indexes[key], v)
	}
}

// Item copia del ítem guardado (nil si no existe).
func (s *Store) Item(ref entity.ItemRef) entity.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.st.items[ref]; ok {
		return cloneItem(it)
	}
	return nil
}

// Lead copia del lead con el nombre de su etapa.
func (s *Store) Lead(id string) *entity.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.st.leads[id]
	if !ok {
		return nil
	}
	return s.st.withStage(l)
}

// Reservations todas las reservas, ordenadas por fecha de reserva.
func (s *Store) Reservations() []*entity.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Reservation, 0, len(s.st.reservations))
	for _, r := range s.st.reservations {
		out = append(out, cloneReservation(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedAt.Before(out[j].ReservedAt) })
	return out
}

// Contracts todos los contratos.
func (s *Store) Contracts() []*entity.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Contract, 0, len(s.st.contracts))
	for _, c := range s.st.contracts {
		out = append(out, cloneContract(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// History entradas del historial de un lead en orden de registro.
func (s *Store) History(leadID string) []*entity.LeadHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.LeadHistory
	for _, h := range s.st.history {
		if h.LeadID == leadID {
			out = append(out, h)
		}
	}
	return out
}

// Installments cuotas de un contrato por número de secuencia.
func (s *Store) Installments(contractID string) []*entity.Installment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.installmentsOf(contractID)
}

// Payments pagos registrados para una cuota.
func (s *Store) Payments(installmentID string) []*entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Payment
	for _, p := range s.st.payments {
		if p.InstallmentID == installmentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

// Stages etapas de una empresa.
func (s *Store) Stages(companyID string) []*entity.PipelineStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.PipelineStage
	for _, st := range s.st.stages {
		if st.CompanyID == companyID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
