package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/application/apptest"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUC(f *apptest.Fixture) *UseCase {
	return NewUseCase(f.Store, f.Sync, nil, WithClock(f.Clock()))
}

func input(f *apptest.Fixture, leadID string) CreateInput {
	signal := decimal.NewFromInt(5000)
	return CreateInput{
		LeadID:       leadID,
		Item:         f.Unit.Ref(),
		ExpiresAt:    f.Now.Add(72 * time.Hour),
		SignalAmount: &signal,
	}
}

// ── CreateReservation ─────────────────────────────────────────────────────────

func TestCreateReservation_Exito(t *testing.T) {
	f := apptest.New()
	uc := newUC(f)

	res, err := uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	require.NoError(t, err)

	assert.Equal(t, entity.ReservationActive, res.Status)
	assert.True(t, res.ListPriceAtReservation.Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, apptest.CompanyID, res.CompanyID)
	assert.Equal(t, apptest.BrokerID, res.CreatedBy)

	item := f.Store.Item(f.Unit.Ref())
	assert.Equal(t, entity.ItemStatusReserved, item.Status())
	assert.Equal(t, res.ID, item.CurrentReservationID())
	assert.Equal(t, f.Lead.ID, item.CurrentLeadID())

	assert.Equal(t, "In Reservation", f.LeadStage(f.Lead.ID))
	hist := f.Store.History(f.Lead.ID)
	require.Len(t, hist, 1)
	assert.Equal(t, entity.ActionReservationCreated, hist[0].Action)
	assert.Equal(t, "Qualified", hist[0].Details["from_stage"])
	assert.Equal(t, "In Reservation", hist[0].Details["to_stage"])
}

func TestCreateReservation_InmuebleIndependiente(t *testing.T) {
	f := apptest.New()
	in := input(f, f.Lead.ID)
	in.Item = f.Property.Ref()

	res, err := newUC(f).CreateReservation(context.Background(), f.Actor, in)
	require.NoError(t, err)
	assert.Equal(t, entity.ItemKindProperty, res.Item.Kind)
	assert.Equal(t, entity.ItemStatusReserved, f.Store.Item(f.Property.Ref()).Status())
}

// Escenario A: dos leads sobre la misma unidad; el segundo recibe conflicto.
func TestCreateReservation_SegundoLeadRecibeConflicto(t *testing.T) {
	f := apptest.New()
	uc := newUC(f)

	first, err := uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	require.NoError(t, err)

	_, err = uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead2.ID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	assert.Len(t, f.Store.Reservations(), 1)
	assert.Equal(t, first.ID, f.Store.Item(f.Unit.Ref()).CurrentReservationID())
	assert.Equal(t, "Qualified", f.LeadStage(f.Lead2.ID))
	assert.Empty(t, f.Store.History(f.Lead2.ID))
}

func TestCreateReservation_ConcurrenciaSoloUnoGana(t *testing.T) {
	f := apptest.New()
	uc := newUC(f)
	const n = 20

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			leadID := f.Lead.ID
			if i%2 == 1 {
				leadID = f.Lead2.ID
			}
			_, errs[i] = uc.CreateReservation(context.Background(), f.Actor, input(f, leadID))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrConflict), "error inesperado: %v", err)
	}
	assert.Equal(t, 1, ok)

	active := 0
	for _, r := range f.Store.Reservations() {
		if r.Status == entity.ReservationActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestCreateReservation_Validaciones(t *testing.T) {
	f := apptest.New()
	uc := newUC(f)

	cases := map[string]func(in *CreateInput){
		"sin lead":          func(in *CreateInput) { in.LeadID = "" },
		"tipo inválido":     func(in *CreateInput) { in.Item.Kind = "LAND" },
		"expiración pasada": func(in *CreateInput) { in.ExpiresAt = f.Now.Add(-time.Minute) },
		"señal negativa": func(in *CreateInput) {
			neg := decimal.NewFromInt(-1)
			in.SignalAmount = &neg
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := input(f, f.Lead.ID)
			mutate(&in)
			_, err := uc.CreateReservation(context.Background(), f.Actor, in)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
	assert.Empty(t, f.Store.Reservations())
}

func TestCreateReservation_LeadDeOtraEmpresa(t *testing.T) {
	f := apptest.New()
	_, err := newUC(f).CreateReservation(context.Background(), f.Actor, input(f, f.Foreign.ID))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreateReservation_ItemDeOtraEmpresa(t *testing.T) {
	f := apptest.New()
	actor := domain.Actor{UserID: "x", CompanyID: apptest.OtherCompanyID}
	_, err := newUC(f).CreateReservation(context.Background(), actor, input(f, f.Foreign.ID))
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, entity.ItemStatusAvailable, f.Store.Item(f.Unit.Ref()).Status())
}

func TestCreateReservation_ItemInexistente(t *testing.T) {
	f := apptest.New()
	in := input(f, f.Lead.ID)
	in.Item.ID = "no-existe"
	_, err := newUC(f).CreateReservation(context.Background(), f.Actor, in)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreateReservation_ItemNoDisponible(t *testing.T) {
	f := apptest.New()
	f.Unit.State = entity.ItemStatusBlocked
	f.Store.PutItem(f.Unit)

	_, err := newUC(f).CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestCreateReservation_ItemDesactivado(t *testing.T) {
	f := apptest.New()
	f.Unit.Active = false
	f.Store.PutItem(f.Unit)

	_, err := newUC(f).CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestCreateReservation_LeadEnEtapaFinal(t *testing.T) {
	f := apptest.New()
	f.Store.PutStage(&entity.PipelineStage{ID: "stage-sold", CompanyID: apptest.CompanyID, Name: "Sold", NameKey: "sold", Terminal: true})
	f.Lead.StageID = "stage-sold"
	f.Store.PutLead(f.Lead)

	_, err := newUC(f).CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestCreateReservation_EtapaMarcadaTerminalConOtroNombre(t *testing.T) {
	f := apptest.New()
	f.Store.PutStage(&entity.PipelineStage{ID: "stage-ganho", CompanyID: apptest.CompanyID, Name: "Ganho", NameKey: "ganho", Terminal: true})
	f.Lead.StageID = "stage-ganho"
	f.Store.PutLead(f.Lead)

	_, err := newUC(f).CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	assert.Equal(t, entity.ItemStatusAvailable, f.Store.Item(f.Unit.Ref()).Status())
}

func TestCreateReservation_SinEmpresaNoAutorizado(t *testing.T) {
	f := apptest.New()
	_, err := newUC(f).CreateReservation(context.Background(), domain.Actor{UserID: "u"}, input(f, f.Lead.ID))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

// Un fallo en el historial deshace la reserva, el ítem y la etapa del lead.
func TestCreateReservation_FalloEnHistorialRevierteTodo(t *testing.T) {
	f := apptest.New()
	uc := NewUseCase(apptest.FailingRunner{Store: f.Store}, f.Sync, nil, WithClock(f.Clock()))

	_, err := uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))

	assert.Empty(t, f.Store.Reservations())
	assert.Equal(t, entity.ItemStatusAvailable, f.Store.Item(f.Unit.Ref()).Status())
	assert.Equal(t, "Qualified", f.LeadStage(f.Lead.ID))
	assert.Len(t, f.Store.Stages(apptest.CompanyID), 1)
}

// ── Expire / Cancel ───────────────────────────────────────────────────────────

// Escenario B: la reserva vence y la unidad vuelve a estar disponible.
func TestExpireReservation_LiberaItem(t *testing.T) {
	f := apptest.New()
	uc := newUC(f)
	res, err := uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	require.NoError(t, err)

	f.Advance(73 * time.Hour)
	got, err := uc.ExpireReservation(context.Background(), domain.Actor{CompanyID: apptest.CompanyID}, res.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationExpired, got.Status)

	item := f.Store.Item(f.Unit.Ref())
	assert.Equal(t, entity.ItemStatusAvailable, item.Status())
	assert.Empty(t, item.CurrentReservationID())
	assert.Empty(t, item.CurrentLeadID())

	// El lead conserva la etapa; solo se agrega historial.
	assert.Equal(t, "In Reservation", f.LeadStage(f.Lead.ID))
	hist := f.Store.History(f.Lead.ID)
	require.Len(t, hist, 2)
	assert.Equal(t, entity.ActionReservationExpired, hist[1].Action)
	assert.Empty(t, hist[1].ActorID)

	// Otro lead ya puede reservar.
	_, err = uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead2.ID))
	require.NoError(t, err)
}

func TestExpireReservation_AntesDeVencerEsEstadoInvalido(t *testing.T) {
	f := apptest.New()
	uc := newUC(f)
	res, err := uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	require.NoError(t, err)

	_, err = uc.ExpireReservation(context.Background(), f.Actor, res.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	assert.Equal(t, entity.ItemStatusReserved, f.Store.Item(f.Unit.Ref()).Status())
}

func TestCancelReservation_DosVecesEsEstadoInvalido(t *testing.T) {
	f := apptest.New()
	uc := newUC(f)
	res, err := uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	require.NoError(t, err)

	got, err := uc.CancelReservation(context.Background(), f.Actor, res.ID, "desistió")
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationCancelled, got.Status)
	assert.Equal(t, entity.ItemStatusAvailable, f.Store.Item(f.Unit.Ref()).Status())

	hist := f.Store.History(f.Lead.ID)
	assert.Equal(t, "desistió", hist[len(hist)-1].Details["reason"])

	_, err = uc.CancelReservation(context.Background(), f.Actor, res.ID, "")
	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, string(entity.ReservationCancelled), te.From)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestCancelReservation_NoLiberaItemDeOtraReserva(t *testing.T) {
	f := apptest.New()
	uc := newUC(f)
	res, err := uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	require.NoError(t, err)

	// El ítem quedó apuntando a otra reserva (p. ej. corrección manual).
	item := f.Store.Item(f.Unit.Ref())
	item.Hold("otra-reserva", f.Lead2.ID, f.Now)
	f.Store.PutItem(item)

	_, err = uc.CancelReservation(context.Background(), f.Actor, res.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "otra-reserva", f.Store.Item(f.Unit.Ref()).CurrentReservationID())
}

func TestCancelReservation_OtraEmpresaNoEncontrada(t *testing.T) {
	f := apptest.New()
	uc := newUC(f)
	res, err := uc.CreateReservation(context.Background(), f.Actor, input(f, f.Lead.ID))
	require.NoError(t, err)

	_, err = uc.CancelReservation(context.Background(), domain.Actor{UserID: "x", CompanyID: apptest.OtherCompanyID}, res.ID, "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
