// Package apptest arma un escenario en memoria (empresa, ítems, leads, responsable)
// para los tests de los casos de uso.
package apptest

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/application/pipeline"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/jhoicas/crm-inmobiliario/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
)

const (
	CompanyID      = "co-1"
	OtherCompanyID = "co-2"
	BrokerID       = "user-broker"
	ManagerID      = "user-manager"
)

// Fixture escenario listo para reservar: una unidad, un inmueble y dos leads en "Qualified".
type Fixture struct {
	Store    *memory.Store
	Sync     *pipeline.Synchronizer
	Actor    domain.Actor
	Now      time.Time
	Unit     *entity.Unit
	Property *entity.StandaloneProperty
	Lead     *entity.Lead
	Lead2    *entity.Lead
	Foreign  *entity.Lead // lead de otra empresa
}

// New construye el escenario con el reloj fijo en 2024-03-01 10:00 UTC.
func New() *Fixture {
	f := &Fixture{
		Store: memory.NewStore(),
		Actor: domain.Actor{UserID: BrokerID, CompanyID: CompanyID},
		Now:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.Sync = pipeline.NewSynchronizer(pipeline.NewDirectory(pipeline.DefaultStageNames(), nil, nil))

	for _, co := range []string{CompanyID, OtherCompanyID} {
		f.Store.PutStage(&entity.PipelineStage{
			ID: "stage-qualified-" + co, CompanyID: co, Name: "Qualified", NameKey: "qualified", Position: 20,
		})
	}
	f.Unit = &entity.Unit{
		Availability: entity.Availability{
			ID: "unit-101", Company: CompanyID, State: entity.ItemStatusAvailable,
			Price: decimal.NewFromInt(500000), PrivateArea: decimal.NewFromFloat(72.5), Active: true,
		},
		DevelopmentID: "dev-1", DevelopmentName: "Residencial Sol", Tower: "A", Number: "101",
	}
	f.Property = &entity.StandaloneProperty{
		Availability: entity.Availability{
			ID: "prop-7", Company: CompanyID, State: entity.ItemStatusAvailable,
			Price: decimal.NewFromInt(320000), PrivateArea: decimal.NewFromInt(120), Active: true,
		},
		Code: "CASA-7", Title: "Casa Jardim", Address: "Rua das Flores 7",
	}
	f.Store.PutItem(f.Unit)
	f.Store.PutItem(f.Property)

	f.Lead = &entity.Lead{ID: "lead-1", CompanyID: CompanyID, Name: "Ana Souza", StageID: "stage-qualified-" + CompanyID, ResponsibleUserID: BrokerID}
	f.Lead2 = &entity.Lead{ID: "lead-2", CompanyID: CompanyID, Name: "Bruno Lima", StageID: "stage-qualified-" + CompanyID, ResponsibleUserID: BrokerID}
	f.Foreign = &entity.Lead{ID: "lead-x", CompanyID: OtherCompanyID, Name: "Carla Dias", StageID: "stage-qualified-" + OtherCompanyID}
	f.Store.PutLead(f.Lead)
	f.Store.PutLead(f.Lead2)
	f.Store.PutLead(f.Foreign)

	f.Store.PutUser(&entity.User{ID: BrokerID, CompanyID: CompanyID, Name: "Corredor", Role: entity.RoleBroker, Status: "active"})
	f.Store.PutUser(&entity.User{ID: ManagerID, CompanyID: CompanyID, Name: "Gerente", Role: entity.RoleManager, Status: "active"})
	f.Store.PutUser(&entity.User{ID: "user-inactive", CompanyID: CompanyID, Name: "Baja", Role: entity.RoleBroker, Status: "inactive"})
	f.Store.PutUser(&entity.User{ID: "user-foreign", CompanyID: OtherCompanyID, Name: "Ajeno", Role: entity.RoleAdmin, Status: "active"})
	return f
}

// Clock reloj controlado por f.Now.
func (f *Fixture) Clock() func() time.Time {
	return func() time.Time { return f.Now }
}

// Advance adelanta el reloj.
func (f *Fixture) Advance(d time.Duration) { f.Now = f.Now.Add(d) }

// LeadStage nombre de la etapa actual del lead.
func (f *Fixture) LeadStage(id string) string {
	if l := f.Store.Lead(id); l != nil {
		return l.StageName
	}
	return ""
}

// ErrInjected error provocado por FailingRunner.
var ErrInjected = errors.New("fallo inyectado en el historial")

// FailingRunner ejecuta sobre el Store pero el historial falla siempre: sirve para comprobar
// que ninguna escritura previa de la transición sobrevive.
type FailingRunner struct {
	Store *memory.Store
}

func (r FailingRunner) Run(ctx context.Context, fn func(uow *repository.UnitOfWork) error) error {
	return r.Store.Run(ctx, func(uow *repository.UnitOfWork) error {
		uow.History = failingHistory{}
		return fn(uow)
	})
}

type failingHistory struct{}

func (failingHistory) Record(context.Context, *entity.LeadHistory) error { return ErrInjected }
func (failingHistory) ListByLead(context.Context, string) ([]*entity.LeadHistory, error) {
	return nil, ErrInjected
}
