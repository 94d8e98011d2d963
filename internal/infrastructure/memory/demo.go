package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Demo ids del escenario cargado por SeedDemo.
type Demo struct {
	CompanyID  string
	AdminID    string
	BrokerID   string
	UnitID     string
	PropertyID string
	LeadIDs    []string
}

// SeedDemo carga un escenario mínimo para DB_DRIVER=memory: un admin, un corredor, una unidad,
// un inmueble suelto, dos leads en "Qualified" y doce meses de INCC.
// Sin esto el almacenamiento arranca vacío y toda la API responde 404.
func SeedDemo(s *Store, companyID string, now time.Time) Demo {
	if companyID == "" {
		companyID = uuid.NewString()
	}
	d := Demo{
		CompanyID:  companyID,
		AdminID:    uuid.NewString(),
		BrokerID:   uuid.NewString(),
		UnitID:     uuid.NewString(),
		PropertyID: uuid.NewString(),
	}

	s.PutUser(&entity.User{ID: d.AdminID, CompanyID: companyID, Email: "admin@demo.local", Name: "Admin Demo", Role: entity.RoleAdmin, Status: "active", CreatedAt: now, UpdatedAt: now})
	s.PutUser(&entity.User{ID: d.BrokerID, CompanyID: companyID, Email: "corredor@demo.local", Name: "Corredor Demo", Role: entity.RoleBroker, Status: "active", CreatedAt: now, UpdatedAt: now})

	qualified := &entity.PipelineStage{ID: uuid.NewString(), CompanyID: companyID, Name: "Qualified", NameKey: "qualified", Position: 20, CreatedAt: now}
	s.PutStage(qualified)

	s.PutItem(&entity.Unit{
		Availability: entity.Availability{
			ID: d.UnitID, Company: companyID, State: entity.ItemStatusAvailable,
			Price: decimal.NewFromInt(550000), PrivateArea: decimal.NewFromFloat(68.4), Active: true,
		},
		DevelopmentID: uuid.NewString(), DevelopmentName: "Residencial Demo", Tower: "A", Number: "101",
	})
	s.PutItem(&entity.StandaloneProperty{
		Availability: entity.Availability{
			ID: d.PropertyID, Company: companyID, State: entity.ItemStatusAvailable,
			Price: decimal.NewFromInt(320000), PrivateArea: decimal.NewFromInt(120), Active: true,
		},
		Code: "DEMO-1", Title: "Casa Demo", Address: "Rua Demo 1",
	})

	for _, name := range []string{"Lead Demo Uno", "Lead Demo Dos"} {
		l := &entity.Lead{ID: uuid.NewString(), CompanyID: companyID, Name: name, StageID: qualified.ID, ResponsibleUserID: d.BrokerID, UpdatedAt: now}
		s.PutLead(l)
		d.LeadIDs = append(d.LeadIDs, l.ID)
	}

	start := monthStart(now).AddDate(-1, 0, 0)
	values := make([]entity.IndexValue, 0, 12)
	for i := 0; i < 12; i++ {
		values = append(values, entity.IndexValue{Index: "INCC", Month: start.AddDate(0, i, 0), Percent: decimal.RequireFromString("0.45")})
	}
	s.PutIndexValues(values...)
	return d
}
