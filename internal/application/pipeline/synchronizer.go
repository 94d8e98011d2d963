package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
)

// Transition causa de un movimiento del lead, tal como queda en el historial.
type Transition struct {
	Actor   domain.Actor
	Action  string
	Details map[string]any
}

// Synchronizer efecto lateral obligatorio de reservas y contratos: mueve el lead a la etapa
// que corresponde y agrega una entrada de historial, siempre en la misma unidad de trabajo.
type Synchronizer struct {
	dir *Directory
	now func() time.Time
}

// NewSynchronizer construye el sincronizador sobre el directorio de etapas.
func NewSynchronizer(dir *Directory) *Synchronizer {
	return &Synchronizer{dir: dir, now: func() time.Time { return time.Now().UTC() }}
}

// Names nombres efectivos de las etapas automáticas.
func (s *Synchronizer) Names() StageNames { return s.dir.Names() }

// IsTerminal indica si el lead está en una etapa final: marcada terminal en la empresa
// o con el nombre configurado para vendido o descartado.
func (s *Synchronizer) IsTerminal(lead *entity.Lead) bool {
	return lead.StageTerminal || s.dir.Names().IsTerminal(lead.StageName)
}

// Advance mueve el lead a stageName y registra la transición (etapa anterior y nueva).
// Si el lead ya está en esa etapa solo se agrega el historial.
func (s *Synchronizer) Advance(ctx context.Context, uow *repository.UnitOfWork, lead *entity.Lead, stageName string, t Transition) error {
	stage, err := s.dir.Resolve(ctx, uow, lead.CompanyID, stageName)
	if err != nil {
		return err
	}
	fromID, fromName := lead.StageID, lead.StageName
	if fromID != stage.ID {
		if err := uow.Leads.UpdateStage(ctx, lead.ID, stage.ID); err != nil {
			return domain.AsPersistence("mover lead de etapa", err)
		}
	}
	lead.StageID, lead.StageName, lead.StageTerminal = stage.ID, stage.Name, stage.Terminal
	lead.UpdatedAt = s.now()

	details := copyDetails(t.Details)
	details["from_stage"] = fromName
	details["to_stage"] = stage.Name
	return s.write(ctx, uow, &entity.LeadHistory{
		LeadID:      lead.ID,
		CompanyID:   lead.CompanyID,
		ActorID:     t.Actor.UserID,
		Action:      t.Action,
		FromStageID: fromID,
		ToStageID:   stage.ID,
		Details:     details,
	})
}

// Record agrega una entrada de historial sin mover al lead.
func (s *Synchronizer) Record(ctx context.Context, uow *repository.UnitOfWork, lead *entity.Lead, t Transition) error {
	details := copyDetails(t.Details)
	details["stage"] = lead.StageName
	return s.write(ctx, uow, &entity.LeadHistory{
		LeadID:      lead.ID,
		CompanyID:   lead.CompanyID,
		ActorID:     t.Actor.UserID,
		Action:      t.Action,
		FromStageID: lead.StageID,
		ToStageID:   lead.StageID,
		Details:     details,
	})
}

func (s *Synchronizer) write(ctx context.Context, uow *repository.UnitOfWork, h *entity.LeadHistory) error {
	h.ID = uuid.New().String()
	h.CreatedAt = s.now()
	if err := uow.History.Record(ctx, h); err != nil {
		return domain.AsPersistence("registrar historial", err)
	}
	return nil
}

func copyDetails(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}
