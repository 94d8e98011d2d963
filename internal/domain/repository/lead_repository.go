package repository

import (
	"context"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
)

// LeadRepository puerto de persistencia del lead (solo lo que el motor necesita).
type LeadRepository interface {
	GetForUpdate(ctx context.Context, id string) (*entity.Lead, error)
	UpdateStage(ctx context.Context, leadID, stageID string) error
}

// StageRepository directorio de etapas del embudo por empresa.
type StageRepository interface {
	GetByID(ctx context.Context, id string) (*entity.PipelineStage, error)
	// GetOrCreate es idempotente frente a creaciones concurrentes (índice único company_id+name_key).
	// created indica si la etapa se insertó en esta transacción.
	GetOrCreate(ctx context.Context, stage *entity.PipelineStage) (result *entity.PipelineStage, created bool, err error)
}

// HistoryRepository registro de auditoría de transiciones (recordTransition).
type HistoryRepository interface {
	Record(ctx context.Context, entry *entity.LeadHistory) error
	ListByLead(ctx context.Context, leadID string) ([]*entity.LeadHistory, error)
}
