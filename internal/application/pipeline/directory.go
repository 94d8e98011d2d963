package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
)

// StageCache caché de etapas ya confirmadas en la base, indexada por empresa y clave normalizada.
type StageCache interface {
	Get(ctx context.Context, companyID, nameKey string) (*entity.PipelineStage, bool)
	Set(ctx context.Context, stage *entity.PipelineStage)
}

// Directory resuelve etapas por nombre dentro de la unidad de trabajo (get-or-create).
// Orden de búsqueda: caché → GetOrCreate en la transacción actual.
type Directory struct {
	names StageNames
	cache StageCache
	log   *logger.Logger
}

// NewDirectory construye el directorio; cache puede ser nil.
func NewDirectory(names StageNames, cache StageCache, log *logger.Logger) *Directory {
	return &Directory{names: names.withDefaults(), cache: cache, log: logger.OrNop(log)}
}

// Names nombres efectivos de las etapas automáticas.
func (d *Directory) Names() StageNames { return d.names }

// Resolve devuelve la etapa con ese nombre para la empresa, creándola si no existe.
// Solo se cachean etapas que no se crearon en esta transacción: si la transacción
// aborta, la caché no puede quedar apuntando a una fila inexistente.
func (d *Directory) Resolve(ctx context.Context, uow *repository.UnitOfWork, companyID, name string) (*entity.PipelineStage, error) {
	key := NameKey(name)
	if key == "" {
		return nil, domain.Validation("nombre de etapa vacío")
	}
	if d.cache != nil {
		if st, ok := d.cache.Get(ctx, companyID, key); ok && st.CompanyID == companyID {
			return st, nil
		}
	}
	candidate := &entity.PipelineStage{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      strings.TrimSpace(name),
		NameKey:   key,
		Position:  d.names.position(name),
		Terminal:  d.names.IsTerminal(name),
		CreatedAt: time.Now().UTC(),
	}
	stage, created, err := uow.Stages.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, domain.AsPersistence("resolver etapa", err)
	}
	if created {
		d.log.Info().Str("company_id", companyID).Str("stage", stage.Name).Msg("etapa del embudo creada")
	} else if d.cache != nil {
		d.cache.Set(ctx, stage)
	}
	return stage, nil
}
