package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
)

var (
	_ repository.LeadRepository    = (*LeadRepo)(nil)
	_ repository.StageRepository   = (*StageRepo)(nil)
	_ repository.HistoryRepository = (*HistoryRepo)(nil)
)

// LeadRepo lectura con bloqueo y cambio de etapa de leads.
type LeadRepo struct {
	q Querier
}

// NewLeadRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLeadRepository(q Querier) *LeadRepo {
	return &LeadRepo{q: q}
}

// GetForUpdate lee el lead con el nombre y la marca terminal de su etapa y bloquea solo la fila del lead.
func (r *LeadRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lead, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `
		SELECT l.id, l.company_id, l.name, l.stage_id, COALESCE(s.name, ''), COALESCE(s.terminal, false), l.responsible_user_id, l.updated_at
		FROM leads l LEFT JOIN pipeline_stages s ON s.id = l.stage_id
		WHERE l.id = $1
		FOR UPDATE OF l`
	var l entity.Lead
	var stageID, responsible *string
	err := r.q.QueryRow(ctx, query, id).Scan(&l.ID, &l.CompanyID, &l.Name, &stageID, &l.StageName, &l.StageTerminal, &responsible, &l.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lead for update: %w", err)
	}
	l.StageID = deref(stageID)
	l.ResponsibleUserID = deref(responsible)
	return &l, nil
}

// UpdateStage mueve el lead de etapa.
func (r *LeadRepo) UpdateStage(ctx context.Context, leadID, stageID string) error {
	cmd, err := r.q.Exec(ctx, `UPDATE leads SET stage_id = $2, updated_at = now() WHERE id = $1`, leadID, stageID)
	if err != nil {
		return fmt.Errorf("update lead stage: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("lead")
	}
	return nil
}

// StageRepo directorio de etapas por empresa.
type StageRepo struct {
	q Querier
}

// NewStageRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStageRepository(q Querier) *StageRepo {
	return &StageRepo{q: q}
}

const stageColumns = `id, company_id, name, name_key, position, terminal, created_at`

func scanStage(row interface{ Scan(...any) error }) (*entity.PipelineStage, error) {
	var s entity.PipelineStage
	if err := row.Scan(&s.ID, &s.CompanyID, &s.Name, &s.NameKey, &s.Position, &s.Terminal, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID obtiene una etapa por ID.
func (r *StageRepo) GetByID(ctx context.Context, id string) (*entity.PipelineStage, error) {
	if !isUUID(id) {
		return nil, nil
	}
	s, err := scanStage(r.q.QueryRow(ctx, `SELECT `+stageColumns+` FROM pipeline_stages WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stage: %w", err)
	}
	return s, nil
}

// GetOrCreate inserta la etapa o, si otra transacción ya la creó, devuelve la existente.
// ON CONFLICT DO NOTHING espera el commit de la otra inserción, así que no hay duplicados ni error.
func (r *StageRepo) GetOrCreate(ctx context.Context, stage *entity.PipelineStage) (*entity.PipelineStage, bool, error) {
	insert := `
		INSERT INTO pipeline_stages (` + stageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (company_id, name_key) DO NOTHING
		RETURNING ` + stageColumns
	s, err := scanStage(r.q.QueryRow(ctx, insert,
		stage.ID, stage.CompanyID, stage.Name, stage.NameKey, stage.Position, stage.Terminal, stage.CreatedAt,
	))
	if err == nil {
		return s, true, nil
	}
	if !isNoRows(err) {
		return nil, false, fmt.Errorf("insert stage: %w", err)
	}
	s, err = scanStage(r.q.QueryRow(ctx,
		`SELECT `+stageColumns+` FROM pipeline_stages WHERE company_id = $1 AND name_key = $2`,
		stage.CompanyID, stage.NameKey,
	))
	if err != nil {
		return nil, false, fmt.Errorf("get stage by key: %w", err)
	}
	return s, false, nil
}

// HistoryRepo historial de transiciones del lead.
type HistoryRepo struct {
	q Querier
}

// NewHistoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewHistoryRepository(q Querier) *HistoryRepo {
	return &HistoryRepo{q: q}
}

// Record agrega una entrada.
func (r *HistoryRepo) Record(ctx context.Context, h *entity.LeadHistory) error {
	details := h.Details
	if details == nil {
		details = map[string]any{}
	}
	query := `
		INSERT INTO lead_history (id, lead_id, company_id, actor_id, action, from_stage_id, to_stage_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		h.ID, h.LeadID, h.CompanyID, nullable(h.ActorID), h.Action,
		nullable(h.FromStageID), nullable(h.ToStageID), details, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead history: %w", err)
	}
	return nil
}

// ListByLead historial del lead en orden cronológico.
func (r *HistoryRepo) ListByLead(ctx context.Context, leadID string) ([]*entity.LeadHistory, error) {
	query := `
		SELECT id, lead_id, company_id, actor_id, action, from_stage_id, to_stage_id, details, created_at
		FROM lead_history WHERE lead_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead history: %w", err)
	}
	defer rows.Close()
	var list []*entity.LeadHistory
	for rows.Next() {
		var h entity.LeadHistory
		var actor, from, to *string
		if err := rows.Scan(&h.ID, &h.LeadID, &h.CompanyID, &actor, &h.Action, &from, &to, &h.Details, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead history: %w", err)
		}
		h.ActorID, h.FromStageID, h.ToStageID = deref(actor), deref(from), deref(to)
		list = append(list, &h)
	}
	return list, rows.Err()
}
