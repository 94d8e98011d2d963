package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
)

var _ repository.ContractRepository = (*ContractRepo)(nil)

// ContractRepo contratos sobre PostgreSQL; snapshot, plan y reglas viajan como JSONB.
type ContractRepo struct {
	q Querier
}

// NewContractRepository construye el adaptador. Pasar pool o tx (Querier).
func NewContractRepository(q Querier) *ContractRepo {
	return &ContractRepo{q: q}
}

const contractColumns = `id, company_id, lead_id, reservation_id, item_kind, item_id, snapshot, proposed_price, discount,
	payment_plan_terms, indexation_rules, status, signed_at, sale_closed_at, rescinded_at, rescission_reason,
	responsible_user_id, created_by, created_at, updated_at`

func scanContract(row interface{ Scan(...any) error }) (*entity.Contract, error) {
	var c entity.Contract
	var createdBy *string
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.LeadID, &c.ReservationID, &c.Item.Kind, &c.Item.ID, &c.Snapshot,
		&c.ProposedPrice, &c.Discount, &c.PaymentPlanTerms, &c.IndexationRules, &c.Status,
		&c.SignedAt, &c.SaleClosedAt, &c.RescindedAt, &c.RescissionReason,
		&c.ResponsibleUserID, &createdBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedBy = deref(createdBy)
	return &c, nil
}

// Create inserta el contrato. reservation_id es UNIQUE: una segunda conversión → ErrConflict.
func (r *ContractRepo) Create(ctx context.Context, c *entity.Contract) error {
	terms, rules := c.PaymentPlanTerms, c.IndexationRules
	if terms == nil {
		terms = []entity.PaymentPlanTerm{}
	}
	if rules == nil {
		rules = []entity.IndexationRule{}
	}
	query := `INSERT INTO contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.LeadID, c.ReservationID, string(c.Item.Kind), c.Item.ID, c.Snapshot,
		c.ProposedPrice, c.Discount, terms, rules, string(c.Status),
		c.SignedAt, c.SaleClosedAt, c.RescindedAt, c.RescissionReason,
		c.ResponsibleUserID, nullable(c.CreatedBy), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(err, "la reserva ya fue convertida")
		}
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// GetByID obtiene un contrato por ID.
func (r *ContractRepo) GetByID(ctx context.Context, id string) (*entity.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
}

// GetForUpdate obtiene el contrato bloqueando la fila.
func (r *ContractRepo) GetForUpdate(ctx context.Context, id string) (*entity.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, id)
}

// GetByReservation contrato derivado de la reserva, si existe.
func (r *ContractRepo) GetByReservation(ctx context.Context, reservationID string) (*entity.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE reservation_id = $1`, reservationID)
}

func (r *ContractRepo) get(ctx context.Context, query, arg string) (*entity.Contract, error) {
	if !isUUID(arg) {
		return nil, nil
	}
	c, err := scanContract(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return c, nil
}

// Update persiste estado y fechas del ciclo de vida. Snapshot y descuento no cambian.
func (r *ContractRepo) Update(ctx context.Context, c *entity.Contract) error {
	query := `
		UPDATE contracts
		SET status = $2, signed_at = $3, sale_closed_at = $4, rescinded_at = $5, rescission_reason = $6, updated_at = $7
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		c.ID, string(c.Status), c.SignedAt, c.SaleClosedAt, c.RescindedAt, c.RescissionReason, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("contrato")
	}
	return nil
}
