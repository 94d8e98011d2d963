package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
)

var (
	_ repository.InstallmentRepository = (*InstallmentRepo)(nil)
	_ repository.PaymentRepository     = (*PaymentRepo)(nil)
	_ repository.IndexRepository       = (*IndexRepo)(nil)
)

// InstallmentRepo cuotas del plan de pagos.
type InstallmentRepo struct {
	q Querier
}

// NewInstallmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInstallmentRepository(q Querier) *InstallmentRepo {
	return &InstallmentRepo{q: q}
}

var installmentColumnList = []string{
	"id", "contract_id", "lead_id", "company_id", "sequence_number", "kind", "amount_due", "base_amount",
	"amount_paid", "due_date", "paid_at", "status", "created_at", "updated_at",
}

const installmentColumns = `id, contract_id, lead_id, company_id, sequence_number, kind, amount_due, base_amount,
	amount_paid, due_date, paid_at, status, created_at, updated_at`

func scanInstallment(row interface{ Scan(...any) error }) (*entity.Installment, error) {
	var i entity.Installment
	err := row.Scan(
		&i.ID, &i.ContractID, &i.LeadID, &i.CompanyID, &i.SequenceNumber, &i.Kind, &i.AmountDue, &i.BaseAmount,
		&i.AmountPaid, &i.DueDate, &i.PaidAt, &i.Status, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// CreateBatch inserta el plan completo con COPY.
func (r *InstallmentRepo) CreateBatch(ctx context.Context, list []*entity.Installment) error {
	if len(list) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(list))
	for _, i := range list {
		rows = append(rows, []any{
			i.ID, i.ContractID, i.LeadID, i.CompanyID, i.SequenceNumber, i.Kind, i.AmountDue, i.BaseAmount,
			i.AmountPaid, i.DueDate, i.PaidAt, string(i.Status), i.CreatedAt, i.UpdatedAt,
		})
	}
	_, err := r.q.CopyFrom(ctx, pgx.Identifier{"installments"}, installmentColumnList, pgx.CopyFromRows(rows))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(err, "secuencia de cuota duplicada")
		}
		return fmt.Errorf("copy installments: %w", err)
	}
	return nil
}

// GetByID obtiene una cuota por ID.
func (r *InstallmentRepo) GetByID(ctx context.Context, id string) (*entity.Installment, error) {
	return r.get(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = $1`, id)
}

// GetForUpdate obtiene la cuota bloqueando la fila.
func (r *InstallmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Installment, error) {
	return r.get(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = $1 FOR UPDATE`, id)
}

func (r *InstallmentRepo) get(ctx context.Context, query, id string) (*entity.Installment, error) {
	if !isUUID(id) {
		return nil, nil
	}
	i, err := scanInstallment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get installment: %w", err)
	}
	return i, nil
}

// ListByContract cuotas del contrato ordenadas por secuencia.
func (r *InstallmentRepo) ListByContract(ctx context.Context, contractID string) ([]*entity.Installment, error) {
	return r.list(ctx, `SELECT `+installmentColumns+` FROM installments WHERE contract_id = $1 ORDER BY sequence_number`, contractID)
}

// ListByContractForUpdate como ListByContract pero bloqueando las filas.
func (r *InstallmentRepo) ListByContractForUpdate(ctx context.Context, contractID string) ([]*entity.Installment, error) {
	return r.list(ctx, `SELECT `+installmentColumns+` FROM installments WHERE contract_id = $1 ORDER BY sequence_number FOR UPDATE`, contractID)
}

func (r *InstallmentRepo) list(ctx context.Context, query, contractID string) ([]*entity.Installment, error) {
	rows, err := r.q.Query(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()
	var list []*entity.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		list = append(list, i)
	}
	return list, rows.Err()
}

// DeleteByContract borra el plan para regenerarlo.
func (r *InstallmentRepo) DeleteByContract(ctx context.Context, contractID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM installments WHERE contract_id = $1`, contractID); err != nil {
		return fmt.Errorf("delete installments: %w", err)
	}
	return nil
}

// Update persiste montos, fecha de liquidación y estado.
func (r *InstallmentRepo) Update(ctx context.Context, i *entity.Installment) error {
	query := `
		UPDATE installments
		SET amount_due = $2, base_amount = $3, amount_paid = $4, paid_at = $5, status = $6, updated_at = $7
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, i.ID, i.AmountDue, i.BaseAmount, i.AmountPaid, i.PaidAt, string(i.Status), i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update installment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("cuota")
	}
	return nil
}

// MarkOverdue pasa a OVERDUE las cuotas PENDING vencidas antes de today.
func (r *InstallmentRepo) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	cmd, err := r.q.Exec(ctx,
		`UPDATE installments SET status = 'OVERDUE', updated_at = now() WHERE status = 'PENDING' AND due_date < $1`,
		today,
	)
	if err != nil {
		return 0, fmt.Errorf("mark overdue installments: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// PaymentRepo libro de pagos; solo INSERT.
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

// Create agrega el asiento.
func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (id, installment_id, contract_id, lead_id, company_id, amount, method, paid_on, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.InstallmentID, p.ContractID, p.LeadID, p.CompanyID, p.Amount, p.Method, p.PaidOn,
		nullable(p.RecordedBy), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// SumByInstallment total pagado sobre la cuota (0 sin asientos).
func (r *PaymentRepo) SumByInstallment(ctx context.Context, installmentID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE installment_id = $1`, installmentID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

// IndexRepo series mensuales de índices (INCC, IGP-M...).
type IndexRepo struct {
	q Querier
}

// NewIndexRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIndexRepository(q Querier) *IndexRepo {
	return &IndexRepo{q: q}
}

// ListRange valores del índice con mes en [from, to), orden cronológico. El nombre no distingue mayúsculas.
func (r *IndexRepo) ListRange(ctx context.Context, index string, from, to time.Time) ([]entity.IndexValue, error) {
	query := `
		SELECT index_name, month, percent FROM index_values
		WHERE upper(index_name) = upper($1) AND month >= $2 AND month < $3
		ORDER BY month`
	rows, err := r.q.Query(ctx, query, index, from, to)
	if err != nil {
		return nil, fmt.Errorf("list index values: %w", err)
	}
	defer rows.Close()
	var list []entity.IndexValue
	for rows.Next() {
		var v entity.IndexValue
		if err := rows.Scan(&v.Index, &v.Month, &v.Percent); err != nil {
			return nil, fmt.Errorf("scan index value: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Upsert carga o corrige meses de la serie; un mes existente se sobrescribe.
func (r *IndexRepo) Upsert(ctx context.Context, values []entity.IndexValue) error {
	query := `
		INSERT INTO index_values (index_name, month, percent) VALUES ($1, $2, $3)
		ON CONFLICT (index_name, month) DO UPDATE SET percent = EXCLUDED.percent`
	for _, v := range values {
		if _, err := r.q.Exec(ctx, query, strings.ToUpper(v.Index), v.Month, v.Percent); err != nil {
			return fmt.Errorf("upsert index value %s %s: %w", v.Index, v.Month.Format("2006-01"), err)
		}
	}
	return nil
}
