package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo reservas sobre PostgreSQL. El índice único parcial
// reservations_one_active_per_item decide entre pedidos concurrentes.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `id, company_id, lead_id, item_kind, item_id, reserved_at, expires_at, signal_amount,
	list_price_at_reservation, status, created_by, contract_id, notes, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*entity.Reservation, error) {
	var res entity.Reservation
	var createdBy *string
	err := row.Scan(
		&res.ID, &res.CompanyID, &res.LeadID, &res.Item.Kind, &res.Item.ID, &res.ReservedAt, &res.ExpiresAt,
		&res.SignalAmount, &res.ListPriceAtReservation, &res.Status, &createdBy, &res.ContractID, &res.Notes, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.CreatedBy = deref(createdBy)
	return &res, nil
}

// Create inserta la reserva. Una segunda ACTIVE para el mismo ítem viola el índice parcial → ErrConflict.
func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	query := `INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.CompanyID, res.LeadID, string(res.Item.Kind), res.Item.ID, res.ReservedAt, res.ExpiresAt,
		res.SignalAmount, res.ListPriceAtReservation, string(res.Status), nullable(res.CreatedBy), res.ContractID,
		res.Notes, res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(err, "el ítem ya no está disponible")
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetByID obtiene una reserva por ID.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

// GetForUpdate obtiene la reserva bloqueando la fila.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepo) get(ctx context.Context, query, id string) (*entity.Reservation, error) {
	if !isUUID(id) {
		return nil, nil
	}
	res, err := scanReservation(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// Update persiste estado, vínculo con contrato y notas.
func (r *ReservationRepo) Update(ctx context.Context, res *entity.Reservation) error {
	query := `
		UPDATE reservations
		SET status = $2, contract_id = $3, notes = $4, expires_at = $5, updated_at = $6
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, res.ID, string(res.Status), res.ContractID, res.Notes, res.ExpiresAt, res.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(err, "el ítem ya tiene una reserva activa")
		}
		return fmt.Errorf("update reservation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("reserva")
	}
	return nil
}

// CountActiveByItem cantidad de reservas ACTIVE del ítem (0 o 1 por el índice parcial).
func (r *ReservationRepo) CountActiveByItem(ctx context.Context, ref entity.ItemRef) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM reservations WHERE item_kind = $1 AND item_id = $2 AND status = 'ACTIVE'`,
		string(ref.Kind), ref.ID,
	).Scan(&n)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count active reservations: %w", err)
	}
	return n, nil
}

// ListExpired reservas abiertas con expires_at <= now, las más antiguas primero.
// La paginación es por clave (expires_at, id): una reserva que no se pudo vencer no tapa a las siguientes.
func (r *ReservationRepo) ListExpired(ctx context.Context, now time.Time, after *repository.ExpiryCursor, limit int) ([]*entity.Reservation, error) {
	if limit <= 0 {
		limit = 100
	}
	args := []any{now, limit}
	keyset := ""
	if after != nil {
		keyset = ` AND (expires_at, id) > ($3, $4::uuid)`
		args = append(args, after.ExpiresAt, after.ID)
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status IN ('ACTIVE', 'PENDING') AND expires_at <= $1` + keyset + `
		ORDER BY expires_at, id
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}
