package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo disponibilidad de unidades (units) e inmuebles independientes (properties).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

const (
	unitSelect = `
		SELECT u.id, u.company_id, u.status, u.list_price, u.private_area, u.active,
		       u.current_reservation_id, u.current_lead_id, u.updated_at,
		       u.development_id, d.name, u.tower, u.number
		FROM units u JOIN developments d ON d.id = u.development_id
		WHERE u.id = $1`
	propertySelect = `
		SELECT id, company_id, status, list_price, private_area, active,
		       current_reservation_id, current_lead_id, updated_at,
		       code, title, address
		FROM properties WHERE id = $1`
)

// Get lee el ítem sin bloquear.
func (r *ItemRepo) Get(ctx context.Context, ref entity.ItemRef) (entity.Item, error) {
	return r.get(ctx, ref, "")
}

// GetForUpdate lee el ítem y bloquea su fila hasta el fin de la transacción.
func (r *ItemRepo) GetForUpdate(ctx context.Context, ref entity.ItemRef) (entity.Item, error) {
	switch ref.Kind {
	case entity.ItemKindUnit:
		return r.get(ctx, ref, " FOR UPDATE OF u")
	default:
		return r.get(ctx, ref, " FOR UPDATE")
	}
}

func (r *ItemRepo) get(ctx context.Context, ref entity.ItemRef, lock string) (entity.Item, error) {
	if !isUUID(ref.ID) {
		return nil, nil
	}
	switch ref.Kind {
	case entity.ItemKindUnit:
		var u entity.Unit
		err := r.q.QueryRow(ctx, unitSelect+lock, ref.ID).Scan(
			&u.ID, &u.Company, &u.State, &u.Price, &u.PrivateArea, &u.Active,
			&u.ReservationID, &u.LeadID, &u.UpdatedAt,
			&u.DevelopmentID, &u.DevelopmentName, &u.Tower, &u.Number,
		)
		if err != nil {
			if isNoRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("get unit: %w", err)
		}
		return &u, nil
	case entity.ItemKindProperty:
		var p entity.StandaloneProperty
		err := r.q.QueryRow(ctx, propertySelect+lock, ref.ID).Scan(
			&p.ID, &p.Company, &p.State, &p.Price, &p.PrivateArea, &p.Active,
			&p.ReservationID, &p.LeadID, &p.UpdatedAt,
			&p.Code, &p.Title, &p.Address,
		)
		if err != nil {
			if isNoRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("get property: %w", err)
		}
		return &p, nil
	}
	return nil, domain.Validation("tipo de ítem desconocido: %q", ref.Kind)
}

// SaveAvailability persiste estado y referencias de reserva/lead. No toca datos de catálogo.
func (r *ItemRepo) SaveAvailability(ctx context.Context, item entity.Item) error {
	table := "units"
	if item.Ref().Kind == entity.ItemKindProperty {
		table = "properties"
	}
	query := `UPDATE ` + table + `
		SET status = $2, current_reservation_id = $3, current_lead_id = $4, updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		item.Ref().ID, string(item.Status()),
		nullable(item.CurrentReservationID()), nullable(item.CurrentLeadID()),
	)
	if err != nil {
		return fmt.Errorf("update %s availability: %w", table, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("ítem")
	}
	return nil
}
