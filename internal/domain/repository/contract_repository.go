package repository

import (
	"context"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
)

// ContractRepository puerto de persistencia de contratos.
type ContractRepository interface {
	// Create devuelve domain.ErrConflict si la reserva ya tiene contrato.
	Create(ctx context.Context, c *entity.Contract) error
	GetByID(ctx context.Context, id string) (*entity.Contract, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Contract, error)
	GetByReservation(ctx context.Context, reservationID string) (*entity.Contract, error)
	Update(ctx context.Context, c *entity.Contract) error
}
