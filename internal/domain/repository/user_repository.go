package repository

import (
	"context"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
// El motor solo lo consulta para validar al responsable del contrato.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
