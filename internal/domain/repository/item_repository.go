package repository

import (
	"context"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
)

// ItemRepository puerto de lectura/escritura de disponibilidad de ítems (unidades e inmuebles).
// La creación pertenece al catálogo; aquí solo se leen y se actualiza el bloque de disponibilidad.
type ItemRepository interface {
	Get(ctx context.Context, ref entity.ItemRef) (entity.Item, error)
	// GetForUpdate bloquea la fila del ítem hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, ref entity.ItemRef) (entity.Item, error)
	SaveAvailability(ctx context.Context, item entity.Item) error
}
