package repository

import (
	"context"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
)

// ReservationRepository puerto de persistencia de reservas.
type ReservationRepository interface {
	// Create devuelve domain.ErrConflict si ya existe una reserva ACTIVE para el ítem.
	Create(ctx context.Context, r *entity.Reservation) error
	GetByID(ctx context.Context, id string) (*entity.Reservation, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error)
	Update(ctx context.Context, r *entity.Reservation) error
	CountActiveByItem(ctx context.Context, ref entity.ItemRef) (int, error)
	// ListExpired reservas abiertas con expires_at <= now en orden (expires_at, id),
	// empezando después de after (nil = desde el principio).
	ListExpired(ctx context.Context, now time.Time, after *ExpiryCursor, limit int) ([]*entity.Reservation, error)
}

// ExpiryCursor última reserva leída por un barrido.
type ExpiryCursor struct {
	ExpiresAt time.Time
	ID        string
}

// CursorAfter posición de r para pedir la página siguiente.
func CursorAfter(r *entity.Reservation) *ExpiryCursor {
	return &ExpiryCursor{ExpiresAt: r.ExpiresAt, ID: r.ID}
}
