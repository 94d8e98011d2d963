package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
)

// ReservationExpirer vence una reserva (el gestor de reservas).
type ReservationExpirer interface {
	ExpireReservation(ctx context.Context, actor domain.Actor, reservationID string) (*entity.Reservation, error)
}

// OverdueMarker marca cuotas vencidas (el libro financiero).
type OverdueMarker interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

// SweepResult resumen de una pasada.
type SweepResult struct {
	Expired int
	Skipped int
	Overdue int64
}

// Sweeper barrido periódico: vence reservas con plazo cumplido y marca cuotas atrasadas.
// Cada reserva se vence en su propia transacción a través del gestor de reservas, con un
// actor de sistema de la empresa dueña, así que se respetan las mismas reglas que en la API.
type Sweeper struct {
	txRunner repository.TxRunner
	expirer  ReservationExpirer
	overdue  OverdueMarker
	interval time.Duration
	batch    int
	log      *logger.Logger
	now      func() time.Time
}

// NewSweeper construye el barrido. overdue puede ser nil.
func NewSweeper(txRunner repository.TxRunner, expirer ReservationExpirer, overdue OverdueMarker, interval time.Duration, batch int, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		txRunner: txRunner,
		expirer:  expirer,
		overdue:  overdue,
		interval: interval,
		batch:    batch,
		log:      logger.OrNop(log).Component("sweeper"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Start corre hasta que ctx se cancela.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("barrido de vencimientos iniciado")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("barrido de vencimientos detenido")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error().Err(err).Msg("barrido de vencimientos")
			}
		}
	}
}

// Sweep una pasada completa. Los errores por reserva se registran y no detienen el lote:
// otra instancia pudo haberla vencido o convertido entre la lectura y el cambio.
// Las páginas avanzan con un cursor, así una reserva que falla siempre no frena a las demás.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var out SweepResult
	now := s.now()
	var after *repository.ExpiryCursor
	for {
		var page []*entity.Reservation
		err := s.txRunner.Run(ctx, func(uow *repository.UnitOfWork) error {
			var err error
			page, err = uow.Reservations.ListExpired(ctx, now, after, s.batch)
			return err
		})
		if err != nil {
			return out, domain.AsPersistence("listar reservas vencidas", err)
		}

		for _, r := range page {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			system := domain.Actor{CompanyID: r.CompanyID}
			if _, err := s.expirer.ExpireReservation(ctx, system, r.ID); err != nil {
				out.Skipped++
				ev := s.log.Warn()
				if errors.Is(err, domain.ErrPersistence) {
					ev = s.log.Error()
				}
				ev.Err(err).Str("reservation_id", r.ID).Msg("no se pudo vencer la reserva")
				continue
			}
			out.Expired++
		}
		if len(page) < s.batch {
			break
		}
		after = repository.CursorAfter(page[len(page)-1])
	}

	if s.overdue != nil {
		n, err := s.overdue.MarkOverdue(ctx)
		if err != nil {
			return out, err
		}
		out.Overdue = n
	}
	if out.Expired > 0 || out.Skipped > 0 {
		s.log.Info().Int("expired", out.Expired).Int("skipped", out.Skipped).Msg("reservas vencidas procesadas")
	}
	return out, nil
}
