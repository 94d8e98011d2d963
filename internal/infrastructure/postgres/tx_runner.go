package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool    *pgxpool.Pool
	retries int
	log     *logger.Logger
}

// NewTxRunner construye el runner con el pool. retries: reintentos ante 40001/40P01.
func NewTxRunner(pool *pgxpool.Pool, retries int, log *logger.Logger) *TxRunner {
	if retries < 0 {
		retries = 0
	}
	return &TxRunner{pool: pool, retries: retries, log: logger.OrNop(log).Component("tx")}
}

// NewUnitOfWork arma los repositorios sobre q (pool o tx).
func NewUnitOfWork(q Querier) *repository.UnitOfWork {
	return &repository.UnitOfWork{
		Items:        NewItemRepository(q),
		Leads:        NewLeadRepository(q),
		Stages:       NewStageRepository(q),
		History:      NewHistoryRepository(q),
		Reservations: NewReservationRepository(q),
		Contracts:    NewContractRepository(q),
		Installments: NewInstallmentRepository(q),
		Payments:     NewPaymentRepository(q),
		Indexes:      NewIndexRepository(q),
		Users:        NewUserRepository(q),
	}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Ante un fallo de serialización o deadlock repite la unidad completa; agotados los
// reintentos el error sale como ErrPersistence.
func (r *TxRunner) Run(ctx context.Context, fn func(uow *repository.UnitOfWork) error) error {
	for attempt := 0; ; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if isLockTimeout(err) {
			return domain.Conflict(err, "el recurso está siendo modificado por otra operación")
		}
		if !isRetryable(err) {
			return domain.AsPersistence("transacción", err)
		}
		if attempt >= r.retries {
			return domain.Persistence("transacción abortada por concurrencia", err)
		}
		r.log.Debug().Err(err).Int("attempt", attempt+1).Msg("reintentando transacción")
		select {
		case <-ctx.Done():
			return domain.Persistence("transacción cancelada", ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(uow *repository.UnitOfWork) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewUnitOfWork(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(err, "el ítem ya no está disponible")
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
