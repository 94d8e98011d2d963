package repository

import "context"

// UnitOfWork agrupa los repositorios atados a una misma transacción.
// Toda función que participa de una transición recibe el mismo *UnitOfWork,
// de modo que la atomicidad es visible en cada llamada.
type UnitOfWork struct {
	Items        ItemRepository
	Leads        LeadRepository
	Stages       StageRepository
	History      HistoryRepository
	Reservations ReservationRepository
	Contracts    ContractRepository
	Installments InstallmentRepository
	Payments     PaymentRepository
	Indexes      IndexRepository
	Users        UserRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback en otro caso.
// Un fallo deja todas las entidades exactamente como estaban antes de la llamada.
type TxRunner interface {
	Run(ctx context.Context, fn func(uow *UnitOfWork) error) error
}
