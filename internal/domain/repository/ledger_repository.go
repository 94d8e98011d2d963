package repository

import (
	"context"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InstallmentRepository puerto de persistencia de cuotas.
type InstallmentRepository interface {
	CreateBatch(ctx context.Context, list []*entity.Installment) error
	GetByID(ctx context.Context, id string) (*entity.Installment, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Installment, error)
	// ListByContractForUpdate bloquea todas las cuotas del contrato, ordenadas por secuencia.
	ListByContractForUpdate(ctx context.Context, contractID string) ([]*entity.Installment, error)
	ListByContract(ctx context.Context, contractID string) ([]*entity.Installment, error)
	DeleteByContract(ctx context.Context, contractID string) error
	Update(ctx context.Context, inst *entity.Installment) error
	// MarkOverdue pasa a OVERDUE las cuotas PENDING con vencimiento anterior a today.
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
}

// PaymentRepository libro de pagos (solo inserción).
type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	SumByInstallment(ctx context.Context, installmentID string) (decimal.Decimal, error)
}

// IndexRepository series de índices de reajuste. ListRange devuelve los meses en [from, to);
// el nombre del índice no distingue mayúsculas.
type IndexRepository interface {
	ListRange(ctx context.Context, index string, from, to time.Time) ([]entity.IndexValue, error)
}
