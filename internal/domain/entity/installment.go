package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus estado derivado de una cuota (parcela).
type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "PENDING"
	InstallmentPaid      InstallmentStatus = "PAID"
	InstallmentPaidLate  InstallmentStatus = "PAID_LATE"
	InstallmentOverdue   InstallmentStatus = "OVERDUE"
	InstallmentCancelled InstallmentStatus = "CANCELLED"
)

// Installment cuota del plan de pagos de un contrato.
type Installment struct {
	ID             string
	ContractID     string
	LeadID         string
	CompanyID      string
	SequenceNumber int
	Kind           string
	AmountDue      decimal.Decimal
	BaseAmount     decimal.Decimal // monto del plan antes de cualquier reajuste
	AmountPaid     decimal.Decimal
	DueDate        time.Time
	PaidAt         *time.Time
	Status         InstallmentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsSettled indica si la cuota ya fue cubierta por completo.
func (i *Installment) IsSettled() bool {
	return i.Status == InstallmentPaid || i.Status == InstallmentPaidLate
}

// IsOpen cuota aún cobrable (pendiente o vencida).
func (i *Installment) IsOpen() bool {
	return i.Status == InstallmentPending || i.Status == InstallmentOverdue
}

// ApplyPayment suma el monto pagado y deriva el estado.
// Al cubrir el saldo: PAID si paidOn <= vencimiento (por fecha), si no PAID_LATE.
// Una cuota ya liquidada conserva su estado y su fecha de liquidación.
func (i *Installment) ApplyPayment(amount decimal.Decimal, paidOn, now time.Time) {
	i.AmountPaid = i.AmountPaid.Add(amount)
	i.UpdatedAt = now
	if i.IsSettled() || i.AmountPaid.LessThan(i.AmountDue) {
		return
	}
	if dateOnly(paidOn).After(dateOnly(i.DueDate)) {
		i.Status = InstallmentPaidLate
	} else {
		i.Status = InstallmentPaid
	}
	settled := paidOn
	i.PaidAt = &settled
}

// Cancel anula una cuota abierta. Las liquidadas no se tocan.
func (i *Installment) Cancel(now time.Time) bool {
	if !i.IsOpen() {
		return false
	}
	i.Status = InstallmentCancelled
	i.UpdatedAt = now
	return true
}

// OriginalAmount monto sobre el que se calcula el reajuste; reaplicarlo no compone factores.
func (i *Installment) OriginalAmount() decimal.Decimal {
	if i.BaseAmount.IsZero() {
		return i.AmountDue
	}
	return i.BaseAmount
}

// Balance saldo pendiente; negativo si hubo sobrepago.
func (i *Installment) Balance() decimal.Decimal {
	return i.AmountDue.Sub(i.AmountPaid)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
