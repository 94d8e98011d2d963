package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métodos de pago aceptados.
const (
	PaymentMethodPix       = "PIX"
	PaymentMethodBoleto    = "BOLETO"
	PaymentMethodTransfer  = "TRANSFER"
	PaymentMethodCard      = "CARD"
	PaymentMethodCash      = "CASH"
	PaymentMethodFinancing = "FINANCING"
)

// ValidPaymentMethod indica si el método es uno de los aceptados.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodPix, PaymentMethodBoleto, PaymentMethodTransfer,
		PaymentMethodCard, PaymentMethodCash, PaymentMethodFinancing:
		return true
	}
	return false
}

// Payment asiento del libro de pagos (transação). Solo se inserta, nunca se modifica.
type Payment struct {
	ID            string
	InstallmentID string
	ContractID    string
	LeadID        string
	CompanyID     string
	Amount        decimal.Decimal
	Method        string
	PaidOn        time.Time
	RecordedBy    string
	CreatedAt     time.Time
}

// IndexValue variación mensual (en %) de una serie de índice (INCC, IGP-M, IPCA...).
type IndexValue struct {
	Index   string
	Month   time.Time // primer día del mes, UTC
	Percent decimal.Decimal
}
