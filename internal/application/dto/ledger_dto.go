package dto

import (
	"github.com/jhoicas/crm-inmobiliario/internal/application/ledger"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InstallmentResponse cuota expuesta por la API.
type InstallmentResponse struct {
	ID             string          `json:"id"`
	ContractID     string          `json:"contract_id"`
	SequenceNumber int             `json:"sequence_number"`
	Kind           string          `json:"kind"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	DueDate        Date            `json:"due_date"`
	PaidAt         *Date           `json:"paid_at,omitempty"`
	Status         string          `json:"status"`
}

// ToInstallmentResponse mapea la cuota.
func ToInstallmentResponse(i *entity.Installment) InstallmentResponse {
	return InstallmentResponse{
		ID:             i.ID,
		ContractID:     i.ContractID,
		SequenceNumber: i.SequenceNumber,
		Kind:           i.Kind,
		AmountDue:      i.AmountDue,
		AmountPaid:     i.AmountPaid,
		DueDate:        NewDate(i.DueDate),
		PaidAt:         datePtr(i.PaidAt),
		Status:         string(i.Status),
	}
}

// ToInstallmentResponses mapea una lista; nil si está vacía.
func ToInstallmentResponses(list []*entity.Installment) []InstallmentResponse {
	if len(list) == 0 {
		return nil
	}
	out := make([]InstallmentResponse, 0, len(list))
	for _, i := range list {
		out = append(out, ToInstallmentResponse(i))
	}
	return out
}

// PaymentPlanResponse plan generado.
type PaymentPlanResponse struct {
	ContractID   string                `json:"contract_id"`
	Installments []InstallmentResponse `json:"installments"`
}

// RecordPaymentRequest entrada de POST /api/installments/:id/payments.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	PaidOn *Date           `json:"paid_on,omitempty"`
}

// PaymentResponse asiento registrado y cuota resultante.
type PaymentResponse struct {
	ID          string              `json:"id"`
	Amount      decimal.Decimal     `json:"amount"`
	Method      string              `json:"method"`
	PaidOn      Date                `json:"paid_on"`
	Installment InstallmentResponse `json:"installment"`
}

// ToPaymentResponse mapea pago y cuota.
func ToPaymentResponse(p *entity.Payment, inst *entity.Installment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		Amount:      p.Amount,
		Method:      p.Method,
		PaidOn:      NewDate(p.PaidOn),
		Installment: ToInstallmentResponse(inst),
	}
}

// IndexationResponse reajuste aplicado y cuota resultante.
type IndexationResponse struct {
	Result      *ledger.IndexationResult `json:"result"`
	Installment InstallmentResponse      `json:"installment"`
}
