package dto

import (
	"strings"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PaymentPlanTermRequest condición del plan de pagos.
type PaymentPlanTermRequest struct {
	Kind           string          `json:"kind"`
	Quantity       int             `json:"quantity"`
	UnitAmount     decimal.Decimal `json:"unit_amount"`
	FirstDueDate   Date            `json:"first_due_date"`
	IntervalMonths int             `json:"interval_months,omitempty"`
}

// IndexationRuleRequest regla de reajuste.
type IndexationRuleRequest struct {
	Kind      string `json:"kind"`
	Index     string `json:"index"`
	BaseDate  Date   `json:"base_date"`
	StartsOn  Date   `json:"starts_on"`
	EndsOn    *Date  `json:"ends_on,omitempty"`
	LagMonths int    `json:"lag_months,omitempty"`
}

// ConvertReservationRequest entrada de POST /api/reservations/:id/convert.
type ConvertReservationRequest struct {
	ProposedPrice     *decimal.Decimal         `json:"proposed_price"`
	ResponsibleUserID string                   `json:"responsible_user_id"`
	PaymentPlanTerms  []PaymentPlanTermRequest `json:"payment_plan_terms"`
	IndexationRules   []IndexationRuleRequest  `json:"indexation_rules"`
}

// Terms convierte las condiciones a entidades.
func (r ConvertReservationRequest) Terms() ([]entity.PaymentPlanTerm, []entity.IndexationRule) {
	terms := make([]entity.PaymentPlanTerm, 0, len(r.PaymentPlanTerms))
	for _, t := range r.PaymentPlanTerms {
		terms = append(terms, entity.PaymentPlanTerm{
			Kind:           strings.TrimSpace(t.Kind),
			Quantity:       t.Quantity,
			UnitAmount:     t.UnitAmount,
			FirstDueDate:   t.FirstDueDate.Time,
			IntervalMonths: t.IntervalMonths,
		})
	}
	rules := make([]entity.IndexationRule, 0, len(r.IndexationRules))
	for _, ir := range r.IndexationRules {
		rules = append(rules, entity.IndexationRule{
			Kind:      strings.TrimSpace(ir.Kind),
			Index:     strings.TrimSpace(ir.Index),
			BaseDate:  ir.BaseDate.Time,
			StartsOn:  ir.StartsOn.Time,
			EndsOn:    ir.EndsOn.Ptr(),
			LagMonths: ir.LagMonths,
		})
	}
	return terms, rules
}

// UpdateContractStatusRequest entrada de PATCH /api/contracts/:id/status.
type UpdateContractStatusRequest struct {
	Status       string     `json:"status"`
	SignedAt     *time.Time `json:"signed_at,omitempty"`
	SaleClosedAt *time.Time `json:"sale_closed_at,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

// RescissionRequest entrada de POST /api/contracts/:id/rescission.
type RescissionRequest struct {
	Reason string `json:"reason"`
}

// ContractResponse contrato con su plan de cuotas (si se pidió).
type ContractResponse struct {
	ID                string                   `json:"id"`
	LeadID            string                   `json:"lead_id"`
	ReservationID     string                   `json:"reservation_id"`
	ItemKind          string                   `json:"item_kind"`
	ItemID            string                   `json:"item_id"`
	Status            string                   `json:"status"`
	Snapshot          entity.ContractSnapshot  `json:"snapshot"`
	ProposedPrice     decimal.Decimal          `json:"proposed_price"`
	Discount          decimal.Decimal          `json:"discount"`
	PaymentPlanTerms  []entity.PaymentPlanTerm `json:"payment_plan_terms"`
	IndexationRules   []entity.IndexationRule  `json:"indexation_rules"`
	ResponsibleUserID string                   `json:"responsible_user_id"`
	SignedAt          *time.Time               `json:"signed_at,omitempty"`
	SaleClosedAt      *time.Time               `json:"sale_closed_at,omitempty"`
	RescindedAt       *time.Time               `json:"rescinded_at,omitempty"`
	RescissionReason  string                   `json:"rescission_reason,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	Installments      []InstallmentResponse    `json:"installments,omitempty"`
}

// ToContractResponse mapea el contrato y, opcionalmente, sus cuotas.
func ToContractResponse(c *entity.Contract, installments []*entity.Installment) ContractResponse {
	return ContractResponse{
		ID:                c.ID,
		LeadID:            c.LeadID,
		ReservationID:     c.ReservationID,
		ItemKind:          string(c.Item.Kind),
		ItemID:            c.Item.ID,
		Status:            string(c.Status),
		Snapshot:          c.Snapshot,
		ProposedPrice:     c.ProposedPrice,
		Discount:          c.Discount,
		PaymentPlanTerms:  c.PaymentPlanTerms,
		IndexationRules:   c.IndexationRules,
		ResponsibleUserID: c.ResponsibleUserID,
		SignedAt:          c.SignedAt,
		SaleClosedAt:      c.SaleClosedAt,
		RescindedAt:       c.RescindedAt,
		RescissionReason:  c.RescissionReason,
		CreatedAt:         c.CreatedAt,
		Installments:      ToInstallmentResponses(installments),
	}
}
