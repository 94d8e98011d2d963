package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus estados de la propuesta/contrato.
type ContractStatus string

const (
	ContractDrafting          ContractStatus = "DRAFTING"
	ContractAwaitingSignature ContractStatus = "AWAITING_SIGNATURE"
	ContractSigned            ContractStatus = "SIGNED"
	ContractSold              ContractStatus = "SOLD"
	ContractRefused           ContractStatus = "REFUSED"
	ContractCancelled         ContractStatus = "CANCELLED"
	ContractRescinded         ContractStatus = "RESCINDED"
)

// contractTransitions transiciones permitidas por UpdateStatus.
// SOLD → RESCINDED solo ocurre a través del registro de distrato.
var contractTransitions = map[ContractStatus]map[ContractStatus]bool{
	ContractDrafting:          {ContractAwaitingSignature: true, ContractRefused: true, ContractCancelled: true},
	ContractAwaitingSignature: {ContractSigned: true, ContractRefused: true, ContractCancelled: true},
	ContractSigned:            {ContractSold: true, ContractRefused: true, ContractCancelled: true},
	ContractSold:              {},
	ContractRefused:           {},
	ContractCancelled:         {},
	ContractRescinded:         {},
}

// Valid indica si el estado existe.
func (s ContractStatus) Valid() bool {
	_, ok := contractTransitions[s]
	return ok
}

// CanTransition indica si UpdateStatus puede mover el contrato de from a to.
func CanTransition(from, to ContractStatus) bool {
	return contractTransitions[from][to]
}

// IsClosed estados en los que el contrato ya no genera ni recibe cobros nuevos.
func (s ContractStatus) IsClosed() bool {
	return s == ContractRefused || s == ContractCancelled || s == ContractRescinded
}

// ContractSnapshot atributos del ítem congelados al convertir la reserva.
type ContractSnapshot struct {
	ItemLabel              string          `json:"item_label"`
	ItemArea               decimal.Decimal `json:"item_area"`
	ListPriceAtReservation decimal.Decimal `json:"list_price_at_reservation"`
	LeadName               string          `json:"lead_name"`
}

// PaymentPlanTerm condición comercial: Quantity cuotas de UnitAmount del tipo Kind,
// la primera en FirstDueDate y las siguientes cada IntervalMonths meses (1 por defecto).
type PaymentPlanTerm struct {
	Kind           string          `json:"kind"`
	Quantity       int             `json:"quantity"`
	UnitAmount     decimal.Decimal `json:"unit_amount"`
	FirstDueDate   time.Time       `json:"first_due_date"`
	IntervalMonths int             `json:"interval_months,omitempty"`
}

// IndexationRule regla de reajuste para las cuotas de un tipo.
// El reajuste aplica a cuotas con vencimiento en [StartsOn, EndsOn] (EndsOn opcional);
// el factor acumula la serie Index desde el mes de BaseDate hasta LagMonths antes del vencimiento.
type IndexationRule struct {
	Kind      string     `json:"kind"`
	Index     string     `json:"index"`
	BaseDate  time.Time  `json:"base_date"`
	StartsOn  time.Time  `json:"starts_on"`
	EndsOn    *time.Time `json:"ends_on,omitempty"`
	LagMonths int        `json:"lag_months,omitempty"`
}

// Contract propuesta/contrato derivado de una reserva convertida (uno por reserva).
type Contract struct {
	ID                string
	LeadID            string
	ReservationID     string
	Item              ItemRef
	CompanyID         string
	Snapshot          ContractSnapshot
	ProposedPrice     decimal.Decimal
	Discount          decimal.Decimal
	PaymentPlanTerms  []PaymentPlanTerm
	IndexationRules   []IndexationRule
	Status            ContractStatus
	SignedAt          *time.Time
	SaleClosedAt      *time.Time
	RescindedAt       *time.Time
	RescissionReason  string
	ResponsibleUserID string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewContractParams datos de entrada de NewContract.
type NewContractParams struct {
	ID                string
	Reservation       *Reservation
	Lead              *Lead
	Item              Item
	ProposedPrice     decimal.Decimal
	PaymentPlanTerms  []PaymentPlanTerm
	IndexationRules   []IndexationRule
	ResponsibleUserID string
	CreatedBy         string
	Now               time.Time
}

// NewContract crea el contrato en DRAFTING con snapshot y descuento calculados una única vez.
func NewContract(p NewContractParams) *Contract {
	listPrice := p.Reservation.ListPriceAtReservation
	return &Contract{
		ID:            p.ID,
		LeadID:        p.Lead.ID,
		ReservationID: p.Reservation.ID,
		Item:          p.Reservation.Item,
		CompanyID:     p.Reservation.CompanyID,
		Snapshot: ContractSnapshot{
			ItemLabel:              p.Item.Label(),
			ItemArea:               p.Item.Area(),
			ListPriceAtReservation: listPrice,
			LeadName:               p.Lead.Name,
		},
		ProposedPrice:     p.ProposedPrice,
		Discount:          listPrice.Sub(p.ProposedPrice),
		PaymentPlanTerms:  p.PaymentPlanTerms,
		IndexationRules:   p.IndexationRules,
		Status:            ContractDrafting,
		ResponsibleUserID: p.ResponsibleUserID,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         p.Now,
		UpdatedAt:         p.Now,
	}
}
