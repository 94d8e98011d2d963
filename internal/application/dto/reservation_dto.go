package dto

import (
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CreateReservationRequest entrada de POST /api/reservations.
type CreateReservationRequest struct {
	LeadID       string           `json:"lead_id"`
	ItemKind     string           `json:"item_kind"` // UNIT | PROPERTY
	ItemID       string           `json:"item_id"`
	ExpiresAt    time.Time        `json:"expires_at"`
	SignalAmount *decimal.Decimal `json:"signal_amount,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

// CancelReservationRequest motivo opcional de la cancelación.
type CancelReservationRequest struct {
	Reason string `json:"reason"`
}

// ReservationResponse reserva expuesta por la API.
type ReservationResponse struct {
	ID                     string           `json:"id"`
	LeadID                 string           `json:"lead_id"`
	ItemKind               string           `json:"item_kind"`
	ItemID                 string           `json:"item_id"`
	Status                 string           `json:"status"`
	ReservedAt             time.Time        `json:"reserved_at"`
	ExpiresAt              time.Time        `json:"expires_at"`
	SignalAmount           *decimal.Decimal `json:"signal_amount,omitempty"`
	ListPriceAtReservation decimal.Decimal  `json:"list_price_at_reservation"`
	ContractID             *string          `json:"contract_id,omitempty"`
	Notes                  string           `json:"notes,omitempty"`
}

// ToReservationResponse mapea la entidad.
func ToReservationResponse(r *entity.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:                     r.ID,
		LeadID:                 r.LeadID,
		ItemKind:               string(r.Item.Kind),
		ItemID:                 r.Item.ID,
		Status:                 string(r.Status),
		ReservedAt:             r.ReservedAt,
		ExpiresAt:              r.ExpiresAt,
		SignalAmount:           r.SignalAmount,
		ListPriceAtReservation: r.ListPriceAtReservation,
		ContractID:             r.ContractID,
		Notes:                  r.Notes,
	}
}
