package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus estados de una reserva.
type ReservationStatus string

const (
	ReservationPending             ReservationStatus = "PENDING"
	ReservationActive              ReservationStatus = "ACTIVE"
	ReservationExpired             ReservationStatus = "EXPIRED"
	ReservationCancelled           ReservationStatus = "CANCELLED"
	ReservationConvertedToProposal ReservationStatus = "CONVERTED_TO_PROPOSAL"
	ReservationConvertedToSale     ReservationStatus = "CONVERTED_TO_SALE"
	ReservationRescinded           ReservationStatus = "RESCINDED"
)

// Reservation bloqueo temporal de un ítem para un lead.
// A lo sumo una reserva ACTIVE por ítem (índice único parcial en la base).
type Reservation struct {
	ID                     string
	LeadID                 string
	Item                   ItemRef
	CompanyID              string
	ReservedAt             time.Time
	ExpiresAt              time.Time
	SignalAmount           *decimal.Decimal // sinal / arras, opcional
	ListPriceAtReservation decimal.Decimal
	Status                 ReservationStatus
	CreatedBy              string
	ContractID             *string
	Notes                  string
	UpdatedAt              time.Time
}

// NewReservation construye una reserva ACTIVE tomando empresa y precio del lead y del ítem.
func NewReservation(id string, lead *Lead, item Item, expiresAt time.Time, signal *decimal.Decimal, createdBy string, now time.Time) *Reservation {
	return &Reservation{
		ID:                     id,
		LeadID:                 lead.ID,
		Item:                   item.Ref(),
		CompanyID:              lead.CompanyID,
		ReservedAt:             now,
		ExpiresAt:              expiresAt,
		SignalAmount:           signal,
		ListPriceAtReservation: item.ListPrice(),
		Status:                 ReservationActive,
		CreatedBy:              createdBy,
		UpdatedAt:              now,
	}
}

// IsOpen indica si la reserva puede aún cancelarse o expirar.
func (r *Reservation) IsOpen() bool {
	return r.Status == ReservationActive || r.Status == ReservationPending
}
