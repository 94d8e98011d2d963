package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind discrimina las dos variantes de inventario vendible.
type ItemKind string

const (
	ItemKindUnit     ItemKind = "UNIT"     // unidad de un emprendimiento
	ItemKindProperty ItemKind = "PROPERTY" // inmueble independiente
)

// Valid indica si el tipo es uno de los soportados.
func (k ItemKind) Valid() bool {
	return k == ItemKindUnit || k == ItemKindProperty
}

// ItemStatus disponibilidad comercial del ítem.
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "AVAILABLE"
	ItemStatusReserved  ItemStatus = "RESERVED"
	ItemStatusProposed  ItemStatus = "PROPOSED"
	ItemStatusSold      ItemStatus = "SOLD"
	ItemStatusBlocked   ItemStatus = "BLOCKED"
)

// ItemRef referencia polimórfica {tipo, id} guardada en reservas y contratos.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   string   `json:"id"`
}

func (r ItemRef) String() string { return fmt.Sprintf("%s:%s", r.Kind, r.ID) }

// Item contrato común de Unit y StandaloneProperty. Solo el gestor de reservas
// y el motor de contratos llaman a los métodos que cambian el estado.
type Item interface {
	Ref() ItemRef
	CompanyID() string
	Status() ItemStatus
	ListPrice() decimal.Decimal
	IsActive() bool
	Label() string
	Area() decimal.Decimal
	CurrentReservationID() string
	CurrentLeadID() string

	Hold(reservationID, leadID string, now time.Time)
	MarkProposed(now time.Time)
	MarkSold(now time.Time)
	Release(now time.Time)
}

// Availability bloque de disponibilidad compartido por ambas variantes.
type Availability struct {
	ID            string
	Company       string
	State         ItemStatus
	Price         decimal.Decimal // precio de lista vigente
	PrivateArea   decimal.Decimal // m²
	Active        bool
	ReservationID *string
	LeadID        *string
	UpdatedAt     time.Time
}

func (a *Availability) CompanyID() string          { return a.Company }
func (a *Availability) Status() ItemStatus         { return a.State }
func (a *Availability) ListPrice() decimal.Decimal { return a.Price }
func (a *Availability) IsActive() bool             { return a.Active }
func (a *Availability) Area() decimal.Decimal      { return a.PrivateArea }

func (a *Availability) CurrentReservationID() string {
	if a.ReservationID == nil {
		return ""
	}
	return *a.ReservationID
}

func (a *Availability) CurrentLeadID() string {
	if a.LeadID == nil {
		return ""
	}
	return *a.LeadID
}

// Hold pasa el ítem a RESERVED apuntando a la reserva activa.
func (a *Availability) Hold(reservationID, leadID string, now time.Time) {
	a.State = ItemStatusReserved
	a.ReservationID = &reservationID
	a.LeadID = &leadID
	a.UpdatedAt = now
}

// MarkProposed conserva las referencias: la reserva ya no está ACTIVE pero sigue siendo el origen.
func (a *Availability) MarkProposed(now time.Time) {
	a.State = ItemStatusProposed
	a.UpdatedAt = now
}

func (a *Availability) MarkSold(now time.Time) {
	a.State = ItemStatusSold
	a.UpdatedAt = now
}

// Release devuelve el ítem al stock disponible y limpia las referencias.
func (a *Availability) Release(now time.Time) {
	a.State = ItemStatusAvailable
	a.ReservationID = nil
	a.LeadID = nil
	a.UpdatedAt = now
}

// Unit unidad de un emprendimiento (torre/bloque + número).
type Unit struct {
	Availability
	DevelopmentID   string
	DevelopmentName string
	Tower           string
	Number          string
}

func (u *Unit) Ref() ItemRef { return ItemRef{Kind: ItemKindUnit, ID: u.ID} }

func (u *Unit) Label() string {
	if u.Tower == "" {
		return fmt.Sprintf("%s - %s", u.DevelopmentName, u.Number)
	}
	return fmt.Sprintf("%s - %s %s", u.DevelopmentName, u.Tower, u.Number)
}

// StandaloneProperty inmueble de cartera sin emprendimiento.
type StandaloneProperty struct {
	Availability
	Code    string
	Title   string
	Address string
}

func (p *StandaloneProperty) Ref() ItemRef { return ItemRef{Kind: ItemKindProperty, ID: p.ID} }

func (p *StandaloneProperty) Label() string {
	if p.Code == "" {
		return p.Title
	}
	return p.Code + " - " + p.Title
}

var (
	_ Item = (*Unit)(nil)
	_ Item = (*StandaloneProperty)(nil)
)
