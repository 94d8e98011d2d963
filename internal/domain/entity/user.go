package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin   = "admin"
	RoleManager = "gerente"
	RoleBroker  = "corredor"
)

// User usuario de la empresa; el motor solo lo usa para validar el responsable del contrato.
type User struct {
	ID        string
	CompanyID string
	Email     string
	Name      string
	Role      string // admin, gerente, corredor
	Status    string // active, inactive
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive indica si el usuario puede asumir contratos.
func (u *User) IsActive() bool { return u.Status == "" || u.Status == "active" }
