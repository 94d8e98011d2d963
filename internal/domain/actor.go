package domain

// Actor identidad ya resuelta por la capa de autenticación.
// UserID vacío identifica procesos del sistema (p. ej. el barrido de vencimientos).
type Actor struct {
	UserID    string
	CompanyID string
}

// Validate exige al menos la empresa; sin ella ninguna operación puede acotar datos.
func (a Actor) Validate() error {
	if a.CompanyID == "" {
		return &Error{Kind: ErrUnauthorized, Message: "empresa no resuelta"}
	}
	return nil
}

// IsSystem indica si la operación la ejecuta un proceso interno.
func (a Actor) IsSystem() bool { return a.UserID == "" }
