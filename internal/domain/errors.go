package domain

import (
	"errors"
	"fmt"
)

// Clases de error del motor de reservas y contratos (sin dependencias externas).
// Los casos de uso devuelven siempre un *Error o un *TransitionError cuya clase
// se compara con errors.Is contra estos sentinelas.
var (
	ErrValidation   = errors.New("entrada inválida")
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrInvalidState = errors.New("transición de estado inválida")
	ErrPersistence  = errors.New("fallo de persistencia")
	ErrUnauthorized = errors.New("no autorizado")
)

// Error error de dominio con clase, mensaje legible y causa opcional.
// La causa no forma parte del mensaje para no filtrar detalles del almacenamiento.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

// Is permite errors.Is(err, domain.ErrConflict) y similares.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Validation construye un ErrValidation.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound construye un ErrNotFound para la entidad indicada.
func NotFound(entity string) error {
	return &Error{Kind: ErrNotFound, Message: entity + " no encontrado"}
}

// Conflict construye un ErrConflict. cause puede ser nil.
func Conflict(cause error, format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...), Err: cause}
}

// InvalidState construye un ErrInvalidState sin origen/destino explícitos.
func InvalidState(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

// Persistence envuelve un fallo del almacenamiento. Reintentar la unidad completa es seguro.
func Persistence(op string, cause error) error {
	return &Error{Kind: ErrPersistence, Message: op, Err: cause}
}

// TransitionError transición ilegal de una máquina de estados; nombra estado actual y solicitado.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s no puede pasar de %s a %s", ErrInvalidState.Error(), e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidState }

// IsDomainError indica si err ya pertenece a alguna clase del dominio.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrUnauthorized)
}

// AsPersistence deja pasar errores de dominio y envuelve el resto como ErrPersistence.
func AsPersistence(op string, err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	return Persistence(op, err)
}
