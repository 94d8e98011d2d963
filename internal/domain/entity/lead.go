package entity

import "time"

// Lead oportunidad de venta; StageID es su posición en el embudo.
// StageName y StageTerminal se completan al leer (join) y no se persisten en leads.
type Lead struct {
	ID                string
	CompanyID         string
	Name              string
	StageID           string
	StageName         string
	StageTerminal     bool
	ResponsibleUserID string
	UpdatedAt         time.Time
}

// PipelineStage etapa del embudo, única por empresa según NameKey (nombre normalizado).
type PipelineStage struct {
	ID        string
	CompanyID string
	Name      string
	NameKey   string
	Position  int
	Terminal  bool
	CreatedAt time.Time
}

// LeadHistory entrada de auditoría de una transición que afecta al lead.
type LeadHistory struct {
	ID          string
	LeadID      string
	CompanyID   string
	ActorID     string // vacío = sistema
	Action      string
	FromStageID string
	ToStageID   string
	Details     map[string]any
	CreatedAt   time.Time
}

// Acciones registradas en el historial del lead.
const (
	ActionReservationCreated   = "RESERVATION_CREATED"
	ActionReservationCancelled = "RESERVATION_CANCELLED"
	ActionReservationExpired   = "RESERVATION_EXPIRED"
	ActionContractCreated      = "CONTRACT_CREATED"
	ActionContractStatus       = "CONTRACT_STATUS_CHANGED"
	ActionContractRescinded    = "CONTRACT_RESCINDED"
)
