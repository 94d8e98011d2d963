package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StageNames nombres de las etapas del embudo que el motor mueve automáticamente.
// Se resuelven por empresa y se crean en el primer uso.
type StageNames struct {
	InReservation     string
	ProposalIssued    string
	AwaitingSignature string
	ContractSigned    string
	Sold              string
	Rescinded         string
	Discarded         string
}

// DefaultStageNames valores por defecto si la configuración no los define.
func DefaultStageNames() StageNames {
	return StageNames{
		InReservation:     "In Reservation",
		ProposalIssued:    "Proposal Issued",
		AwaitingSignature: "Awaiting Signature",
		ContractSigned:    "Contract Signed",
		Sold:              "Sold",
		Rescinded:         "Rescinded",
		Discarded:         "Discarded",
	}
}

// withDefaults completa los nombres vacíos.
func (n StageNames) withDefaults() StageNames {
	d := DefaultStageNames()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&n.InReservation, d.InReservation)
	fill(&n.ProposalIssued, d.ProposalIssued)
	fill(&n.AwaitingSignature, d.AwaitingSignature)
	fill(&n.ContractSigned, d.ContractSigned)
	fill(&n.Sold, d.Sold)
	fill(&n.Rescinded, d.Rescinded)
	fill(&n.Discarded, d.Discarded)
	return n
}

// position orden sugerido al crear la etapa; las etapas ya existentes conservan el suyo.
func (n StageNames) position(name string) int {
	switch NameKey(name) {
	case NameKey(n.InReservation):
		return 40
	case NameKey(n.ProposalIssued):
		return 50
	case NameKey(n.AwaitingSignature):
		return 60
	case NameKey(n.ContractSigned):
		return 70
	case NameKey(n.Sold):
		return 80
	case NameKey(n.Rescinded):
		return 90
	case NameKey(n.Discarded):
		return 100
	}
	return 0
}

// IsTerminal etapas en las que un lead ya no admite nuevas reservas (vendido o descartado).
func (n StageNames) IsTerminal(stageName string) bool {
	k := NameKey(stageName)
	return k != "" && (k == NameKey(n.Sold) || k == NameKey(n.Discarded))
}

// NameKey normaliza un nombre de etapa: sin acentos, case folding y espacios colapsados.
// "  Proposta  Emitida" y "proposta emitida" comparten la misma clave.
func NameKey(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, name)
	if err != nil {
		s = name
	}
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
