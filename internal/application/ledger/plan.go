package ledger

import (
	"strings"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MaxInstallments tope de cuotas de un plan (50 años de cuotas mensuales).
const MaxInstallments = 600

// ValidateTerms revisa las condiciones comerciales antes de aceptarlas en un contrato.
func ValidateTerms(terms []entity.PaymentPlanTerm) error {
	total := 0
	for i, t := range terms {
		switch {
		case strings.TrimSpace(t.Kind) == "":
			return domain.Validation("condición %d: tipo requerido", i+1)
		case t.Quantity < 1:
			return domain.Validation("condición %d (%s): la cantidad debe ser al menos 1", i+1, t.Kind)
		case !t.UnitAmount.IsPositive():
			return domain.Validation("condición %d (%s): el valor de la cuota debe ser positivo", i+1, t.Kind)
		case t.FirstDueDate.IsZero():
			return domain.Validation("condición %d (%s): primer vencimiento requerido", i+1, t.Kind)
		case t.Quantity > MaxInstallments:
			return domain.Validation("condición %d (%s): a lo sumo %d cuotas", i+1, t.Kind, MaxInstallments)
		case t.IntervalMonths < 0:
			return domain.Validation("condición %d (%s): intervalo negativo", i+1, t.Kind)
		case t.IntervalMonths > 120:
			return domain.Validation("condición %d (%s): intervalo mayor a 120 meses", i+1, t.Kind)
		}
		total += t.Quantity
		if total > MaxInstallments {
			return domain.Validation("el plan supera las %d cuotas", MaxInstallments)
		}
	}
	return nil
}

// ValidateRules revisa las reglas de reajuste.
func ValidateRules(rules []entity.IndexationRule) error {
	for i, r := range rules {
		switch {
		case strings.TrimSpace(r.Kind) == "":
			return domain.Validation("regla %d: tipo de cuota requerido", i+1)
		case strings.TrimSpace(r.Index) == "":
			return domain.Validation("regla %d (%s): índice requerido", i+1, r.Kind)
		case r.BaseDate.IsZero() || r.StartsOn.IsZero():
			return domain.Validation("regla %d (%s): fecha base e inicio requeridos", i+1, r.Kind)
		case r.EndsOn != nil && r.EndsOn.Before(r.StartsOn):
			return domain.Validation("regla %d (%s): el fin es anterior al inicio", i+1, r.Kind)
		case r.LagMonths < 0:
			return domain.Validation("regla %d (%s): desfase negativo", i+1, r.Kind)
		}
	}
	return nil
}

// ExpandPlan convierte las condiciones en cuotas PENDING numeradas 1..N en el orden de las condiciones.
// Cada condición genera Quantity cuotas desde FirstDueDate cada IntervalMonths meses (1 si es cero);
// el día se ajusta al último del mes cuando el mes es más corto. Los montos no se redondean.
// Las cuotas salen sin ID ni contrato: los asigna quien persiste.
func ExpandPlan(terms []entity.PaymentPlanTerm) ([]*entity.Installment, error) {
	if len(terms) == 0 {
		return nil, domain.Validation("el contrato no tiene condiciones de pago")
	}
	if err := ValidateTerms(terms); err != nil {
		return nil, err
	}
	var out []*entity.Installment
	seq := 0
	for _, t := range terms {
		step := t.IntervalMonths
		if step == 0 {
			step = 1
		}
		for n := 0; n < t.Quantity; n++ {
			seq++
			out = append(out, &entity.Installment{
				SequenceNumber: seq,
				Kind:           t.Kind,
				AmountDue:      t.UnitAmount,
				BaseAmount:     t.UnitAmount,
				AmountPaid:     decimal.Zero,
				DueDate:        addMonthsClamped(t.FirstDueDate, n*step),
				Status:         entity.InstallmentPending,
			})
		}
	}
	return out, nil
}

// addMonthsClamped suma meses sin desbordar: 31/01 + 1 mes = 29/02 (o 28/02).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
