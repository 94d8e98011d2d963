package ledger

import (
	"strings"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IndexationResult resultado del reajuste de una cuota. Applied=false devuelve el monto sin cambios.
type IndexationResult struct {
	InstallmentID  string          `json:"installment_id"`
	Kind           string          `json:"kind"`
	DueDate        time.Time       `json:"due_date"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	AdjustedAmount decimal.Decimal `json:"adjusted_amount"`
	Factor         decimal.Decimal `json:"factor"`
	Applied        bool            `json:"applied"`
	Index          string          `json:"index,omitempty"`
	FromMonth      *time.Time      `json:"from_month,omitempty"`
	ToMonth        *time.Time      `json:"to_month,omitempty"`
}

// MatchRule primera regla cuyo tipo coincide con el de la cuota (sin distinguir mayúsculas).
func MatchRule(rules []entity.IndexationRule, kind string) *entity.IndexationRule {
	for i := range rules {
		if strings.EqualFold(strings.TrimSpace(rules[i].Kind), strings.TrimSpace(kind)) {
			return &rules[i]
		}
	}
	return nil
}

// window meses [from, to) que acumula el factor y si el vencimiento cae en la ventana de la regla.
func window(rule *entity.IndexationRule, due time.Time) (from, to time.Time, inside bool) {
	dueMonth := monthStart(due)
	if dueMonth.Before(monthStart(rule.StartsOn)) {
		return time.Time{}, time.Time{}, false
	}
	if rule.EndsOn != nil && dueMonth.After(monthStart(*rule.EndsOn)) {
		return time.Time{}, time.Time{}, false
	}
	return monthStart(rule.BaseDate), dueMonth.AddDate(0, -rule.LagMonths, 0), true
}

// ComputeIndexation función pura: (cuota, reglas del contrato, serie del índice) → monto reajustado.
// factor = Π (1 + variación/100) para cada mes desde el de la fecha base hasta LagMonths antes del
// mes de vencimiento (excluido). El redondeo a centavos ocurre solo al final.
func ComputeIndexation(inst *entity.Installment, rules []entity.IndexationRule, series []entity.IndexValue) (*IndexationResult, error) {
	base := inst.OriginalAmount()
	res := &IndexationResult{
		InstallmentID:  inst.ID,
		Kind:           inst.Kind,
		DueDate:        inst.DueDate,
		OriginalAmount: base,
		AdjustedAmount: base,
		Factor:         decimal.NewFromInt(1),
	}
	rule := MatchRule(rules, inst.Kind)
	if rule == nil {
		return res, nil
	}
	from, to, inside := window(rule, inst.DueDate)
	if !inside {
		return res, nil
	}

	byMonth := make(map[time.Time]decimal.Decimal, len(series))
	for _, v := range series {
		if strings.EqualFold(v.Index, rule.Index) {
			byMonth[monthStart(v.Month)] = v.Percent
		}
	}
	factor := decimal.NewFromInt(1)
	for m := from; m.Before(to); m = m.AddDate(0, 1, 0) {
		pct, ok := byMonth[m]
		if !ok {
			return nil, domain.Validation("falta la variación de %s para %s", rule.Index, m.Format("2006-01"))
		}
		factor = factor.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred)))
	}

	res.Applied = true
	res.Index = rule.Index
	res.FromMonth, res.ToMonth = &from, &to
	res.Factor = factor
	res.AdjustedAmount = base.Mul(factor).Round(2)
	return res, nil
}
