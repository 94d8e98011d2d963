package ledger

import (
	"errors"
	"testing"

	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(index string, year int, pcts ...string) []entity.IndexValue {
	var out []entity.IndexValue
	for i, p := range pcts {
		out = append(out, entity.IndexValue{
			Index:   index,
			Month:   date(year, 1, 1).AddDate(0, i, 0),
			Percent: decimal.RequireFromString(p),
		})
	}
	return out
}

func inccRule() entity.IndexationRule {
	return entity.IndexationRule{Kind: "Monthly", Index: "INCC", BaseDate: date(2025, 1, 10), StartsOn: date(2025, 3, 1), LagMonths: 1}
}

func TestComputeIndexation_AcumulaFactorHastaElDesfase(t *testing.T) {
	inst := &entity.Installment{ID: "i-1", Kind: "Monthly", AmountDue: decimal.NewFromInt(45000), DueDate: date(2025, 4, 5)}

	// Vencimiento en abril con desfase 1: se acumulan enero y febrero.
	res, err := ComputeIndexation(inst, []entity.IndexationRule{inccRule()}, series("INCC", 2025, "1.00", "0.50", "9.99"))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, "INCC", res.Index)
	// 45000 × 1.01 × 1.005 = 45677.25
	assert.True(t, res.AdjustedAmount.Equal(decimal.RequireFromString("45677.25")), "got %s", res.AdjustedAmount)
	assert.True(t, res.OriginalAmount.Equal(decimal.NewFromInt(45000)))
}

func TestComputeIndexation_FueraDeVentanaSinCambio(t *testing.T) {
	inst := &entity.Installment{Kind: "Monthly", AmountDue: decimal.NewFromInt(45000), DueDate: date(2025, 2, 5)}
	res, err := ComputeIndexation(inst, []entity.IndexationRule{inccRule()}, nil)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.True(t, res.AdjustedAmount.Equal(inst.AmountDue))

	end := date(2025, 5, 31)
	rule := inccRule()
	rule.EndsOn = &end
	inst.DueDate = date(2025, 6, 5)
	res, err = ComputeIndexation(inst, []entity.IndexationRule{rule}, nil)
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

func TestComputeIndexation_SinReglaParaElTipo(t *testing.T) {
	inst := &entity.Installment{Kind: "ATO", AmountDue: decimal.NewFromInt(50000), DueDate: date(2025, 6, 5)}
	res, err := ComputeIndexation(inst, []entity.IndexationRule{inccRule()}, series("INCC", 2025, "1", "1", "1", "1", "1"))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.True(t, res.Factor.Equal(decimal.NewFromInt(1)))
}

func TestComputeIndexation_FaltaMesEnLaSerie(t *testing.T) {
	inst := &entity.Installment{Kind: "monthly", AmountDue: decimal.NewFromInt(45000), DueDate: date(2025, 5, 5)}
	_, err := ComputeIndexation(inst, []entity.IndexationRule{inccRule()}, series("INCC", 2025, "1.00"))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestComputeIndexation_UsaMontoOriginal(t *testing.T) {
	inst := &entity.Installment{
		Kind: "Monthly", AmountDue: decimal.RequireFromString("45677.25"), BaseAmount: decimal.NewFromInt(45000), DueDate: date(2025, 4, 5),
	}
	res, err := ComputeIndexation(inst, []entity.IndexationRule{inccRule()}, series("INCC", 2025, "1.00", "0.50"))
	require.NoError(t, err)
	assert.True(t, res.AdjustedAmount.Equal(decimal.RequireFromString("45677.25")))
}

func TestComputeIndexation_RedondeoSoloAlFinal(t *testing.T) {
	rule := entity.IndexationRule{Kind: "Monthly", Index: "IPCA", BaseDate: date(2025, 1, 1), StartsOn: date(2025, 1, 1)}
	inst := &entity.Installment{Kind: "Monthly", AmountDue: decimal.RequireFromString("1000.00"), DueDate: date(2025, 4, 1)}
	res, err := ComputeIndexation(inst, []entity.IndexationRule{rule}, series("IPCA", 2025, "0.333", "0.333", "0.333"))
	require.NoError(t, err)
	// 1000 × 1.00333³ = 1010.0231... → 1010.02
	assert.True(t, res.AdjustedAmount.Equal(decimal.RequireFromString("1010.02")), "got %s", res.AdjustedAmount)
}
