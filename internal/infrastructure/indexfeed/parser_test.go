package indexfeed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestParse_FormatoOficial(t *testing.T) {
	src := "Série histórica INCC-M;Variação (%)\n" +
		"02/2025;0,50\n" +
		"01/2025;1,00\n" +
		"2025-03;-0,12%\n" +
		"Fonte: FGV;\n"
	latin1, err := charmap.ISO8859_1.NewEncoder().String(src)
	require.NoError(t, err)

	got, err := Parse(strings.NewReader(latin1), Options{Index: "incc", Latin1: true})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "INCC", got[0].Index)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), got[0].Month)
	assert.True(t, got[0].Percent.Equal(decimal.NewFromInt(1)))
	assert.True(t, got[1].Percent.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, got[2].Percent.Equal(decimal.RequireFromString("-0.12")))
}

func TestParse_Errores(t *testing.T) {
	_, err := Parse(strings.NewReader("01/2025;1,0\n"), Options{})
	assert.Error(t, err, "sin nombre de índice")

	_, err = Parse(strings.NewReader("01/2025;1,0\n01/2025;0,9\n"), Options{Index: "IGPM"})
	assert.ErrorContains(t, err, "repetido")

	_, err = Parse(strings.NewReader("01/2025;abc\n"), Options{Index: "IGPM"})
	assert.ErrorContains(t, err, "línea 1")
}

func TestParse_SeparadorComaYMilesConPunto(t *testing.T) {
	got, err := Parse(strings.NewReader("2024-12-01,0.45\n"), Options{Index: "IPCA", Comma: ','})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Percent.Equal(decimal.RequireFromString("0.45")))

	pct, err := parsePercent("1.234,56")
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.RequireFromString("1234.56")))
}

func TestWriteSQL(t *testing.T) {
	values, err := Parse(strings.NewReader("01/2025;1,00\n02/2025;0,50\n"), Options{Index: "INCC"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSQL(&buf, values))
	sql := buf.String()
	assert.Contains(t, sql, "('INCC', '2025-01-01', 1),")
	assert.Contains(t, sql, "('INCC', '2025-02-01', 0.5)\n")
	assert.Contains(t, sql, "ON CONFLICT (index_name, month) DO UPDATE")

	assert.Error(t, WriteSQL(&buf, nil))
}
