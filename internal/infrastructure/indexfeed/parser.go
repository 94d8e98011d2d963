// Package indexfeed lee series mensuales de índices de reajuste (INCC, IGP-M, IPCA) exportadas
// como CSV por las fuentes oficiales: separador ';', coma decimal y a menudo ISO-8859-1.
package indexfeed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Options formato de la fuente.
type Options struct {
	Index  string // nombre de la serie, p. ej. "INCC"
	Latin1 bool   // decodificar ISO-8859-1
	Comma  rune   // separador; ';' por defecto
}

// Parse devuelve la serie ordenada por mes. Las filas cuyo primer campo no es un mes
// (encabezados, notas al pie) se ignoran; un mes repetido es un error.
func Parse(r io.Reader, opts Options) ([]entity.IndexValue, error) {
	index := strings.ToUpper(strings.TrimSpace(opts.Index))
	if index == "" {
		return nil, errors.New("indexfeed: nombre de índice requerido")
	}
	if opts.Latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	seen := make(map[time.Time]bool)
	var out []entity.IndexValue
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("indexfeed: línea %d: %w", line, err)
		}
		if len(rec) < 2 {
			continue
		}
		month, ok := parseMonth(rec[0])
		if !ok {
			continue
		}
		pct, err := parsePercent(rec[1])
		if err != nil {
			return nil, fmt.Errorf("indexfeed: línea %d: variación %q: %w", line, rec[1], err)
		}
		if seen[month] {
			return nil, fmt.Errorf("indexfeed: línea %d: mes %s repetido", line, month.Format("2006-01"))
		}
		seen[month] = true
		out = append(out, entity.IndexValue{Index: index, Month: month, Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

var monthLayouts = []string{"01/2006", "1/2006", "2006-01", "2006-01-02", "02/01/2006"}

func parseMonth(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parsePercent acepta "0,51", "0.51", "1.234,56" y "-0,12%".
func parsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// WriteSQL escribe un script idempotente (upsert) con la serie.
func WriteSQL(w io.Writer, values []entity.IndexValue) error {
	if len(values) == 0 {
		return errors.New("indexfeed: serie vacía")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "-- Serie %s: %d meses (%s a %s)\n", values[0].Index, len(values),
		values[0].Month.Format("2006-01"), values[len(values)-1].Month.Format("2006-01"))
	b.WriteString("INSERT INTO index_values (index_name, month, percent) VALUES\n")
	for i, v := range values {
		sep := ","
		if i == len(values)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  ('%s', '%s', %s)%s\n", strings.ReplaceAll(v.Index, "'", "''"), v.Month.Format("2006-01-02"), v.Percent.String(), sep)
	}
	b.WriteString("ON CONFLICT (index_name, month) DO UPDATE SET percent = EXCLUDED.percent;\n")
	_, err := io.WriteString(w, b.String())
	return err
}
