// seed_indexes carga series mensuales de índices de reajuste (INCC, IGP-M, IPCA) desde el CSV
// publicado por la fuente oficial.
//
// Uso: go run ./cmd/seed_indexes -index INCC [-latin1] [-apply] ruta/serie.csv
// Sin -apply escribe internal/infrastructure/postgres/seeds/index_<nombre>.sql.
// Con -apply hace upsert directo en la base configurada (DATABASE_URL / DB_*).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/infrastructure/indexfeed"
	"github.com/jhoicas/crm-inmobiliario/internal/infrastructure/postgres"
	"github.com/jhoicas/crm-inmobiliario/pkg/config"
)

func main() {
	index := flag.String("index", "", "nombre de la serie (INCC, IGPM, IPCA...)")
	latin1 := flag.Bool("latin1", true, "el archivo viene en ISO-8859-1")
	comma := flag.String("sep", ";", "separador de columnas")
	apply := flag.Bool("apply", false, "aplicar directamente en la base en vez de generar SQL")
	flag.Parse()

	if flag.NArg() != 1 || *index == "" {
		fmt.Fprintln(os.Stderr, "uso: seed_indexes -index INCC [-latin1] [-apply] serie.csv")
		os.Exit(2)
	}
	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	opts := indexfeed.Options{Index: *index, Latin1: *latin1}
	if r := []rune(*comma); len(r) == 1 {
		opts.Comma = r[0]
	}
	values, err := indexfeed.Parse(f, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer serie: %v\n", err)
		os.Exit(1)
	}
	if len(values) == 0 {
		fmt.Fprintln(os.Stderr, "La serie no tiene meses")
		os.Exit(1)
	}

	if *apply {
		if err := applySeries(values); err != nil {
			fmt.Fprintf(os.Stderr, "Aplicar serie: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Serie %s aplicada: %d meses\n", values[0].Index, len(values))
		return
	}

	outDir := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "seeds")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Crear directorio: %v\n", err)
		os.Exit(1)
	}
	outPath := filepath.Join(outDir, "index_"+strings.ToLower(values[0].Index)+".sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := indexfeed.WriteSQL(out, values); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d meses\n", outPath, len(values))
}

func applySeries(values []entity.IndexValue) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return postgres.NewIndexRepository(tx).Upsert(ctx, values)
	})
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
