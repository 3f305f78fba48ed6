package report

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
)

// fanOut bounds concurrent detail requests against the backend.
const fanOut = 4

// Source is the slice of the REST client the provider report reads.
type Source interface {
	ListProviders(ctx context.Context, search string) ([]backend.Provider, error)
	GetProvider(ctx context.Context, id int64) (backend.Provider, error)
}

// ProviderRow is one line of the providers report.
type ProviderRow struct {
	ID           int64
	Name         string
	RNC          string
	Active       bool
	Stores       int
	ActiveStores int
}

// ProvidersReport lists providers with their store counts.
type ProvidersReport struct {
	GeneratedAt time.Time
	Rows        []ProviderRow
}

// Totals sums stores over every row.
func (r ProvidersReport) Totals() (stores, active int) {
	for _, row := range r.Rows {
		stores += row.Stores
		active += row.ActiveStores
	}
	return stores, active
}

// BuildProvidersReport lists providers and fetches each detail to count its
// stores. A failed detail fails the whole report.
func BuildProvidersReport(ctx context.Context, src Source, now time.Time) (ProvidersReport, error) {
	list, err := src.ListProviders(ctx, "")
	if err != nil {
		return ProvidersReport{}, err
	}
	rows := make([]ProviderRow, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, p := range list {
		g.Go(func() error {
			detail, err := src.GetProvider(gctx, p.ID)
			if err != nil {
				return err
			}
			row := ProviderRow{ID: p.ID, Name: p.Name, RNC: p.RNC, Active: p.Active, Stores: len(detail.Stores)}
			for _, s := range detail.Stores {
				if s.Active {
					row.ActiveStores++
				}
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ProvidersReport{}, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
	return ProvidersReport{GeneratedAt: now, Rows: rows}, nil
}

// WriteCSV writes the report with a header line.
func (r ProvidersReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "nombre", "rnc", "estado", "tiendas", "tiendas_activas"}); err != nil {
		return err
	}
	for _, row := range r.Rows {
		estado := "Inactivo"
		if row.Active {
			estado = "Activo"
		}
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.Name,
			row.RNC,
			estado,
			strconv.Itoa(row.Stores),
			strconv.Itoa(row.ActiveStores),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
