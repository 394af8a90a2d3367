package participants

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
)

// knownColumns lead the export in this order; other fields follow sorted.
var knownColumns = []string{"user_id", "tour", "user_name", "user_phone", "user_passport", "created_at"}

// Table is a snapshot of all bookings.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Export returns every booking. Columns are the union of fields across records.
func (r *Registry) Export(ctx context.Context) (Table, error) {
	recs, err := r.store.ExportBookings(ctx)
	if err != nil {
		return Table{}, fmt.Errorf("export: %w", err)
	}

	seen := make(map[string]struct{})
	for _, rec := range recs {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for _, k := range knownColumns {
		if _, ok := seen[k]; ok {
			cols = append(cols, k)
			delete(seen, k)
		}
	}
	extra := make([]string, 0, len(seen))
	for k := range seen {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	cols = append(cols, extra...)

	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = rec[c]
		}
		rows = append(rows, row)
	}
	return Table{Columns: cols, Rows: rows}, nil
}

// WriteCSV writes the header and rows of t to w.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
