package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/quarry/internal/ir"
	"github.com/roach88/quarry/internal/tabular"
)

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable writes a result table in the requested format.
func writeTable(w io.Writer, t *tabular.Table, format string) error {
	if format == "json" {
		rows := make([]map[string]any, t.NumRows())
		for i := range t.Rows {
			m := make(map[string]any, len(t.Columns))
			for j, c := range t.Columns {
				m[c] = ir.ToAny(t.Rows[i][j])
			}
			rows[i] = m
		}
		return writeJSON(w, map[string]any{
			"columns": t.Columns,
			"rows":    rows,
		})
	}
	_, err := fmt.Fprint(w, t.Pretty())
	return err
}
