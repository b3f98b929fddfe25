// Package export renders literature records as a "table of evidence" CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Columns is the table-of-evidence header. The order is part of the format:
// every row is laid out by it regardless of the record's own key order.
var Columns = []string{
	"Citation (APA Format)",
	"Purpose",
	"Design & Method",
	"Sample & Settings",
	"Major Variables Studied & Definitions",
	"Measurement of Variables",
	"Data Analysis",
	"Findings",
	"Limitations",
	"Worth of Practice - Applicability",
	"Title",
	"URL",
}

// WriteTOE writes the header and one row per record to w. A key missing from
// a record becomes an empty cell; keys not in Columns are ignored.
func WriteTOE[R ~map[string]any](w io.Writer, records []R) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("export: writing header: %w", err)
	}

	row := make([]string, len(Columns))
	for i, rec := range records {
		for j, col := range Columns {
			row[j] = cell(rec[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: writing row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flushing csv: %w", err)
	}
	return nil
}

// cell renders one value as text. Strings and numbers are written as-is;
// lists and objects are written as JSON.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool, float64, int, int64:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// FileName returns "TOE_<timestamp>.csv" where the timestamp is ISO-8601 UTC
// with millisecond precision and every ':' replaced by '-', so the name is
// valid on every filesystem Drive syncs to.
func FileName(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return "TOE_" + strings.ReplaceAll(ts, ":", "-") + ".csv"
}
