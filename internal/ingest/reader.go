package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ignite/affiliate-monitor/internal/source"
)

// ReadCSV parses a CSV stream into string-keyed raw rows using the first
// line as the header. Short rows are padded, long rows truncated; the
// normalizer downstream tolerates missing values, so a ragged export is
// data, not an error.
func ReadCSV(r io.Reader) ([]string, []source.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []source.RawRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return header, rows, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}

		row := make(source.RawRow, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
