package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content. Each row is positional and aligned with Headers;
// short rows are padded with empty cells.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (d Dataset) record(row []string) []string {
	record := make([]string, len(d.Headers))
	copy(record, row)
	return record
}

// Project returns a dataset restricted to the named columns, in the given order.
func (d Dataset) Project(columns ...string) Dataset {
	index := make(map[string]int, len(d.Headers))
	for i, h := range d.Headers {
		index[h] = i
	}
	out := Dataset{Title: d.Title, Headers: columns, Rows: make([][]string, 0, len(d.Rows))}
	for _, row := range d.Rows {
		projected := make([]string, len(columns))
		for i, col := range columns {
			if pos, ok := index[col]; ok && pos < len(row) {
				projected[i] = row[pos]
			}
		}
		out.Rows = append(out.Rows, projected)
	}
	return out
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType of the rendered document.
func (e *CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

// Render produces CSV encoded bytes for the dataset. The header row is always written.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		if err := writer.Write(data.record(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
