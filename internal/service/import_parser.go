package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
)

// Interchange column names shared by import and export, in export order.
const (
	ColName               = "nome"
	ColEmail              = "email"
	ColPlan               = "plano"
	ColPlanStartDate      = "data_inicio_plano"
	ColPlanExpiryDate     = "data_vencimento_plano"
	ColTrainingStartDate  = "data_inicio_treino"
	ColTrainingExpiryDate = "data_vencimento_treino"
	ColTrainingPhase      = "fase_treino"
	ColTrainingStatus     = "status_treino"
	ColPaymentStatus      = "status_pagamento"
	ColPaymentMethod      = "forma_pagamento"
	ColPaymentDate        = "data_pagamento"
	ColDiscount           = "desconto"
	ColDiscountType       = "tipo_desconto"
	ColTrainingAccessID   = "id_acesso"
	ColObservations       = "observacoes"
)

// InterchangeColumns is the fixed column order of the student CSV schema.
var InterchangeColumns = []string{
	ColName, ColEmail, ColPlan, ColPlanStartDate, ColPlanExpiryDate,
	ColTrainingStartDate, ColTrainingExpiryDate, ColTrainingPhase, ColTrainingStatus,
	ColPaymentStatus, ColPaymentMethod, ColPaymentDate, ColDiscount, ColDiscountType,
	ColTrainingAccessID, ColObservations,
}

const utf8BOM = "\ufeff"

// ImportRow is one data line keyed by trimmed header name.
type ImportRow struct {
	Line   int
	values map[string]string
}

// NewImportRow builds a row from already-keyed values.
func NewImportRow(line int, values map[string]string) ImportRow {
	return ImportRow{Line: line, values: values}
}

// Get returns the trimmed value of a column, or "" when the column is absent.
func (r ImportRow) Get(column string) string {
	return strings.TrimSpace(r.values[column])
}

// ParseCSVRows parses CSV text with a mandatory header row. Blank lines are skipped.
func ParseCSVRows(data []byte) ([]ImportRow, error) {
	text := strings.ToValidUTF8(strings.TrimPrefix(string(data), utf8BOM), "\uFFFD")
	if strings.TrimSpace(text) == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingInput, "arquivo vazio")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "CSV inválido")
	}

	var (
		records [][]string
		lines   []int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "CSV inválido")
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}

	return buildImportRows(header, records, lines)
}

// ParseXLSXRows reads the first sheet of a workbook with the same header semantics as CSV.
func ParseXLSXRows(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "planilha inválida")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "planilha inválida")
	}

	start := -1
	for i, row := range rows {
		if !blankRecord(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, appErrors.Clone(appErrors.ErrMissingInput, "planilha vazia")
	}

	records := rows[start+1:]
	lines := make([]int, len(records))
	for i := range records {
		lines[i] = start + i + 2
	}
	parsed, err := buildImportRows(rows[start], records, lines)
	if err != nil {
		return nil, err
	}
	for _, row := range parsed {
		for _, column := range dateColumns {
			if v, ok := row.values[column]; ok {
				row.values[column] = serialToDate(v)
			}
		}
	}
	return parsed, nil
}

var dateColumns = []string{ColPlanStartDate, ColPlanExpiryDate, ColTrainingStartDate, ColTrainingExpiryDate, ColPaymentDate}

// serialToDate renders an Excel date serial (raw cell value of a date cell) as ISO text.
// Anything that is not a plain positive number is returned unchanged.
func serialToDate(raw string) string {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 || strings.ContainsAny(raw, "-/") {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	t = t.Round(time.Second)
	if serial == math.Trunc(serial) {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}

func buildImportRows(header []string, records [][]string, lines []int) ([]ImportRow, error) {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, utf8BOM)))
	}
	if blankRecord(columns) {
		return nil, appErrors.Clone(appErrors.ErrMissingInput, "cabeçalho ausente")
	}

	rows := make([]ImportRow, 0, len(records))
	for i, record := range records {
		if blankRecord(record) {
			continue
		}
		values := make(map[string]string, len(columns))
		for pos, column := range columns {
			if column == "" || pos >= len(record) {
				continue
			}
			if _, seen := values[column]; seen {
				continue
			}
			values[column] = strings.TrimSpace(record[pos])
		}
		rows = append(rows, ImportRow{Line: lines[i], values: values})
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ImportTemplate renders the header plus one example row, used as a starting file for imports.
func ImportTemplate() [][]string {
	return [][]string{{
		"Maria Silva", "maria@example.com", "Mensal", "2024-01-01", "2024-02-01",
		"2024-01-01", "2024-02-01", "Adaptação", "Não Iniciado", "Pendente",
		"PIX", "", "0", "valor", "", "",
	}}
}

func sniffFormat(filename, contentType string, head []byte) string {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".xlsx"):
		return "xlsx"
	case strings.HasSuffix(name, ".csv"), strings.HasSuffix(name, ".txt"):
		return "csv"
	case strings.Contains(contentType, "spreadsheetml"):
		return "xlsx"
	case strings.Contains(contentType, "csv"), strings.HasPrefix(contentType, "text/"):
		return "csv"
	case bytes.HasPrefix(head, []byte("PK\x03\x04")):
		return "xlsx"
	}
	return ""
}
