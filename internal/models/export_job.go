package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportFilter enumerates the categorical predicates accepted by the student export.
type ExportFilter string

const (
	ExportFilterAll      ExportFilter = "all"
	ExportFilterActive   ExportFilter = "active"
	ExportFilterExpiring ExportFilter = "expiring"
	ExportFilterPaid     ExportFilter = "paid"
	ExportFilterPending  ExportFilter = "pending"
	ExportFilterOverdue  ExportFilter = "overdue"
)

// Valid reports whether the filter is one of the supported predicates.
func (f ExportFilter) Valid() bool {
	switch f {
	case ExportFilterAll, ExportFilterActive, ExportFilterExpiring,
		ExportFilterPaid, ExportFilterPending, ExportFilterOverdue:
		return true
	}
	return false
}

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatXLSX || f == ExportFormatPDF
}

// ExportJobStatus captures background job lifecycle states.
type ExportJobStatus string

const (
	ExportJobQueued     ExportJobStatus = "QUEUED"
	ExportJobProcessing ExportJobStatus = "PROCESSING"
	ExportJobFinished   ExportJobStatus = "FINISHED"
	ExportJobFailed     ExportJobStatus = "FAILED"
)

// ExportJob persisted background export metadata.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	Params       ExportJobParams `db:"params" json:"params"`
	Status       ExportJobStatus `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultPath   *string         `db:"result_path" json:"-"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finishedAt,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"errorMessage,omitempty"`
}

// ExportJobParams stores the requested export options persisted as JSONB.
type ExportJobParams struct {
	Filter ExportFilter `json:"type"`
	Format ExportFormat `json:"format"`
}

// Value marshals params to JSON for persistence.
func (p ExportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ExportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportJobParams", value)
	}
	if len(data) == 0 {
		*p = ExportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export job params: %w", err)
	}
	return nil
}
