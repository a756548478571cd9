package dto

import "time"

// ImportResult is the outcome of one bulk import call. Errors is null when every row succeeded.
type ImportResult struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// ExportFile is a rendered export ready to be streamed to the caller.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
	Rows        int
}

// ExportJobRequest asks for an asynchronous export.
type ExportJobRequest struct {
	Type   string `json:"type"`
	Format string `json:"format"`
}

// ExportJobResponse describes an export job and, once finished, where to download it.
type ExportJobResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	DownloadURL *string    `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Error       *string    `json:"error,omitempty"`
}
