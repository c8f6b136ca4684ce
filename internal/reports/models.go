package reports

import (
	"errors"
	"time"
)

// Constants for validation
const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

var ErrInvalidFormat = errors.New("invalid format")

// Report describes an exported report object.
type Report struct {
	Key         string    `json:"key"`
	Format      string    `json:"format"`
	SizeBytes   int64     `json:"size_bytes"`
	DownloadURL string    `json:"download_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParseFormat validates a format name; empty means PDF.
func ParseFormat(s string) (string, error) {
	switch s {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", ErrInvalidFormat
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if format == FormatCSV {
		return "text/csv"
	}
	return "application/pdf"
}
