package service

import (
	"context"
	"encoding/csv"
	"os"
	"strings"

	"github.com/spec-kit/dispatch-service/internal/domain"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

// CSVRowSource reads import rows from a local CSV file. The first record is
// the header; row values are keyed by the lowercased header names.
type CSVRowSource struct {
	path string
}

// NewCSVRowSource builds a source for the given file path.
func NewCSVRowSource(path string) *CSVRowSource {
	return &CSVRowSource{path: path}
}

// Rows parses the whole file.
func (s *CSVRowSource) Rows(ctx context.Context) ([]ImportRow, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewValidationError("file has no header row", nil)
	}

	header := records[0]
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	rows := make([]ImportRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(ImportRow, len(header))
		for i, value := range record {
			if i < len(header) {
				row[header[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FileRowSourceResolver resolves a job's file path to a CSV source.
func FileRowSourceResolver() RowSourceResolver {
	return func(job *domain.ImportJob) (RowSource, error) {
		return NewCSVRowSource(job.FilePath), nil
	}
}
