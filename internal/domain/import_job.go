package domain

import "time"

// ImportType enumerates what an import file contains.
type ImportType string

const (
	ImportTypeCondominiums ImportType = "condominiums"
	ImportTypeElevators    ImportType = "elevators"
	ImportTypeTechnicians  ImportType = "technicians"
)

// Valid reports whether t is a known import type.
func (t ImportType) Valid() bool {
	switch t {
	case ImportTypeCondominiums, ImportTypeElevators, ImportTypeTechnicians:
		return true
	}
	return false
}

// ImportStatus enumerates import job lifecycle states.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusDone       ImportStatus = "done"
	// ImportStatusFailed is terminal: the job exhausted its attempts.
	ImportStatusFailed ImportStatus = "failed"
)

// ImportRowError records a single rejected row.
type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportJob tracks a background bulk import run.
type ImportJob struct {
	ID            string
	TenantID      string
	UserID        *string
	Type          ImportType
	Status        ImportStatus
	FilePath      string
	TotalRows     int
	ProcessedRows int
	ErrorRows     int
	RowErrors     []ImportRowError
	Attempts      int
	StartedAt     *time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Percent returns completion as a whole percentage.
func (j *ImportJob) Percent() int {
	if j.TotalRows == 0 {
		return 0
	}
	return int(float64(j.ProcessedRows) / float64(j.TotalRows) * 100)
}
