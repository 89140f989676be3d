package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

type importFixture struct {
	service     *ImportService
	jobs        *memImportJobRepo
	condos      *memCondominiumRepo
	elevators   *memElevatorRepo
	technicians *memTechnicianRepo
	dispatcher  *recordingDispatcher
}

func newImportFixture(t *testing.T, batchSize int) *importFixture {
	t.Helper()
	f := &importFixture{
		jobs:        newMemImportJobRepo(),
		condos:      newMemCondominiumRepo(),
		elevators:   newMemElevatorRepo(),
		technicians: newMemTechnicianRepo(),
		dispatcher:  &recordingDispatcher{},
	}
	f.service = NewImportService(ImportDependencies{
		JobRepo:         f.jobs,
		CondominiumRepo: f.condos,
		ElevatorRepo:    f.elevators,
		TechnicianRepo:  f.technicians,
		Dispatcher:      f.dispatcher,
		Clock:           testclock.NewClock(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)),
		BatchSize:       batchSize,
	})
	return f
}

func TestCreateJobValidatesInput(t *testing.T) {
	f := newImportFixture(t, 0)

	_, err := f.service.CreateJob(context.Background(), testTenant, nil, domain.ImportType("bogus"), "file.csv")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.CreateJob(context.Background(), testTenant, nil, domain.ImportTypeCondominiums, "  ")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	job, err := f.service.CreateJob(context.Background(), testTenant, nil, domain.ImportTypeCondominiums, "condos.csv")
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusPending, job.Status)
}

func TestRunImportsCondominiumRows(t *testing.T) {
	f := newImportFixture(t, 0)
	job, err := f.service.CreateJob(context.Background(), testTenant, nil, domain.ImportTypeCondominiums, "condos.csv")
	require.NoError(t, err)

	source := stubRowSource{rows: []ImportRow{
		{"name": "Residencial Aurora", "city": "Curitiba"},
		{"city": "Curitiba"}, // missing name
		{"name": "Edifício Central"},
	}}
	require.NoError(t, f.service.Run(context.Background(), testTenant, job.ID, source))

	done, err := f.service.GetJob(context.Background(), testTenant, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusDone, done.Status)
	assert.Equal(t, 3, done.TotalRows)
	assert.Equal(t, 2, done.ProcessedRows)
	assert.Equal(t, 1, done.ErrorRows)
	require.Len(t, done.RowErrors, 1)
	// header is row 1, so the second data row is file row 3
	assert.Equal(t, 3, done.RowErrors[0].Row)
	require.NotNil(t, done.FinishedAt)
	assert.Equal(t, 1, done.Attempts)

	condos, err := f.condos.List(context.Background(), testTenant, 0, 0)
	require.NoError(t, err)
	assert.Len(t, condos, 2)
}

func TestRunImportsElevatorRowsWithTenantCheck(t *testing.T) {
	f := newImportFixture(t, 0)

	condo := &domain.Condominium{TenantID: testTenant, Name: "Residencial Aurora"}
	require.NoError(t, f.condos.Create(context.Background(), condo))

	job, err := f.service.CreateJob(context.Background(), testTenant, nil, domain.ImportTypeElevators, "elevators.csv")
	require.NoError(t, err)

	source := stubRowSource{rows: []ImportRow{
		{"condominium_id": condo.ID, "serial_number": "ELV-1", "floor_count": "12"},
		{"condominium_id": "foreign", "serial_number": "ELV-2"},
		{"condominium_id": condo.ID, "serial_number": "ELV-3", "floor_count": "twelve"},
	}}
	require.NoError(t, f.service.Run(context.Background(), testTenant, job.ID, source))

	done, err := f.service.GetJob(context.Background(), testTenant, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, done.ProcessedRows)
	assert.Equal(t, 2, done.ErrorRows)

	elevators, err := f.elevators.ListByCondominium(context.Background(), testTenant, condo.ID)
	require.NoError(t, err)
	require.Len(t, elevators, 1)
	assert.Equal(t, 12, elevators[0].FloorCount)
}

func TestRunPublishesProgressPerBatch(t *testing.T) {
	f := newImportFixture(t, 2)
	job, err := f.service.CreateJob(context.Background(), testTenant, nil, domain.ImportTypeTechnicians, "techs.csv")
	require.NoError(t, err)

	source := stubRowSource{rows: []ImportRow{
		{"name": "Ana"}, {"name": "Bruno"}, {"name": "Carla"},
	}}
	require.NoError(t, f.service.Run(context.Background(), testTenant, job.ID, source))

	// one event on start, one per batch (2 batches), one on completion
	progress := f.dispatcher.byName(events.EventImportProgress)
	require.Len(t, progress, 4)

	final, ok := progress[len(progress)-1].Payload.(events.ImportProgressPayload)
	require.True(t, ok)
	assert.Equal(t, domain.ImportStatusDone, final.Status)
	assert.Equal(t, 100, final.Percent)
	assert.Equal(t, 3, final.ProcessedRows)
}

func TestRunSourceFailureLeavesJobRetriable(t *testing.T) {
	f := newImportFixture(t, 0)
	job, err := f.service.CreateJob(context.Background(), testTenant, nil, domain.ImportTypeTechnicians, "techs.csv")
	require.NoError(t, err)

	err = f.service.Run(context.Background(), testTenant, job.ID, stubRowSource{err: errors.New("corrupt file")})
	require.Error(t, err)

	stuck, err := f.service.GetJob(context.Background(), testTenant, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusProcessing, stuck.Status)
	assert.Equal(t, 1, stuck.Attempts)

	// a retry succeeds and counts the attempt
	require.NoError(t, f.service.Run(context.Background(), testTenant, job.ID, stubRowSource{rows: []ImportRow{{"name": "Ana"}}}))
	done, err := f.service.GetJob(context.Background(), testTenant, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusDone, done.Status)
	assert.Equal(t, 2, done.Attempts)
}

func TestMarkFailedDeadLettersJob(t *testing.T) {
	f := newImportFixture(t, 0)
	job, err := f.service.CreateJob(context.Background(), testTenant, nil, domain.ImportTypeTechnicians, "techs.csv")
	require.NoError(t, err)

	require.NoError(t, f.service.MarkFailed(context.Background(), testTenant, job.ID))

	failed, err := f.service.GetJob(context.Background(), testTenant, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusFailed, failed.Status)
	require.NotNil(t, failed.FinishedAt)
}
