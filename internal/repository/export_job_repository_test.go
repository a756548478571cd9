package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/consultoria-api/internal/models"
)

var exportJobRowColumns = []string{"id", "params", "status", "progress", "result_path", "created_at", "finished_at", "error_message"}

func TestExportJobRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec("INSERT INTO export_jobs").
		WithArgs(sqlmock.AnyArg(), []byte(`{"type":"overdue","format":"xlsx"}`), models.ExportJobQueued, 0, nil, sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{Params: models.ExportJobParams{Filter: models.ExportFilterOverdue, Format: models.ExportFormatXLSX}}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.ExportJobQueued, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	created := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE id = $1")).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns).
			AddRow("job-1", []byte(`{"type":"paid","format":"csv"}`), "FINISHED", 100, "job-1/alunos_paid.csv", created, created, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	job, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportFilterPaid, job.Params.Filter)
	assert.Equal(t, models.ExportJobFinished, job.Status)
	require.NotNil(t, job.ResultPath)
	assert.Equal(t, "job-1/alunos_paid.csv", *job.ResultPath)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryUpdateBuildsSetClause(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	status := models.ExportJobProcessing
	progress := 10
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, progress = $2 WHERE id = $3")).
		WithArgs(status, progress, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateExportJobParams{Status: &status, Progress: &progress}))
	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateExportJobParams{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListQueries(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	cutoff := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns).
			AddRow("job-2", []byte(`{"type":"all","format":"csv"}`), "QUEUED", 0, nil, cutoff, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2")).
		WithArgs(cutoff, 50).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns))

	queued, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, models.ExportFilterAll, queued[0].Params.Filter)

	finished, err := repo.ListFinishedBefore(context.Background(), cutoff, 0)
	require.NoError(t, err)
	assert.Empty(t, finished)
	assert.NoError(t, mock.ExpectationsWereMet())
}
