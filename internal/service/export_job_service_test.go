package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	"github.com/noah-isme/consultoria-api/internal/repository"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
	"github.com/noah-isme/consultoria-api/pkg/jobs"
)

type memoryJobStore struct {
	jobs map[string]*models.ExportJob
	seq  int
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: map[string]*models.ExportJob{}}
}

func (m *memoryJobStore) Create(ctx context.Context, job *models.ExportJob) error {
	m.seq++
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", m.seq)
	}
	if job.Status == "" {
		job.Status = models.ExportJobQueued
	}
	stored := *job
	m.jobs[job.ID] = &stored
	return nil
}

func (m *memoryJobStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	found := *job
	return &found, nil
}

func (m *memoryJobStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultPath != nil {
		path := *params.ResultPath
		job.ResultPath = &path
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		job.ErrorMessage = &msg
	}
	if params.FinishedAt != nil {
		at := *params.FinishedAt
		job.FinishedAt = &at
	}
	return nil
}

func (m *memoryJobStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportJobQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memoryJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range m.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type failingGenerator struct{ err error }

func (g failingGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	return nil, g.err
}

func TestExportJobLifecycle(t *testing.T) {
	store := newMemoryJobStore()
	dispatcher := &recordingDispatcher{}
	exports := newExportServiceForTest(t, seededExportStore(t))
	svc := NewExportJobService(store, dispatcher, exports, zap.NewNop(), ExportJobConfig{})
	worker := NewExportWorker(store, exports, 1, zap.NewNop())
	ctx := context.Background()

	created, err := svc.CreateJob(ctx, dto.ExportJobRequest{Type: "overdue", Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, string(models.ExportJobQueued), created.Status)
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, created.ID, dispatcher.jobs[0].ID)

	status, err := svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, status.DownloadURL)

	require.NoError(t, worker.Handle(ctx, dispatcher.jobs[0]))

	status, err = svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.ExportJobFinished), status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.DownloadURL)
	require.NotNil(t, status.ExpiresAt)
	require.NotNil(t, store.jobs[created.ID].ErrorMessage)
	assert.Empty(t, *store.jobs[created.ID].ErrorMessage)

	token := (*status.DownloadURL)[len("/api/v1/exports/download/"):]
	download, err := svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "alunos_overdue_2024-06-10.csv", download.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", download.ContentType)
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Ana,")
	assert.NotContains(t, string(body), "Zeca")
}

func TestExportJobCreateValidation(t *testing.T) {
	svc := NewExportJobService(newMemoryJobStore(), &recordingDispatcher{}, nil, zap.NewNop(), ExportJobConfig{})
	_, err := svc.CreateJob(context.Background(), dto.ExportJobRequest{Type: "vip"})
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))

	_, err = svc.GetStatus(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(t, err))
}

func TestExportJobEnqueueFailureMarksFailed(t *testing.T) {
	store := newMemoryJobStore()
	svc := NewExportJobService(store, &recordingDispatcher{err: jobs.ErrNotStarted}, nil, zap.NewNop(), ExportJobConfig{})
	_, err := svc.CreateJob(context.Background(), dto.ExportJobRequest{})
	require.Error(t, err)
	for _, job := range store.jobs {
		assert.Equal(t, models.ExportJobFailed, job.Status)
	}
}

func TestExportWorkerRetriesThenFails(t *testing.T) {
	store := newMemoryJobStore()
	job := &models.ExportJob{Params: models.ExportJobParams{Filter: models.ExportFilterAll, Format: models.ExportFormatCSV}}
	require.NoError(t, store.Create(context.Background(), job))
	worker := NewExportWorker(store, failingGenerator{err: errors.New("disk full")}, 1, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 0})
	require.Error(t, err)
	assert.Equal(t, models.ExportJobQueued, store.jobs[job.ID].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ExportJobFailed, store.jobs[job.ID].Status)
	require.NotNil(t, store.jobs[job.ID].ErrorMessage)
	assert.Equal(t, "disk full", *store.jobs[job.ID].ErrorMessage)

	svc := NewExportJobService(store, &recordingDispatcher{}, nil, zap.NewNop(), ExportJobConfig{})
	status, err := svc.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, status.Error)
	assert.Nil(t, status.DownloadURL)
}

func TestExportJobRecoverPending(t *testing.T) {
	store := newMemoryJobStore()
	require.NoError(t, store.Create(context.Background(), &models.ExportJob{}))
	dispatcher := &recordingDispatcher{}
	svc := NewExportJobService(store, dispatcher, nil, zap.NewNop(), ExportJobConfig{})

	svc.RecoverPendingJobs(context.Background())
	assert.Len(t, dispatcher.jobs, 1)
}

func TestExportJobResolveDownloadRejectsBadToken(t *testing.T) {
	exports := newExportServiceForTest(t, seededExportStore(t))
	svc := NewExportJobService(newMemoryJobStore(), &recordingDispatcher{}, exports, zap.NewNop(), ExportJobConfig{})
	_, err := svc.ResolveDownload(context.Background(), "job.1.abc.def")
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(t, err))
}
