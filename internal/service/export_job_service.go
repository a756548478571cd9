package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	"github.com/noah-isme/consultoria-api/internal/repository"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
	"github.com/noah-isme/consultoria-api/pkg/jobs"
)

const exportJobKind = "student_export"

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportArtifacts interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
	SignDownload(jobID, relPath string) (string, time.Time, error)
	DownloadURL(token string) string
	ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// ExportJobConfig governs queue recovery and cleanup.
type ExportJobConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportJobService manages the lifecycle of asynchronous student exports.
type ExportJobService struct {
	repo      exportJobStore
	queue     jobDispatcher
	artifacts exportArtifacts
	logger    *zap.Logger
	cfg       ExportJobConfig
	now       func() time.Time
}

// NewExportJobService constructs the service.
func NewExportJobService(repo exportJobStore, queue jobDispatcher, artifacts exportArtifacts, logger *zap.Logger, cfg ExportJobConfig) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportJobService{repo: repo, queue: queue, artifacts: artifacts, logger: logger, cfg: cfg, now: time.Now}
}

// CreateJob validates the request, persists the job and enqueues it.
func (s *ExportJobService) CreateJob(ctx context.Context, req dto.ExportJobRequest) (*dto.ExportJobResponse, error) {
	filter, err := ParseExportFilter(req.Type)
	if err != nil {
		return nil, err
	}
	format, err := ParseExportFormat(req.Format)
	if err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		Params: models.ExportJobParams{Filter: filter, Format: format},
		Status: models.ExportJobQueued,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: exportJobKind}); err != nil {
		status := models.ExportJobFailed
		msg := "failed to enqueue job"
		now := s.now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return &dto.ExportJobResponse{ID: job.ID, Status: string(job.Status), Progress: job.Progress}, nil
}

// GetStatus reports job progress and, once finished, a freshly signed download URL.
func (s *ExportJobService) GetStatus(ctx context.Context, id string) (*dto.ExportJobResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.ExportJobResponse{ID: job.ID, Status: string(job.Status), Progress: job.Progress}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	if job.Status == models.ExportJobFinished && job.ResultPath != nil {
		token, expiresAt, err := s.artifacts.SignDownload(job.ID, *job.ResultPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
		}
		url := s.artifacts.DownloadURL(token)
		resp.DownloadURL = &url
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// ResolveDownload validates a token and opens the stored export file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.artifacts.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "invalid or expired download token")
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportJobFinished || job.ResultPath == nil || *job.ResultPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not available")
	}
	file, err := s.artifacts.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		ContentType: contentTypeFor(job.Params.Format),
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *ExportJobService) load(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

// RecoverPendingJobs replays queued jobs after a restart.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: exportJobKind}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup purges expired artifacts periodically until ctx is done.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ExportJobService) cleanupExpired(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	jobs, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Sugar().Warnw("cleanup list failed", "error", err)
		return
	}
	for _, job := range jobs {
		if job.ResultPath == nil {
			continue
		}
		if err := s.artifacts.Delete(*job.ResultPath); err != nil {
			s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
		}
	}
	if _, err := s.artifacts.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func contentTypeFor(format models.ExportFormat) string {
	switch format {
	case models.ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case models.ExportFormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

// ExportWorker bridges queue jobs to the export generator.
type ExportWorker struct {
	repo       exportJobStore
	generator  exportGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, generator exportGenerator, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ExportWorker{repo: repo, generator: generator, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job: PROCESSING, then FINISHED, or back to QUEUED/FAILED on error.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ExportJobProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, err := w.generator.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		status := models.ExportJobQueued
		progress = 0
		params := repository.UpdateExportJobParams{Status: &status, Progress: &progress, ErrorMessage: &msg}
		if job.Attempt >= w.maxRetries {
			status = models.ExportJobFailed
			progress = 100
			now := time.Now().UTC()
			params.FinishedAt = &now
		}
		if updateErr := w.repo.Update(ctx, job.ID, params); updateErr != nil {
			w.logger.Sugar().Warnw("failed to record export failure", "job_id", job.ID, "error", updateErr)
		}
		return err
	}

	finished := models.ExportJobFinished
	progress = 100
	now := time.Now().UTC()
	path := result.RelativePath
	noError := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultPath:   &path,
		ErrorMessage: &noError,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}
