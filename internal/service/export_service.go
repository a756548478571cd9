package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
	"github.com/noah-isme/consultoria-api/pkg/export"
	"github.com/noah-isme/consultoria-api/pkg/storage"
)

type studentLister interface {
	ListAll(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix      string
	ExpiringWindow time.Duration
	ResultTTL      time.Duration
}

// ExportResult captures a stored export artifact and its signed download location.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// pdfColumns are the columns that fit a landscape page.
var pdfColumns = []string{ColName, ColPlan, ColPlanExpiryDate, ColTrainingStatus, ColPaymentStatus, ColPaymentMethod}

// ExportService filters the student set, projects it to the interchange schema and
// renders it. Stored artifacts back the asynchronous export jobs.
type ExportService struct {
	students  studentLister
	renderers map[models.ExportFormat]renderer
	storage   fileStorage
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. storage and signer may be nil when
// asynchronous jobs are disabled.
func NewExportService(students studentLister, store fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExpiringWindow <= 0 {
		cfg.ExpiringWindow = 30 * 24 * time.Hour
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		students: students,
		renderers: map[models.ExportFormat]renderer{
			models.ExportFormatCSV:  export.NewCSVExporter(),
			models.ExportFormatXLSX: export.NewXLSXExporter("Alunos"),
			models.ExportFormatPDF:  export.NewPDFExporter(),
		},
		storage: store,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ParseExportFilter normalises the optional filter parameter; empty means all.
func ParseExportFilter(raw string) (models.ExportFilter, error) {
	filter := models.ExportFilter(strings.ToLower(strings.TrimSpace(raw)))
	if filter == "" {
		return models.ExportFilterAll, nil
	}
	if !filter.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("filtro de exportação inválido: %s", raw))
	}
	return filter, nil
}

// ParseExportFormat normalises the optional format parameter; empty means csv.
func ParseExportFormat(raw string) (models.ExportFormat, error) {
	format := models.ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		return models.ExportFormatCSV, nil
	}
	if !format.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("formato de exportação inválido: %s", raw))
	}
	return format, nil
}

// exportCriteria maps an export filter to store criteria evaluated at now. Rows are sorted by name.
func exportCriteria(filter models.ExportFilter, now time.Time, window time.Duration) models.StudentFilter {
	criteria := models.StudentFilter{SortBy: "name", SortOrder: "ASC"}
	switch filter {
	case models.ExportFilterActive:
		from := now
		criteria.ExpiryFrom = &from
	case models.ExportFilterExpiring:
		from, to := now, now.Add(window)
		criteria.ExpiryFrom = &from
		criteria.ExpiryTo = &to
	case models.ExportFilterPaid:
		criteria.PaymentStatus = string(models.PaymentStatusPaid)
	case models.ExportFilterPending:
		criteria.PaymentStatus = string(models.PaymentStatusPending)
	case models.ExportFilterOverdue:
		criteria.PaymentStatus = string(models.PaymentStatusOverdue)
	}
	return criteria
}

// ExportFilename is the download name for an export generated at now.
func ExportFilename(filter models.ExportFilter, format models.ExportFormat, now time.Time) string {
	if filter == "" {
		filter = models.ExportFilterAll
	}
	return fmt.Sprintf("alunos_%s_%s.%s", filter, now.UTC().Format("2006-01-02"), format)
}

// Dataset loads the matching students and projects them to the fixed column order.
func (s *ExportService) Dataset(ctx context.Context, filter models.ExportFilter) (export.Dataset, error) {
	students, err := s.students.ListAll(ctx, exportCriteria(filter, s.now().UTC(), s.cfg.ExpiringWindow))
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students for export")
	}
	rows := make([][]string, 0, len(students))
	for i := range students {
		rows = append(rows, studentRecord(&students[i]))
	}
	return export.Dataset{Title: "Alunos", Headers: InterchangeColumns, Rows: rows}, nil
}

// Export renders the filtered students in the requested format.
func (s *ExportService) Export(ctx context.Context, filter models.ExportFilter, format models.ExportFormat) (*dto.ExportFile, error) {
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("formato de exportação inválido: %s", format))
	}
	dataset, err := s.Dataset(ctx, filter)
	if err != nil {
		return nil, err
	}
	if format == models.ExportFormatPDF {
		dataset = dataset.Project(pdfColumns...)
	}
	payload, err := r.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	if s.metrics != nil {
		s.metrics.RecordExport(string(format), string(filter))
	}
	s.logger.Debug("students exported", zap.String("filter", string(filter)), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &dto.ExportFile{
		Filename:    ExportFilename(filter, format, s.now()),
		ContentType: r.ContentType(),
		Content:     payload,
		Rows:        len(dataset.Rows),
	}, nil
}

// Generate renders the export described by a job, stores it and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if s.storage == nil || s.signer == nil {
		return nil, fmt.Errorf("export storage not configured")
	}
	file, err := s.Export(ctx, job.Params.Filter, job.Params.Format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(fmt.Sprintf("%s/%s", job.ID, file.Filename), file.Content)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          s.DownloadURL(token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// DownloadURL is the API path serving a signed export token.
func (s *ExportService) DownloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/exports/download/%s", prefix, token)
}

// SignDownload issues a fresh token for an already stored artifact.
func (s *ExportService) SignDownload(jobID, relPath string) (string, time.Time, error) {
	if s.signer == nil {
		return "", time.Time{}, fmt.Errorf("export signer not configured")
	}
	return s.signer.Generate(jobID, relPath)
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	if s.signer == nil {
		return "", "", time.Time{}, fmt.Errorf("export signer not configured")
	}
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to the configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func studentRecord(st *models.StudentDetail) []string {
	return []string{
		st.Name,
		deref(st.Email),
		deref(st.PlanTypeName),
		formatDate(&st.PlanStartDate),
		formatDate(&st.PlanExpiryDate),
		formatDate(st.TrainingStartDate),
		formatDate(st.TrainingExpiryDate),
		deref(st.TrainingPhaseName),
		string(st.TrainingStatus),
		string(st.PaymentStatus),
		deref(st.PaymentMethod),
		formatDate(st.PaymentDate),
		strconv.FormatFloat(st.Discount, 'f', -1, 64),
		string(st.DiscountType),
		deref(st.TrainingAccessID),
		deref(st.Observations),
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
