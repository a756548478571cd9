package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
	"github.com/noah-isme/consultoria-api/pkg/export"
)

type studentCreator interface {
	Create(ctx context.Context, student *models.Student) error
}

type referenceSnapshotter interface {
	Snapshot(ctx context.Context) (*ReferenceSnapshot, error)
}

// ImportOptions toggles the optional validation layers of the import.
type ImportOptions struct {
	StrictMode           bool
	EnforcePlanDateOrder bool
}

// ImportService drives the bulk student import: parse, resolve references,
// coerce fields and create one record per row, collecting diagnostics.
type ImportService struct {
	students  studentCreator
	resolver  referenceSnapshotter
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	opts      ImportOptions
}

// NewImportService constructs an ImportService.
func NewImportService(students studentCreator, resolver referenceSnapshotter, metrics *MetricsService, logger *zap.Logger, opts ImportOptions) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("csv")
	})
	return &ImportService{
		students:  students,
		resolver:  resolver,
		validator: v,
		metrics:   metrics,
		logger:    logger,
		opts:      opts,
	}
}

// ImportFile detects the file format and imports its rows.
func (s *ImportService) ImportFile(ctx context.Context, filename, contentType string, r io.Reader) (*dto.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMissingInput, "arquivo vazio")
	}

	head := data
	if len(head) > 8 {
		head = head[:8]
	}
	var rows []ImportRow
	switch sniffFormat(filename, contentType, head) {
	case "csv":
		rows, err = ParseCSVRows(data)
	case "xlsx":
		rows, err = ParseXLSXRows(bytes.NewReader(data))
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "envie um arquivo .csv ou .xlsx")
	}
	if err != nil {
		return nil, err
	}
	return s.ImportRows(ctx, rows)
}

// Template renders the header plus an example row as a csv or xlsx starting file.
func (s *ImportService) Template(format models.ExportFormat) (*dto.ExportFile, error) {
	var r renderer
	switch format {
	case "", models.ExportFormatCSV:
		format = models.ExportFormatCSV
		r = export.NewCSVExporter()
	case models.ExportFormatXLSX:
		r = export.NewXLSXExporter("Alunos")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("formato de modelo inválido: %s", format))
	}
	payload, err := r.Render(export.Dataset{Title: "Modelo de importação", Headers: InterchangeColumns, Rows: ImportTemplate()})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}
	return &dto.ExportFile{
		Filename:    "modelo_importacao_alunos." + string(format),
		ContentType: r.ContentType(),
		Content:     payload,
		Rows:        len(ImportTemplate()),
	}, nil
}

// ImportCSV imports CSV text.
func (s *ImportService) ImportCSV(ctx context.Context, data []byte) (*dto.ImportResult, error) {
	rows, err := ParseCSVRows(data)
	if err != nil {
		return nil, err
	}
	return s.ImportRows(ctx, rows)
}

// ImportRows processes parsed rows sequentially and in order. A failing row adds a
// diagnostic and never stops the rows after it. Warnings are kept only for rows that
// were created. When ctx is cancelled mid-batch the partial result is returned with the
// error; rows already created stay created.
func (s *ImportService) ImportRows(ctx context.Context, rows []ImportRow) (*dto.ImportResult, error) {
	snapshot, err := s.resolver.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan types and training phases")
	}

	result := &dto.ImportResult{}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("student import interrupted", zap.Int("imported", result.Imported), zap.Int("line", row.Line), zap.Error(err))
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "import interrupted")
		}

		name := row.Get(ColName)
		planName := row.Get(ColPlan)
		planID, err := snapshot.ResolvePlan(planName)
		if err != nil {
			s.fail(result, row, fmt.Sprintf("Plano \"%s\" não encontrado para %s", planName, name))
			continue
		}

		student, warnings, err := s.buildStudent(row, planID, snapshot)
		if err != nil {
			s.fail(result, row, fmt.Sprintf("Erro ao importar %s: %s", name, err.Error()))
			continue
		}

		if err := s.students.Create(ctx, student); err != nil {
			s.fail(result, row, fmt.Sprintf("Erro ao importar %s: %s", name, err.Error()))
			continue
		}
		result.Imported++
		result.Warnings = append(result.Warnings, warnings...)
	}

	if s.metrics != nil {
		s.metrics.RecordImport(result.Imported, len(result.Errors))
	}
	s.logger.Info("student import finished",
		zap.Int("rows", len(rows)),
		zap.Int("imported", result.Imported),
		zap.Int("failed", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

func (s *ImportService) fail(result *dto.ImportResult, row ImportRow, diagnostic string) {
	result.Errors = append(result.Errors, diagnostic)
	s.logger.Debug("student import row failed", zap.Int("line", row.Line), zap.String("diagnostic", diagnostic))
}

// strictRow carries the closed-set rules applied in strict mode.
type strictRow struct {
	TrainingStatus string `csv:"status_treino" validate:"omitempty,oneof='Não Iniciado' 'Em Andamento' 'Completado'"`
	PaymentStatus  string `csv:"status_pagamento" validate:"omitempty,oneof='Pendente' 'Pago' 'Vencido'"`
	DiscountType   string `csv:"tipo_desconto" validate:"omitempty,oneof='valor' 'percentual'"`
	Email          string `csv:"email" validate:"omitempty,email"`
}

func (s *ImportService) checkStrict(row ImportRow) error {
	candidate := strictRow{
		TrainingStatus: row.Get(ColTrainingStatus),
		PaymentStatus:  row.Get(ColPaymentStatus),
		DiscountType:   row.Get(ColDiscountType),
		Email:          row.Get(ColEmail),
	}
	if err := s.validator.Struct(candidate); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%s inválido: %v", first.Field(), first.Value())
		}
		return err
	}
	return nil
}

func (s *ImportService) buildStudent(row ImportRow, planID string, snapshot *ReferenceSnapshot) (*models.Student, []string, error) {
	var warnings []string
	name := row.Get(ColName)
	if name == "" {
		return nil, nil, fmt.Errorf("%s é obrigatório", ColName)
	}

	if s.opts.StrictMode {
		if err := s.checkStrict(row); err != nil {
			return nil, nil, err
		}
	}

	planStart, err := CoerceRequiredDate(ColPlanStartDate, row.Get(ColPlanStartDate))
	if err != nil {
		return nil, nil, err
	}
	planExpiry, err := CoerceRequiredDate(ColPlanExpiryDate, row.Get(ColPlanExpiryDate))
	if err != nil {
		return nil, nil, err
	}
	if s.opts.EnforcePlanDateOrder && planExpiry.Before(planStart) {
		return nil, nil, fmt.Errorf("%s anterior a %s", ColPlanExpiryDate, ColPlanStartDate)
	}

	trainingStart, err := CoerceOptionalDate(ColTrainingStartDate, row.Get(ColTrainingStartDate))
	if err != nil {
		return nil, nil, err
	}
	trainingExpiry, err := CoerceOptionalDate(ColTrainingExpiryDate, row.Get(ColTrainingExpiryDate))
	if err != nil {
		return nil, nil, err
	}
	paymentDate, err := CoerceOptionalDate(ColPaymentDate, row.Get(ColPaymentDate))
	if err != nil {
		return nil, nil, err
	}

	phaseName := row.Get(ColTrainingPhase)
	phaseID, err := snapshot.ResolvePhase(phaseName)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Fase \"%s\" não encontrada para %s; importado sem fase", phaseName, name))
	}

	discount := CoerceDiscount(row.Get(ColDiscount))
	if discount.Source == DiscountDefaultedInvalid {
		warnings = append(warnings, fmt.Sprintf("Desconto \"%s\" inválido para %s; usando 0", discount.Raw, name))
	}

	return &models.Student{
		Name:               name,
		Email:              OptionalString(row.Get(ColEmail)),
		PlanTypeID:         planID,
		PlanStartDate:      planStart,
		PlanExpiryDate:     planExpiry,
		TrainingStartDate:  trainingStart,
		TrainingExpiryDate: trainingExpiry,
		TrainingPhaseID:    phaseID,
		TrainingStatus:     CoerceTrainingStatus(row.Get(ColTrainingStatus)),
		PaymentStatus:      CoercePaymentStatus(row.Get(ColPaymentStatus)),
		PaymentMethod:      OptionalString(row.Get(ColPaymentMethod)),
		PaymentDate:        paymentDate,
		Discount:           discount.Value,
		DiscountType:       CoerceDiscountType(row.Get(ColDiscountType)),
		TrainingAccessID:   OptionalString(row.Get(ColTrainingAccessID)),
		Observations:       OptionalString(row.Get(ColObservations)),
	}, warnings, nil
}
