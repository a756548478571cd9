package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type lookupFinder interface {
	FindByID(ctx context.Context, id string) (*models.Lookup, error)
}

// StudentService handles direct student CRUD.
type StudentService struct {
	repo      studentRepository
	plans     lookupFinder
	phases    lookupFinder
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, plans, phases lookupFinder, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, plans: plans, phases: phases, validator: validate, metrics: metrics, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	start := time.Now()
	students, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("students.list", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aluno não encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student. Absent statuses and discount fields take their defaults.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		TrainingStatus: models.TrainingStatusNotStarted,
		PaymentStatus:  models.PaymentStatusPending,
	}
	if err := s.apply(ctx, student, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Debug("student created", zap.String("student_id", student.ID))
	return s.Get(ctx, student.ID)
}

// Update replaces the editable fields of a student.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student := detail.Student
	if err := s.apply(ctx, &student, req.CreateStudentRequest); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// Delete removes a student permanently.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// apply copies the request onto student. Statuses present in the request are stored as
// sent; absent ones keep the value already on student.
func (s *StudentService) apply(ctx context.Context, student *models.Student, req dto.CreateStudentRequest) error {
	if err := s.ensureLookup(ctx, s.plans, req.PlanTypeID, "plano não encontrado"); err != nil {
		return err
	}
	phaseID := optionalStringPtr(req.TrainingPhaseID)
	if phaseID != nil {
		if err := s.ensureLookup(ctx, s.phases, *phaseID, "fase de treino não encontrada"); err != nil {
			return err
		}
	}

	planStart, err := CoerceRequiredDate("planStartDate", req.PlanStartDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	planExpiry, err := CoerceRequiredDate("planExpiryDate", req.PlanExpiryDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	trainingStart, err := CoerceOptionalDate("trainingStartDate", stringValue(req.TrainingStartDate))
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	trainingExpiry, err := CoerceOptionalDate("trainingExpiryDate", stringValue(req.TrainingExpiryDate))
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	paymentDate, err := CoerceOptionalDate("paymentDate", stringValue(req.PaymentDate))
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	student.Name = req.Name
	student.Email = optionalStringPtr(req.Email)
	student.PlanTypeID = req.PlanTypeID
	student.PlanStartDate = planStart
	student.PlanExpiryDate = planExpiry
	student.TrainingStartDate = trainingStart
	student.TrainingExpiryDate = trainingExpiry
	student.TrainingPhaseID = phaseID
	if req.TrainingStatus != nil {
		student.TrainingStatus = CoerceTrainingStatus(*req.TrainingStatus)
	}
	if req.PaymentStatus != nil {
		student.PaymentStatus = CoercePaymentStatus(*req.PaymentStatus)
	}
	student.PaymentMethod = optionalStringPtr(req.PaymentMethod)
	student.PaymentDate = paymentDate
	student.Discount = 0
	if req.Discount != nil {
		student.Discount = *req.Discount
	}
	student.DiscountType = models.DiscountTypeAmount
	if req.DiscountType != nil {
		student.DiscountType = CoerceDiscountType(*req.DiscountType)
	}
	student.TrainingAccessID = optionalStringPtr(req.TrainingAccessID)
	student.Observations = optionalStringPtr(req.Observations)
	return nil
}

func (s *StudentService) ensureLookup(ctx context.Context, finder lookupFinder, id, notFound string) error {
	if finder == nil {
		return nil
	}
	if _, err := finder.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, notFound)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lookup")
	}
	return nil
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
