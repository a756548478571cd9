package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
)

type lookupRepository interface {
	Kind() models.LookupKind
	List(ctx context.Context, activeOnly bool) ([]models.Lookup, error)
	FindByID(ctx context.Context, id string) (*models.Lookup, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, item *models.Lookup) error
	Update(ctx context.Context, item *models.Lookup) error
	Deactivate(ctx context.Context, id string) error
}

// LookupService manages one reference table (plan types or training phases).
type LookupService struct {
	repo         lookupRepository
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
	ttl          time.Duration
	defaultColor string
	label        string
	notFound     string
}

// NewLookupService constructs a LookupService for the repository's kind.
func NewLookupService(repo lookupRepository, cache *CacheService, validate *validator.Validate, ttl time.Duration, logger *zap.Logger) *LookupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &LookupService{repo: repo, cache: cache, validator: validate, logger: logger, ttl: ttl}
	switch repo.Kind() {
	case models.LookupKindTrainingPhase:
		svc.defaultColor = models.DefaultTrainingPhaseColor
		svc.label = "fase de treino"
		svc.notFound = "fase de treino não encontrada"
	default:
		svc.defaultColor = models.DefaultPlanTypeColor
		svc.label = "plano"
		svc.notFound = "plano não encontrado"
	}
	return svc
}

func (s *LookupService) activeKey() string {
	return fmt.Sprintf("lookups:%s:active", s.repo.Kind())
}

func (s *LookupService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, fmt.Sprintf("lookups:%s:*", s.repo.Kind()))
}

// ListActive returns the active rows ordered by sort order then name.
func (s *LookupService) ListActive(ctx context.Context) ([]models.Lookup, bool, error) {
	var cached []models.Lookup
	if s.cache.Get(ctx, s.activeKey(), &cached) {
		return cached, true, nil
	}
	items, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list %s", s.repo.Kind()))
	}
	if items == nil {
		items = []models.Lookup{}
	}
	s.cache.Set(ctx, s.activeKey(), items, s.ttl)
	return items, false, nil
}

// Get returns one row, active or not.
func (s *LookupService) Get(ctx context.Context, id string) (*models.Lookup, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, s.notFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+string(s.repo.Kind()))
	}
	return item, nil
}

// Create inserts a new active row with the kind's default color when none is given.
func (s *LookupService) Create(ctx context.Context, req dto.LookupRequest) (*models.Lookup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}
	item := &models.Lookup{Name: name, Color: s.defaultColor, Active: true}
	if req.Color != nil && *req.Color != "" {
		item.Color = *req.Color
	}
	if req.Order != nil {
		item.Order = *req.Order
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create "+string(s.repo.Kind()))
	}
	s.invalidate(ctx)
	return item, nil
}

// Update changes name, color and order. Absent color and order keep their values.
func (s *LookupService) Update(ctx context.Context, id string, req dto.LookupRequest) (*models.Lookup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return nil, err
	}
	item.Name = name
	if req.Color != nil && *req.Color != "" {
		item.Color = *req.Color
	}
	if req.Order != nil {
		item.Order = *req.Order
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update "+string(s.repo.Kind()))
	}
	s.invalidate(ctx)
	return item, nil
}

// Deactivate hides the row from active listings. Students keep their reference.
func (s *LookupService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate "+string(s.repo.Kind()))
	}
	s.invalidate(ctx)
	return nil
}

func (s *LookupService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("já existe %s com o nome %q", s.label, name))
	}
	return nil
}
