package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
)

func newLookupFixture(kind models.LookupKind) (*LookupService, *memoryLookupStore, *memoryCacheRepo) {
	store := newMemoryLookupStore(kind)
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	return NewLookupService(store, cache, nil, time.Minute, zap.NewNop()), store, cacheRepo
}

func TestLookupServiceCreateDefaults(t *testing.T) {
	plans, _, _ := newLookupFixture(models.LookupKindPlanType)
	plan, err := plans.Create(context.Background(), dto.LookupRequest{Name: " Mensal "})
	require.NoError(t, err)
	assert.Equal(t, "Mensal", plan.Name)
	assert.Equal(t, models.DefaultPlanTypeColor, plan.Color)
	assert.Equal(t, 0, plan.Order)
	assert.True(t, plan.Active)

	phases, _, _ := newLookupFixture(models.LookupKindTrainingPhase)
	order := 2
	phase, err := phases.Create(context.Background(), dto.LookupRequest{Name: "Hipertrofia", Order: &order})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTrainingPhaseColor, phase.Color)
	assert.Equal(t, 2, phase.Order)
}

func TestLookupServiceRejectsDuplicatesAndBadColor(t *testing.T) {
	svc, _, _ := newLookupFixture(models.LookupKindPlanType)
	_, err := svc.Create(context.Background(), dto.LookupRequest{Name: "Mensal"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), dto.LookupRequest{Name: "Mensal"})
	assert.Equal(t, appErrors.ErrConflict.Code, appCode(t, err))

	_, err = svc.Create(context.Background(), dto.LookupRequest{Name: "Anual", Color: ptrString("azul")})
	assert.Equal(t, appErrors.ErrValidation.Code, appCode(t, err))
}

func TestLookupServiceListCachesUntilMutation(t *testing.T) {
	svc, store, cacheRepo := newLookupFixture(models.LookupKindPlanType)
	ctx := context.Background()
	_, err := svc.Create(ctx, dto.LookupRequest{Name: "Mensal"})
	require.NoError(t, err)

	items, hit, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 1)

	items, hit, err = svc.ListActive(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, store.listCalls)

	require.NoError(t, svc.Deactivate(ctx, items[0].ID))
	assert.Contains(t, cacheRepo.invalidated, "lookups:plan_types:*")

	items, hit, err = svc.ListActive(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, items)
}

func TestLookupServiceUpdate(t *testing.T) {
	svc, _, _ := newLookupFixture(models.LookupKindTrainingPhase)
	ctx := context.Background()
	a, err := svc.Create(ctx, dto.LookupRequest{Name: "Adaptação"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, dto.LookupRequest{Name: "Definição"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, a.ID, dto.LookupRequest{Name: "Definição"})
	assert.Equal(t, appErrors.ErrConflict.Code, appCode(t, err))

	updated, err := svc.Update(ctx, a.ID, dto.LookupRequest{Name: "Adaptação II", Color: ptrString("#FF0000")})
	require.NoError(t, err)
	assert.Equal(t, "Adaptação II", updated.Name)
	assert.Equal(t, "#FF0000", updated.Color)

	_, err = svc.Update(ctx, "missing", dto.LookupRequest{Name: "X"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appCode(t, err))
}
