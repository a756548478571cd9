package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/consultoria-api/internal/models"
)

func TestReferenceSnapshotResolve(t *testing.T) {
	snapshot := NewReferenceSnapshot(
		[]models.Lookup{{ID: "p1", Name: "Mensal"}, {ID: "p2", Name: "Anual", Active: false}},
		[]models.Lookup{{ID: "f1", Name: "Adaptação"}},
	)

	id, err := snapshot.ResolvePlan(" Mensal ")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	id, err = snapshot.ResolvePlan("Anual")
	require.NoError(t, err)
	assert.Equal(t, "p2", id)

	_, err = snapshot.ResolvePlan("mensal")
	assert.True(t, errors.Is(err, ErrReferenceNotFound))
	_, err = snapshot.ResolvePlan("")
	assert.True(t, errors.Is(err, ErrReferenceNotFound))

	phase, err := snapshot.ResolvePhase("")
	require.NoError(t, err)
	assert.Nil(t, phase)

	phase, err = snapshot.ResolvePhase("Adaptação")
	require.NoError(t, err)
	assert.Equal(t, "f1", *phase)

	_, err = snapshot.ResolvePhase("Força")
	assert.True(t, errors.Is(err, ErrReferenceNotFound))
}

func TestReferenceResolverIncludesInactive(t *testing.T) {
	plans := newMemoryLookupStore(models.LookupKindPlanType, "Mensal")
	require.NoError(t, plans.Deactivate(context.Background(), plans.idOf("Mensal")))
	phases := newMemoryLookupStore(models.LookupKindTrainingPhase)

	snapshot, err := NewReferenceResolver(plans, phases).Snapshot(context.Background())
	require.NoError(t, err)
	id, err := snapshot.ResolvePlan("Mensal")
	require.NoError(t, err)
	assert.Equal(t, plans.idOf("Mensal"), id)
}
