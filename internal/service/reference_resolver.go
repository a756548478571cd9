package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/consultoria-api/internal/models"
)

// ErrReferenceNotFound is returned when a name matches no lookup row.
var ErrReferenceNotFound = errors.New("reference not found")

type lookupLister interface {
	List(ctx context.Context, activeOnly bool) ([]models.Lookup, error)
}

// ReferenceSnapshot is an in-memory name index over plan types and training
// phases, taken once per import and read without further queries.
type ReferenceSnapshot struct {
	plans  map[string]string
	phases map[string]string
}

// NewReferenceSnapshot indexes the given rows by exact name, active or not.
func NewReferenceSnapshot(plans, phases []models.Lookup) *ReferenceSnapshot {
	return &ReferenceSnapshot{plans: indexByName(plans), phases: indexByName(phases)}
}

func indexByName(items []models.Lookup) map[string]string {
	index := make(map[string]string, len(items))
	for _, item := range items {
		if _, exists := index[item.Name]; !exists {
			index[item.Name] = item.ID
		}
	}
	return index
}

// ResolvePlan maps a plan name to its ID. Absent and unknown names are both ErrReferenceNotFound.
func (s *ReferenceSnapshot) ResolvePlan(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("plan name empty: %w", ErrReferenceNotFound)
	}
	id, ok := s.plans[name]
	if !ok {
		return "", fmt.Errorf("plan %q: %w", name, ErrReferenceNotFound)
	}
	return id, nil
}

// ResolvePhase maps an optional phase name. An absent name resolves to nil without error.
func (s *ReferenceSnapshot) ResolvePhase(name string) (*string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	id, ok := s.phases[name]
	if !ok {
		return nil, fmt.Errorf("phase %q: %w", name, ErrReferenceNotFound)
	}
	return &id, nil
}

// ReferenceResolver loads reference snapshots from the lookup stores.
type ReferenceResolver struct {
	plans  lookupLister
	phases lookupLister
}

// NewReferenceResolver constructs a resolver.
func NewReferenceResolver(plans, phases lookupLister) *ReferenceResolver {
	return &ReferenceResolver{plans: plans, phases: phases}
}

// Snapshot reads every plan type and training phase, including inactive ones.
func (r *ReferenceResolver) Snapshot(ctx context.Context) (*ReferenceSnapshot, error) {
	plans, err := r.plans.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load plan types: %w", err)
	}
	phases, err := r.phases.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load training phases: %w", err)
	}
	return NewReferenceSnapshot(plans, phases), nil
}
