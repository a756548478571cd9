package models

import "time"

// LookupKind distinguishes the two reference tables sharing the same shape.
type LookupKind string

const (
	LookupKindPlanType      LookupKind = "plan_types"
	LookupKindTrainingPhase LookupKind = "training_phases"
)

const (
	DefaultPlanTypeColor      = "#3B82F6"
	DefaultTrainingPhaseColor = "#10B981"
)

// Lookup is a named, ordered and soft-deletable reference row.
type Lookup struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	Order     int       `db:"sort_order" json:"order"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// PlanType is a subscription tier a student purchases.
type PlanType = Lookup

// TrainingPhase is a stage of a student's training programme.
type TrainingPhase = Lookup
