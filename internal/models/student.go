package models

import "time"

// TrainingStatus captures where a student is in the training programme.
type TrainingStatus string

const (
	TrainingStatusNotStarted TrainingStatus = "Não Iniciado"
	TrainingStatusInProgress TrainingStatus = "Em Andamento"
	TrainingStatusCompleted  TrainingStatus = "Completado"
)

// PaymentStatus captures the billing state of the current plan.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pendente"
	PaymentStatusPaid    PaymentStatus = "Pago"
	PaymentStatusOverdue PaymentStatus = "Vencido"
)

// DiscountType tells whether Discount is an absolute amount or a percentage.
type DiscountType string

const (
	DiscountTypeAmount     DiscountType = "valor"
	DiscountTypePercentage DiscountType = "percentual"
)

// PaymentMethods lists the suggested payment methods. The stored value is free text.
var PaymentMethods = []string{
	"PIX",
	"Cartão de Crédito",
	"Cartão de Débito",
	"Boleto Bancário",
	"Dinheiro",
	"Transferência Bancária",
}

// Student represents a paying client of the consultancy.
type Student struct {
	ID                 string         `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	Email              *string        `db:"email" json:"email"`
	PlanTypeID         string         `db:"plan_type_id" json:"planTypeId"`
	PlanStartDate      time.Time      `db:"plan_start_date" json:"planStartDate"`
	PlanExpiryDate     time.Time      `db:"plan_expiry_date" json:"planExpiryDate"`
	TrainingStartDate  *time.Time     `db:"training_start_date" json:"trainingStartDate"`
	TrainingExpiryDate *time.Time     `db:"training_expiry_date" json:"trainingExpiryDate"`
	TrainingPhaseID    *string        `db:"training_phase_id" json:"trainingPhaseId"`
	TrainingStatus     TrainingStatus `db:"training_status" json:"trainingStatus"`
	PaymentStatus      PaymentStatus  `db:"payment_status" json:"paymentStatus"`
	PaymentMethod      *string        `db:"payment_method" json:"paymentMethod"`
	PaymentDate        *time.Time     `db:"payment_date" json:"paymentDate"`
	Discount           float64        `db:"discount" json:"discount"`
	DiscountType       DiscountType   `db:"discount_type" json:"discountType"`
	TrainingAccessID   *string        `db:"training_access_id" json:"trainingAccessId"`
	Observations       *string        `db:"observations" json:"observations"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updatedAt"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Name            string
	PlanTypeID      string
	PaymentStatus   string
	TrainingStatus  string
	TrainingPhaseID string
	ExpiryFrom      *time.Time
	ExpiryTo        *time.Time
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}

// StudentDetail contains a student with the display data of its lookups.
type StudentDetail struct {
	Student
	PlanTypeName       *string `db:"plan_type_name" json:"planTypeName"`
	PlanTypeColor      *string `db:"plan_type_color" json:"planTypeColor,omitempty"`
	TrainingPhaseName  *string `db:"training_phase_name" json:"trainingPhaseName"`
	TrainingPhaseColor *string `db:"training_phase_color" json:"trainingPhaseColor,omitempty"`
}
