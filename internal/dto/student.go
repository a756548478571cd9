package dto

// CreateStudentRequest is the JSON body accepted when creating a student directly.
// Dates are calendar dates (YYYY-MM-DD, DD/MM/YYYY or RFC3339).
type CreateStudentRequest struct {
	Name               string   `json:"name" validate:"required"`
	Email              *string  `json:"email" validate:"omitempty,email"`
	PlanTypeID         string   `json:"planTypeId" validate:"required"`
	PlanStartDate      string   `json:"planStartDate" validate:"required"`
	PlanExpiryDate     string   `json:"planExpiryDate" validate:"required"`
	TrainingStartDate  *string  `json:"trainingStartDate"`
	TrainingExpiryDate *string  `json:"trainingExpiryDate"`
	TrainingPhaseID    *string  `json:"trainingPhaseId"`
	TrainingStatus     *string  `json:"trainingStatus"`
	PaymentStatus      *string  `json:"paymentStatus"`
	PaymentMethod      *string  `json:"paymentMethod"`
	PaymentDate        *string  `json:"paymentDate"`
	Discount           *float64 `json:"discount" validate:"omitempty,gte=0"`
	DiscountType       *string  `json:"discountType"`
	TrainingAccessID   *string  `json:"trainingAccessId"`
	Observations       *string  `json:"observations"`
}

// UpdateStudentRequest replaces the editable fields of a student. Absent statuses
// keep their stored value; absent discount fields reset to 0 / valor.
type UpdateStudentRequest struct {
	CreateStudentRequest
}

// StudentListQuery maps the supported list query parameters.
type StudentListQuery struct {
	Name            string `form:"name"`
	PlanTypeID      string `form:"planTypeId"`
	PaymentStatus   string `form:"paymentStatus"`
	TrainingStatus  string `form:"trainingStatus"`
	TrainingPhaseID string `form:"trainingPhaseId"`
	Page            int    `form:"page"`
	PageSize        int    `form:"page_size"`
}

// LookupRequest creates or updates a plan type or training phase.
type LookupRequest struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
	Order *int    `json:"order" validate:"omitempty,gte=0"`
}
