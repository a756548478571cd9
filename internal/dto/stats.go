package dto

import "github.com/noah-isme/consultoria-api/internal/models"

// PaymentStats counts students per payment status.
type PaymentStats struct {
	Paid    int `json:"paid"`
	Pending int `json:"pending"`
	Overdue int `json:"overdue"`
}

// TrainingStats counts students per training status.
type TrainingStats struct {
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	NotStarted int `json:"notStarted"`
}

// ExpiryAlerts buckets students by days left on their plan. Total covers 0 < days <= 30,
// Safe is everyone else (already expired students included) and Expired is informational.
type ExpiryAlerts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Safe     int `json:"safe"`
	Expired  int `json:"expired"`
}

// StudentStats is a point-in-time snapshot over the full student set.
type StudentStats struct {
	TotalStudents     int            `json:"totalStudents"`
	PaymentStats      PaymentStats   `json:"paymentStats"`
	TrainingStats     TrainingStats  `json:"trainingStats"`
	ExpiryAlerts      ExpiryAlerts   `json:"expiryAlerts"`
	PlanDistribution  map[string]int `json:"planDistribution"`
	PhaseDistribution map[string]int `json:"phaseDistribution"`
}

// ReportSummary counts the students listed by each report.
type ReportSummary struct {
	ExpiringCount   int `json:"expiringCount"`
	ExpiredCount    int `json:"expiredCount"`
	PendingPayments int `json:"pendingPayments"`
	OverduePayments int `json:"overduePayments"`
}

// ReportItem is a student row enriched with its days to plan expiry.
type ReportItem struct {
	models.StudentDetail
	DaysUntilExpiry int `json:"daysUntilExpiry"`
}
