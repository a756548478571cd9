package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
)

const (
	day = 24 * time.Hour

	expiryWindowDays   = 30
	expiryCriticalDays = 7
	expiryWarningDays  = 15

	noPhaseLabel = "Sem Fase"
)

// DaysUntilExpiry is ceil((expiry - now) / 1 day). Expired plans give zero or negative values.
func DaysUntilExpiry(expiry, now time.Time) int {
	diff := expiry.Sub(now)
	days := diff / day
	if diff%day > 0 {
		days++
	}
	return int(days)
}

// ComputeStats builds the statistics snapshot for the given students at now.
func ComputeStats(students []models.StudentDetail, now time.Time) dto.StudentStats {
	stats := dto.StudentStats{
		TotalStudents:     len(students),
		PlanDistribution:  map[string]int{},
		PhaseDistribution: map[string]int{},
	}

	for i := range students {
		st := &students[i]

		switch st.PaymentStatus {
		case models.PaymentStatusPaid:
			stats.PaymentStats.Paid++
		case models.PaymentStatusPending:
			stats.PaymentStats.Pending++
		case models.PaymentStatusOverdue:
			stats.PaymentStats.Overdue++
		}

		switch st.TrainingStatus {
		case models.TrainingStatusCompleted:
			stats.TrainingStats.Completed++
		case models.TrainingStatusInProgress:
			stats.TrainingStats.InProgress++
		case models.TrainingStatusNotStarted:
			stats.TrainingStats.NotStarted++
		}

		days := DaysUntilExpiry(st.PlanExpiryDate, now)
		switch {
		case days <= 0:
			stats.ExpiryAlerts.Expired++
		case days <= expiryWindowDays:
			stats.ExpiryAlerts.Total++
			if days <= expiryCriticalDays {
				stats.ExpiryAlerts.Critical++
			} else if days <= expiryWarningDays {
				stats.ExpiryAlerts.Warning++
			}
		}

		if st.PlanTypeName != nil && *st.PlanTypeName != "" {
			stats.PlanDistribution[*st.PlanTypeName]++
		}
		phase := noPhaseLabel
		if st.TrainingPhaseName != nil && *st.TrainingPhaseName != "" {
			phase = *st.TrainingPhaseName
		}
		stats.PhaseDistribution[phase]++
	}

	// Expired students fall outside the 0-30 day window and are counted as safe.
	stats.ExpiryAlerts.Safe = stats.TotalStudents - stats.ExpiryAlerts.Total
	return stats
}

// StatsService exposes the statistics snapshot. Results are never cached.
type StatsService struct {
	students studentLister
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService constructs a StatsService.
func NewStatsService(students studentLister, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{students: students, logger: logger, now: time.Now}
}

// Stats recomputes the snapshot from the full student set at the current time.
func (s *StatsService) Stats(ctx context.Context) (*dto.StudentStats, error) {
	students, err := s.students.ListAll(ctx, models.StudentFilter{SortBy: "created_at", SortOrder: "DESC"})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students for stats")
	}
	stats := ComputeStats(students, s.now())
	return &stats, nil
}
