package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/consultoria-api/internal/dto"
	"github.com/noah-isme/consultoria-api/internal/models"
	appErrors "github.com/noah-isme/consultoria-api/pkg/errors"
)

// ReportType names one of the fixed student reports.
type ReportType string

const (
	ReportExpiring       ReportType = "expiring"
	ReportExpired        ReportType = "expired"
	ReportPendingPayment ReportType = "pending_payment"
	ReportOverduePayment ReportType = "overdue_payment"
)

// ParseReportType validates a report path segment.
func ParseReportType(raw string) (ReportType, error) {
	switch t := ReportType(strings.ToLower(strings.TrimSpace(raw))); t {
	case ReportExpiring, ReportExpired, ReportPendingPayment, ReportOverduePayment:
		return t, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("tipo de relatório inválido: %s", raw))
}

// ReportService builds the operational student reports. Results are computed per request.
type ReportService struct {
	students studentLister
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(students studentLister, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{students: students, logger: logger, now: time.Now}
}

// Summary returns the item count of every report.
func (s *ReportService) Summary(ctx context.Context) (*dto.ReportSummary, error) {
	students, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &dto.ReportSummary{
		ExpiringCount:   len(buildReport(ReportExpiring, students, now)),
		ExpiredCount:    len(buildReport(ReportExpired, students, now)),
		PendingPayments: len(buildReport(ReportPendingPayment, students, now)),
		OverduePayments: len(buildReport(ReportOverduePayment, students, now)),
	}, nil
}

// Report returns the items of a single report.
func (s *ReportService) Report(ctx context.Context, reportType ReportType) ([]dto.ReportItem, error) {
	students, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return buildReport(reportType, students, s.now()), nil
}

func (s *ReportService) load(ctx context.Context) ([]models.StudentDetail, error) {
	students, err := s.students.ListAll(ctx, models.StudentFilter{SortBy: "name", SortOrder: "ASC"})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students for reports")
	}
	return students, nil
}

func buildReport(reportType ReportType, students []models.StudentDetail, now time.Time) []dto.ReportItem {
	items := make([]dto.ReportItem, 0)
	for i := range students {
		st := students[i]
		days := DaysUntilExpiry(st.PlanExpiryDate, now)
		var include bool
		switch reportType {
		case ReportExpiring:
			include = days > 0 && days <= expiryWindowDays
		case ReportExpired:
			include = days <= 0
		case ReportPendingPayment:
			include = st.PaymentStatus == models.PaymentStatusPending
		case ReportOverduePayment:
			include = st.PaymentStatus == models.PaymentStatusOverdue
		}
		if include {
			items = append(items, dto.ReportItem{StudentDetail: st, DaysUntilExpiry: days})
		}
	}

	switch reportType {
	case ReportExpiring:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].PlanExpiryDate.Before(items[j].PlanExpiryDate)
		})
	case ReportExpired:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].PlanExpiryDate.After(items[j].PlanExpiryDate)
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Name < items[j].Name
		})
	}
	return items
}
