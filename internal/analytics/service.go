package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Months of spend history returned by the dashboard chart.
const spendHistoryMonths = 12

// VendorDashboard is the aggregate view behind the vendor analytics screen.
type VendorDashboard struct {
	PurchaseCount int64           `json:"purchase_count"`
	TotalSpend    decimal.Decimal `json:"total_spend"`
	FeedbackCount int64           `json:"feedback_count"`
	BookedCount   int64           `json:"booked_count"`
	// BookingRate is booked leads over purchased leads, 0 when nothing bought.
	BookingRate  float64        `json:"booking_rate"`
	SpendByMonth []MonthlySpend `json:"spend_by_month"`
}

// Service provides vendor-facing analytics reports.
type Service interface {
	VendorDashboard(ctx context.Context, userID uuid.UUID) (*VendorDashboard, error)
}

type service struct {
	repo Repository
}

// NewService builds the analytics service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) VendorDashboard(ctx context.Context, userID uuid.UUID) (*VendorDashboard, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	purchases, err := s.repo.PurchaseTotals(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase totals")
	}
	feedback, err := s.repo.FeedbackTotals(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load feedback totals")
	}
	spend, err := s.repo.SpendByMonth(ctx, userID, spendHistoryMonths)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load monthly spend")
	}

	dashboard := &VendorDashboard{
		PurchaseCount: purchases.PurchaseCount,
		TotalSpend:    purchases.TotalSpend,
		FeedbackCount: feedback.FeedbackCount,
		BookedCount:   feedback.BookedCount,
		SpendByMonth:  spend,
	}
	if purchases.PurchaseCount > 0 {
		dashboard.BookingRate = float64(feedback.BookedCount) / float64(purchases.PurchaseCount)
	}
	return dashboard, nil
}
