package analytics

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository runs the aggregate queries behind the vendor dashboard.
type Repository interface {
	PurchaseTotals(ctx context.Context, userID uuid.UUID) (PurchaseTotals, error)
	FeedbackTotals(ctx context.Context, userID uuid.UUID) (FeedbackTotals, error)
	SpendByMonth(ctx context.Context, userID uuid.UUID, months int) ([]MonthlySpend, error)
}

// PurchaseTotals aggregates a vendor's buying activity.
type PurchaseTotals struct {
	PurchaseCount int64           `json:"purchase_count"`
	TotalSpend    decimal.Decimal `json:"total_spend"`
}

// FeedbackTotals aggregates a vendor's reported outcomes.
type FeedbackTotals struct {
	FeedbackCount int64 `json:"feedback_count"`
	BookedCount   int64 `json:"booked_count"`
}

// MonthlySpend is one month's worth of purchases for the spend chart.
type MonthlySpend struct {
	Month     string          `gorm:"column:month" json:"month"`
	Purchases int64           `gorm:"column:purchases" json:"purchases"`
	Spend     decimal.Decimal `gorm:"column:spend" json:"spend"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an analytics repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) PurchaseTotals(ctx context.Context, userID uuid.UUID) (PurchaseTotals, error) {
	var row struct {
		PurchaseCount int64           `gorm:"column:purchase_count"`
		TotalSpend    decimal.Decimal `gorm:"column:total_spend"`
	}
	err := r.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) AS purchase_count, COALESCE(SUM(amount_paid), 0) AS total_spend
FROM purchases WHERE user_id = ?`, userID).
		Scan(&row).Error
	if err != nil {
		return PurchaseTotals{}, err
	}
	return PurchaseTotals{PurchaseCount: row.PurchaseCount, TotalSpend: row.TotalSpend}, nil
}

func (r *repository) FeedbackTotals(ctx context.Context, userID uuid.UUID) (FeedbackTotals, error) {
	var row struct {
		FeedbackCount int64 `gorm:"column:feedback_count"`
		BookedCount   int64 `gorm:"column:booked_count"`
	}
	err := r.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) AS feedback_count, COALESCE(SUM(CASE WHEN booked THEN 1 ELSE 0 END), 0) AS booked_count
FROM lead_feedback WHERE user_id = ?`, userID).
		Scan(&row).Error
	if err != nil {
		return FeedbackTotals{}, err
	}
	return FeedbackTotals{FeedbackCount: row.FeedbackCount, BookedCount: row.BookedCount}, nil
}

func (r *repository) SpendByMonth(ctx context.Context, userID uuid.UUID, months int) ([]MonthlySpend, error) {
	// SQLite lacks to_char; the dev flag and repo tests run on it.
	monthExpr := "to_char(purchased_at, 'YYYY-MM')"
	if r.db.Dialector.Name() != "postgres" {
		monthExpr = "strftime('%Y-%m', purchased_at)"
	}

	var rows []MonthlySpend
	err := r.db.WithContext(ctx).
		Raw(`SELECT `+monthExpr+` AS month, COUNT(*) AS purchases, COALESCE(SUM(amount_paid), 0) AS spend
FROM purchases WHERE user_id = ?
GROUP BY month ORDER BY month DESC LIMIT ?`, userID, months).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
