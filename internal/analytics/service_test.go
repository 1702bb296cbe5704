package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAnalyticsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:analytics_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS purchases (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  lead_id TEXT NOT NULL,
  amount_paid NUMERIC NOT NULL,
  purchased_at DATETIME NOT NULL,
  crm_synced_at DATETIME,
  created_at DATETIME,
  CONSTRAINT idx_purchases_user_lead UNIQUE (user_id, lead_id)
);`,
		`CREATE TABLE IF NOT EXISTS lead_feedback (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  lead_id TEXT NOT NULL,
  booked INTEGER NOT NULL,
  responsiveness TEXT NOT NULL,
  time_to_book_days INTEGER,
  amount_charged NUMERIC,
  created_at DATETIME,
  CONSTRAINT idx_lead_feedback_user_lead UNIQUE (user_id, lead_id)
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedPurchase(t *testing.T, db *gorm.DB, userID uuid.UUID, amount string, at time.Time) uuid.UUID {
	t.Helper()
	leadID := uuid.New()
	require.NoError(t, db.Create(&models.Purchase{
		ID:          uuid.New(),
		UserID:      userID,
		LeadID:      leadID,
		AmountPaid:  decimal.RequireFromString(amount),
		PurchasedAt: at,
	}).Error)
	return leadID
}

func TestVendorDashboardAggregates(t *testing.T) {
	db := setupAnalyticsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	userID := uuid.New()
	jan := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	bookedLead := seedPurchase(t, db, userID, "20.00", jan)
	ghostedLead := seedPurchase(t, db, userID, "20.00", feb)
	seedPurchase(t, db, userID, "35.00", feb)

	// Another vendor's activity must not leak into the dashboard.
	seedPurchase(t, db, uuid.New(), "500.00", feb)

	days := 9
	charged := decimal.RequireFromString("1200.00")
	require.NoError(t, db.Create(&models.LeadFeedback{
		ID:             uuid.New(),
		UserID:         userID,
		LeadID:         bookedLead,
		Booked:         true,
		Responsiveness: enums.LeadResponsivenessResponsive,
		TimeToBookDays: &days,
		AmountCharged:  &charged,
	}).Error)
	require.NoError(t, db.Create(&models.LeadFeedback{
		ID:             uuid.New(),
		UserID:         userID,
		LeadID:         ghostedLead,
		Booked:         false,
		Responsiveness: enums.LeadResponsivenessGhosted,
	}).Error)

	dashboard, err := svc.VendorDashboard(ctx, userID)
	require.NoError(t, err)

	assert.EqualValues(t, 3, dashboard.PurchaseCount)
	assert.True(t, dashboard.TotalSpend.Equal(decimal.RequireFromString("75.00")), "got %s", dashboard.TotalSpend)
	assert.EqualValues(t, 2, dashboard.FeedbackCount)
	assert.EqualValues(t, 1, dashboard.BookedCount)
	assert.InDelta(t, 1.0/3.0, dashboard.BookingRate, 1e-9)

	require.Len(t, dashboard.SpendByMonth, 2)
	assert.Equal(t, "2026-02", dashboard.SpendByMonth[0].Month)
	assert.EqualValues(t, 2, dashboard.SpendByMonth[0].Purchases)
	assert.True(t, dashboard.SpendByMonth[0].Spend.Equal(decimal.RequireFromString("55.00")))
	assert.Equal(t, "2026-01", dashboard.SpendByMonth[1].Month)
}

func TestVendorDashboardEmpty(t *testing.T) {
	db := setupAnalyticsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	dashboard, err := svc.VendorDashboard(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, dashboard.PurchaseCount)
	assert.True(t, dashboard.TotalSpend.IsZero())
	assert.Zero(t, dashboard.BookingRate)
	assert.Empty(t, dashboard.SpendByMonth)
}
