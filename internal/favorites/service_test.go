package favorites

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/internal/leads"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/leadhiveapp/leadhive-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFavoritesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:favorites_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  external_ref TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'available',
  active INTEGER NOT NULL DEFAULT 1,
  price NUMERIC NOT NULL DEFAULT 0,
  full_name TEXT NOT NULL,
  contact_email TEXT NOT NULL,
  contact_phone TEXT,
  event_type TEXT,
  city TEXT,
  state TEXT,
  event_date DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
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
		`CREATE TABLE IF NOT EXISTS favorites (
  user_id TEXT NOT NULL,
  lead_id TEXT NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (user_id, lead_id)
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newFavoritesService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		FavoritesRepo: NewRepository(db),
		LeadsRepo:     leads.NewRepository(db),
		LeadPrice:     decimal.RequireFromString("20.00"),
	})
	require.NoError(t, err)
	return svc
}

func seedFavoriteLead(t *testing.T, db *gorm.DB, ref string) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		ID:           uuid.New(),
		ExternalRef:  ref,
		Status:       enums.LeadStatusAvailable,
		Active:       true,
		FullName:     "Jordan Client",
		ContactEmail: "jordan@example.com",
		CreatedAt:    time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func TestAddFavoriteRequiresExistingLead(t *testing.T) {
	svc := newFavoritesService(t, setupFavoritesTestDB(t))

	err := svc.AddFavorite(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestFavoritesRoundTrip(t *testing.T) {
	db := setupFavoritesTestDB(t)
	svc := newFavoritesService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	lead := seedFavoriteLead(t, db, "fav-1")

	require.NoError(t, svc.AddFavorite(ctx, userID, lead.ID))
	// Re-adding is a no-op, not an error.
	require.NoError(t, svc.AddFavorite(ctx, userID, lead.ID))

	page, err := svc.ListFavorites(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	item := page.Items[0]
	assert.Equal(t, lead.ID, item.Lead.ID)
	assert.True(t, item.Lead.Favorite)
	assert.False(t, item.Lead.Unlocked)
	assert.Equal(t, "Jordan C.", item.Lead.Contact.FullName)
	assert.True(t, item.Lead.Price.Equal(decimal.RequireFromString("20.00")))

	require.NoError(t, svc.RemoveFavorite(ctx, userID, lead.ID))
	page, err = svc.ListFavorites(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	// Removing again stays idempotent.
	require.NoError(t, svc.RemoveFavorite(ctx, userID, lead.ID))
}

func TestListFavoritesScopedToUser(t *testing.T) {
	db := setupFavoritesTestDB(t)
	svc := newFavoritesService(t, db)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	lead := seedFavoriteLead(t, db, "fav-2")

	require.NoError(t, svc.AddFavorite(ctx, alice, lead.ID))

	page, err := svc.ListFavorites(ctx, bob, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
