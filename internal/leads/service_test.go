package leads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
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

func setupLeadsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:leads_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	leads := `
CREATE TABLE IF NOT EXISTS leads (
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
);`
	purchases := `
CREATE TABLE IF NOT EXISTS purchases (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  lead_id TEXT NOT NULL,
  amount_paid NUMERIC NOT NULL,
  purchased_at DATETIME NOT NULL,
  crm_synced_at DATETIME,
  created_at DATETIME,
  CONSTRAINT idx_purchases_user_lead UNIQUE (user_id, lead_id)
);`
	favorites := `
CREATE TABLE IF NOT EXISTS favorites (
  user_id TEXT NOT NULL,
  lead_id TEXT NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (user_id, lead_id)
);`
	require.NoError(t, db.Exec(leads).Error)
	require.NoError(t, db.Exec(purchases).Error)
	require.NoError(t, db.Exec(favorites).Error)
	return db
}

func newLeadsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(db),
		LeadPrice: decimal.RequireFromString("20.00"),
	})
	require.NoError(t, err)
	return svc
}

func createLead(t *testing.T, db *gorm.DB, ref string, createdAt time.Time) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		ID:           uuid.New(),
		ExternalRef:  ref,
		Status:       enums.LeadStatusAvailable,
		Active:       true,
		FullName:     "Jordan Client",
		ContactEmail: "jordan@example.com",
		ContactPhone: "405-555-0101",
		EventType:    "wedding",
		City:         "Tulsa",
		State:        "OK",
		Notes:        "prefers outdoor venues",
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func TestListLeadsMasksUntilPurchased(t *testing.T) {
	db := setupLeadsTestDB(t)
	svc := newLeadsService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	lead := createLead(t, db, "ref-1", time.Now().UTC().Add(-time.Hour))

	page, err := svc.ListLeads(ctx, userID, ListLeadsInput{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	item := page.Items[0]
	assert.False(t, item.Unlocked)
	assert.Equal(t, "Jordan C.", item.Contact.FullName)
	assert.Equal(t, "j***@example.com", item.Contact.Email)
	assert.Equal(t, "***-***-**01", item.Contact.Phone)
	assert.Empty(t, item.Contact.Notes)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("20.00")), "flat price fallback, got %s", item.Price)
	assert.Contains(t, item.Tags, TagNew)

	require.NoError(t, db.Create(&models.Purchase{
		ID:          uuid.New(),
		UserID:      userID,
		LeadID:      lead.ID,
		AmountPaid:  decimal.RequireFromString("20.00"),
		PurchasedAt: time.Now().UTC(),
	}).Error)

	detail, err := svc.GetLead(ctx, userID, lead.ID)
	require.NoError(t, err)
	assert.True(t, detail.Unlocked)
	assert.Equal(t, "Jordan Client", detail.Contact.FullName)
	assert.Equal(t, "jordan@example.com", detail.Contact.Email)
	assert.Equal(t, "prefers outdoor venues", detail.Contact.Notes)
}

func TestListLeadsFiltersAndPaginates(t *testing.T) {
	db := setupLeadsTestDB(t)
	svc := newLeadsService(t, db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-72 * time.Hour)
	for i := 0; i < 4; i++ {
		createLead(t, db, uuid.NewString(), base.Add(time.Duration(i)*time.Minute))
	}
	austin := createLead(t, db, "austin-ref", base.Add(time.Hour))
	require.NoError(t, db.Model(&models.Lead{}).Where("id = ?", austin.ID).
		Updates(map[string]any{"city": "Austin", "state": "TX"}).Error)

	byState, err := svc.ListLeads(ctx, uuid.New(), ListLeadsInput{State: "TX"})
	require.NoError(t, err)
	require.Len(t, byState.Items, 1)
	assert.Equal(t, "TX", byState.Items[0].State)

	first, err := svc.ListLeads(ctx, uuid.New(), ListLeadsInput{
		Pagination: pagination.Params{Limit: 3},
	})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.Cursor)

	rest, err := svc.ListLeads(ctx, uuid.New(), ListLeadsInput{
		Pagination: pagination.Params{Limit: 3, Cursor: first.Cursor},
	})
	require.NoError(t, err)
	require.Len(t, rest.Items, 2)
	assert.Empty(t, rest.Cursor)
}

func TestListLeadsHotTag(t *testing.T) {
	db := setupLeadsTestDB(t)
	svc := newLeadsService(t, db)
	ctx := context.Background()

	lead := createLead(t, db, "hot-ref", time.Now().UTC().Add(-96*time.Hour))
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Purchase{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			LeadID:      lead.ID,
			AmountPaid:  decimal.RequireFromString("20.00"),
			PurchasedAt: time.Now().UTC(),
		}).Error)
	}

	page, err := svc.ListLeads(ctx, uuid.New(), ListLeadsInput{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, []string{TagHot}, page.Items[0].Tags)
}

func TestUpsertLeadRefreshesByExternalRef(t *testing.T) {
	db := setupLeadsTestDB(t)
	svc := newLeadsService(t, db)
	ctx := context.Background()

	first, err := svc.UpsertLead(ctx, UpsertLeadInput{
		ExternalRef:  "crm-42",
		FullName:     "Sam Planner",
		ContactEmail: "sam@example.com",
		City:         "Norman",
		State:        "OK",
	})
	require.NoError(t, err)
	assert.True(t, first.Unlocked)

	price := decimal.RequireFromString("35.00")
	second, err := svc.UpsertLead(ctx, UpsertLeadInput{
		ExternalRef:  "crm-42",
		Price:        &price,
		FullName:     "Sam Planner",
		ContactEmail: "sam+new@example.com",
		City:         "Edmond",
		State:        "OK",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "upsert must refresh in place")
	assert.Equal(t, "sam+new@example.com", second.Contact.Email)
	assert.True(t, second.Price.Equal(price))

	var count int64
	require.NoError(t, db.Model(&models.Lead{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertLeadValidation(t *testing.T) {
	svc := newLeadsService(t, setupLeadsTestDB(t))

	_, err := svc.UpsertLead(context.Background(), UpsertLeadInput{ExternalRef: "x"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestExpireLeads(t *testing.T) {
	db := setupLeadsTestDB(t)
	svc := newLeadsService(t, db)
	ctx := context.Background()

	old := createLead(t, db, "old-ref", time.Now().UTC().Add(-40*24*time.Hour))
	fresh := createLead(t, db, "fresh-ref", time.Now().UTC().Add(-time.Hour))

	expired, err := svc.ExpireLeads(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	var stored models.Lead
	require.NoError(t, db.First(&stored, "id = ?", old.ID).Error)
	assert.Equal(t, enums.LeadStatusExpired, stored.Status)
	stored = models.Lead{}
	require.NoError(t, db.First(&stored, "id = ?", fresh.ID).Error)
	assert.Equal(t, enums.LeadStatusAvailable, stored.Status)

	// Expiry is terminal: a second pass finds nothing to flip.
	expired, err = svc.ExpireLeads(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, expired)
}
