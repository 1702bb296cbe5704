package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  vendor_type TEXT,
  balance NUMERIC NOT NULL DEFAULT 0,
  is_admin INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
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
	transactions := `
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  type TEXT NOT NULL,
  balance_after NUMERIC NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	leadFeedback := `
CREATE TABLE IF NOT EXISTS lead_feedback (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  lead_id TEXT NOT NULL,
  booked INTEGER NOT NULL,
  responsiveness TEXT NOT NULL,
  time_to_book_days INTEGER,
  amount_charged NUMERIC,
  created_at DATETIME,
  CONSTRAINT idx_lead_feedback_user_lead UNIQUE (user_id, lead_id)
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(leads).Error)
	require.NoError(t, db.Exec(purchases).Error)
	require.NoError(t, db.Exec(transactions).Error)
	require.NoError(t, db.Exec(leadFeedback).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newLedgerService(t *testing.T, db *gorm.DB, limit int) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Tx:              gormTxRunner{db: db},
		Repo:            NewRepository(db),
		LeadPrice:       decimal.RequireFromString("20.00"),
		VendorTypeLimit: limit,
		FeedbackReward:  decimal.RequireFromString("2.00"),
	})
	require.NoError(t, err)
	return svc
}

func seedUser(t *testing.T, db *gorm.DB, balance string, vt string) *models.User {
	t.Helper()
	user := &models.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		FirstName: "Test",
		LastName:  "Vendor",
		Balance:   decimal.RequireFromString(balance),
	}
	if vt != "" {
		user.VendorType = &vt
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedLead(t *testing.T, db *gorm.DB, price string) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		ID:           uuid.New(),
		ExternalRef:  uuid.NewString(),
		Status:       enums.LeadStatusAvailable,
		Active:       true,
		FullName:     "Jordan Client",
		ContactEmail: "jordan@example.com",
		ContactPhone: "405-555-0101",
		EventType:    "wedding",
		City:         "Tulsa",
		State:        "OK",
	}
	if price != "" {
		lead.Price = decimal.RequireFromString(price)
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func TestPurchaseLeadDebitsExactBalance(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db, 5)
	ctx := context.Background()

	user := seedUser(t, db, "20.00", "photographer")
	lead := seedLead(t, db, "")

	receipt, err := svc.PurchaseLead(ctx, user.ID, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.True(t, receipt.NewBalance.IsZero(), "expected zero balance, got %s", receipt.NewBalance)
	assert.True(t, receipt.Purchase.AmountPaid.Equal(decimal.RequireFromString("20.00")))
	require.NotNil(t, receipt.Lead)
	assert.Equal(t, "jordan@example.com", receipt.Lead.ContactEmail)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.True(t, stored.Balance.IsZero(), "stored balance %s", stored.Balance)

	var txns []models.Transaction
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.Equal(t, enums.TransactionTypePurchase, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-20.00")))
	assert.True(t, txns[0].BalanceAfter.IsZero())
}

func TestPurchaseLeadInsufficientBalanceLeavesNoRows(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db, 5)
	ctx := context.Background()

	user := seedUser(t, db, "10.00", "caterer")
	lead := seedLead(t, db, "")

	_, err := svc.PurchaseLead(ctx, user.ID, lead.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientFunds, typed.Code())

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("10.00")))

	var purchaseCount, txnCount int64
	require.NoError(t, db.Model(&models.Purchase{}).Where("user_id = ?", user.ID).Count(&purchaseCount).Error)
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&txnCount).Error)
	assert.Zero(t, purchaseCount)
	assert.Zero(t, txnCount)
}

func TestPurchaseLeadDuplicateRejected(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db, 5)
	ctx := context.Background()

	user := seedUser(t, db, "100.00", "photographer")
	lead := seedLead(t, db, "")

	_, err := svc.PurchaseLead(ctx, user.ID, lead.ID)
	require.NoError(t, err)

	_, err = svc.PurchaseLead(ctx, user.ID, lead.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadyPurchased, typed.Code())

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("80.00")), "second attempt must not debit, got %s", stored.Balance)
}

func TestPurchaseLeadConcurrentAttemptsDebitOnce(t *testing.T) {
	db := setupLedgerTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite locks the whole shared-cache database per writer; a single
	// connection queues the competing transactions instead of erroring.
	sqlDB.SetMaxOpenConns(1)

	svc := newLedgerService(t, db, 5)
	ctx := context.Background()

	user := seedUser(t, db, "100.00", "photographer")
	lead := seedLead(t, db, "")

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = svc.PurchaseLead(ctx, user.ID, lead.ID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "unexpected error shape: %v", err)
		assert.Equal(t, pkgerrors.CodeAlreadyPurchased, typed.Code())
	}
	assert.Equal(t, 1, successes, "exactly one attempt may win")

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("80.00")),
		"balance must be debited exactly once, got %s", stored.Balance)

	var purchaseCount, txnCount int64
	require.NoError(t, db.Model(&models.Purchase{}).Where("user_id = ?", user.ID).Count(&purchaseCount).Error)
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&txnCount).Error)
	assert.EqualValues(t, 1, purchaseCount)
	assert.EqualValues(t, 1, txnCount)
}

func TestPurchaseLeadConcurrentVendorCapHolds(t *testing.T) {
	db := setupLedgerTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc := newLedgerService(t, db, 2)
	ctx := context.Background()

	lead := seedLead(t, db, "")
	buyers := make([]*models.User, 4)
	for i := range buyers {
		buyers[i] = seedUser(t, db, "50.00", "photographer")
	}

	errs := make([]error, len(buyers))
	var wg sync.WaitGroup
	for i, buyer := range buyers {
		wg.Add(1)
		go func(slot int, buyerID uuid.UUID) {
			defer wg.Done()
			_, errs[slot] = svc.PurchaseLead(ctx, buyerID, lead.ID)
		}(i, buyer.ID)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "unexpected error shape: %v", err)
		assert.Equal(t, pkgerrors.CodeVendorTypeLimit, typed.Code())
	}
	assert.Equal(t, 2, successes, "cap must hold under contention")

	var purchaseCount int64
	require.NoError(t, db.Model(&models.Purchase{}).Where("lead_id = ?", lead.ID).Count(&purchaseCount).Error)
	assert.EqualValues(t, 2, purchaseCount)
}

func TestPurchaseLeadVendorTypeCap(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db, 2)
	ctx := context.Background()

	lead := seedLead(t, db, "")
	for i := 0; i < 2; i++ {
		buyer := seedUser(t, db, "50.00", "photographer")
		_, err := svc.PurchaseLead(ctx, buyer.ID, lead.ID)
		require.NoError(t, err)
	}

	// Third photographer hits the per-category cap.
	blocked := seedUser(t, db, "50.00", "photographer")
	_, err := svc.PurchaseLead(ctx, blocked.ID, lead.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeVendorTypeLimit, typed.Code())

	// The cap is per category: a caterer can still buy the same lead.
	caterer := seedUser(t, db, "50.00", "caterer")
	_, err = svc.PurchaseLead(ctx, caterer.ID, lead.ID)
	require.NoError(t, err)
}

func TestPurchaseLeadUnavailableStatus(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db, 5)
	ctx := context.Background()

	user := seedUser(t, db, "50.00", "dj")
	lead := seedLead(t, db, "")
	require.NoError(t, db.Model(&models.Lead{}).Where("id = ?", lead.ID).
		Update("status", enums.LeadStatusExpired).Error)

	_, err := svc.PurchaseLead(ctx, user.ID, lead.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeLeadSold, typed.Code())
}

func TestSubmitFeedbackCreditsRewardOnce(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db, 5)
	ctx := context.Background()

	user := seedUser(t, db, "50.00", "photographer")
	lead := seedLead(t, db, "")
	_, err := svc.PurchaseLead(ctx, user.ID, lead.ID)
	require.NoError(t, err)

	days := 12
	charged := decimal.RequireFromString("1500.00")
	receipt, err := svc.SubmitFeedback(ctx, user.ID, lead.ID, FeedbackInput{
		Booked:         true,
		Responsiveness: enums.LeadResponsivenessResponsive,
		TimeToBookDays: &days,
		AmountCharged:  &charged,
	})
	require.NoError(t, err)
	assert.True(t, receipt.Reward.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, receipt.NewBalance.Equal(decimal.RequireFromString("32.00")), "got %s", receipt.NewBalance)

	_, err = svc.SubmitFeedback(ctx, user.ID, lead.ID, FeedbackInput{
		Booked:         false,
		Responsiveness: enums.LeadResponsivenessGhosted,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadySubmitted, typed.Code())

	var rewardCount int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", user.ID, enums.TransactionTypeFeedbackReward).
		Count(&rewardCount).Error)
	assert.EqualValues(t, 1, rewardCount, "reward must be credited exactly once")
}

func TestDepositAndLedgerReplay(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db, 5)
	ctx := context.Background()

	user := seedUser(t, db, "0.00", "florist")
	lead := seedLead(t, db, "")

	dep, err := svc.Deposit(ctx, user.ID, decimal.RequireFromString("50.00"), "stripe_ch_123")
	require.NoError(t, err)
	assert.True(t, dep.NewBalance.Equal(decimal.RequireFromString("50.00")))
	require.NotNil(t, dep.Transaction, "deposit receipt must carry its ledger row")
	assert.Equal(t, enums.TransactionTypeDeposit, dep.Transaction.Type)
	assert.True(t, dep.Transaction.Amount.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, dep.Transaction.BalanceAfter.Equal(dep.NewBalance))

	_, err = svc.PurchaseLead(ctx, user.ID, lead.ID)
	require.NoError(t, err)

	days := 3
	charged := decimal.RequireFromString("800.00")
	_, err = svc.SubmitFeedback(ctx, user.ID, lead.ID, FeedbackInput{
		Booked:         true,
		Responsiveness: enums.LeadResponsivenessResponsive,
		TimeToBookDays: &days,
		AmountCharged:  &charged,
	})
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("32.00")), "got %s", balance)

	// Replaying the signed amounts reconstructs the stored balance.
	repo := NewRepository(db)
	rows, err := repo.ListTransactionsForReplay(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	replayed := decimal.Zero
	for i, row := range rows {
		replayed = replayed.Add(row.Amount)
		assert.True(t, row.BalanceAfter.Equal(replayed),
			"row %d: balance_after %s, replayed %s", i, row.BalanceAfter, replayed)
	}
	assert.True(t, replayed.Equal(balance), "replayed %s, stored %s", replayed, balance)
}

func TestListTransactionsPaginates(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db, 5)
	ctx := context.Background()

	user := seedUser(t, db, "0.00", "")
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		txn := &models.Transaction{
			ID:           uuid.New(),
			UserID:       user.ID,
			Amount:       decimal.RequireFromString("1.00"),
			Type:         enums.TransactionTypeDeposit,
			BalanceAfter: decimal.NewFromInt(int64(i + 1)),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(txn).Error)
	}

	page, err := svc.ListTransactions(ctx, user.ID, ListTransactionsParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt), "newest first")

	rest, err := svc.ListTransactions(ctx, user.ID, ListTransactionsParams{Limit: 3, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 3)
	assert.Empty(t, rest.Cursor)

	seen := map[uuid.UUID]bool{}
	for _, row := range append(page.Items, rest.Items...) {
		assert.False(t, seen[row.ID], "row %s returned twice", row.ID)
		seen[row.ID] = true
	}
}
