package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/leadhiveapp/leadhive-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for the purchase ledger. Balance mutations
// go through the conditional debit/credit helpers only; callers never write
// users.balance directly.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	FindLeadForUpdate(ctx context.Context, leadID uuid.UUID) (*models.Lead, error)

	CountVendorTypePurchases(ctx context.Context, leadID uuid.UUID, vendorType string) (int64, error)
	HasPurchase(ctx context.Context, userID, leadID uuid.UUID) (bool, error)
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error

	// DebitBalance subtracts amount conditioned on balance >= amount in a
	// single statement, reporting whether a row was updated.
	DebitBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error)
	// CreditBalance adds amount, reporting whether the user row was found.
	CreditBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	ListTransactions(ctx context.Context, query ListTransactionsQuery) ([]models.Transaction, *pagination.Cursor, error)
	ListTransactionsForReplay(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)

	HasFeedback(ctx context.Context, userID, leadID uuid.UUID) (bool, error)
	CreateFeedback(ctx context.Context, feedback *models.LeadFeedback) error
}

// ListTransactionsQuery filters the paginated ledger listing.
type ListTransactionsQuery struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindLeadForUpdate(ctx context.Context, leadID uuid.UUID) (*models.Lead, error) {
	query := r.db.WithContext(ctx)
	// SQLite (dev flag / tests) serializes writers itself and rejects FOR UPDATE.
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var lead models.Lead
	if err := query.First(&lead, "id = ?", leadID).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repository) CountVendorTypePurchases(ctx context.Context, leadID uuid.UUID, vendorType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Joins("JOIN users ON users.id = purchases.user_id").
		Where("purchases.lead_id = ? AND users.vendor_type = ?", leadID, vendorType).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) HasPurchase(ctx context.Context, userID, leadID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("user_id = ? AND lead_id = ?", userID, leadID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) DebitBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreditBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("balance").
		First(&user, "id = ?", userID).Error
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, query ListTransactionsQuery) ([]models.Transaction, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", query.UserID).
		Order("created_at DESC, id DESC")

	if query.Cursor != nil {
		q = q.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID,
		)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = pagination.LimitWithBuffer(0)
	}

	var rows []models.Transaction
	if err := q.Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) < limit {
		return rows, nil, nil
	}

	rows = rows[:limit-1]
	last := rows[len(rows)-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

func (r *repository) ListTransactionsForReplay(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) HasFeedback(ctx context.Context, userID, leadID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LeadFeedback{}).
		Where("user_id = ? AND lead_id = ?", userID, leadID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreateFeedback(ctx context.Context, feedback *models.LeadFeedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}
