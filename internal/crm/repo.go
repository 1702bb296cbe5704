package crm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository reads the purchases awaiting CRM delivery and records delivery.
type Repository interface {
	ListUnsynced(ctx context.Context, limit int) ([]SyncRow, error)
	MarkSynced(ctx context.Context, purchaseID uuid.UUID, now time.Time) error
}

// SyncRow joins a pending purchase with the vendor and lead data the CRM
// payload needs.
type SyncRow struct {
	PurchaseID  uuid.UUID       `gorm:"column:purchase_id"`
	ExternalRef string          `gorm:"column:external_ref"`
	VendorEmail string          `gorm:"column:vendor_email"`
	VendorName  string          `gorm:"column:vendor_name"`
	VendorType  *string         `gorm:"column:vendor_type"`
	AmountPaid  decimal.Decimal `gorm:"column:amount_paid"`
	PurchasedAt time.Time       `gorm:"column:purchased_at"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a CRM sync repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListUnsynced(ctx context.Context, limit int) ([]SyncRow, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []SyncRow
	err := r.db.WithContext(ctx).
		Raw(`SELECT p.id AS purchase_id,
       l.external_ref,
       u.email AS vendor_email,
       u.first_name || ' ' || u.last_name AS vendor_name,
       u.vendor_type,
       p.amount_paid,
       p.purchased_at
FROM purchases p
JOIN users u ON u.id = p.user_id
JOIN leads l ON l.id = p.lead_id
WHERE p.crm_synced_at IS NULL
ORDER BY p.purchased_at ASC
LIMIT ?`, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkSynced(ctx context.Context, purchaseID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ?", purchaseID).
		UpdateColumn("crm_synced_at", now).Error
}
