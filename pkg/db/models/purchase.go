package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase records one user buying one lead. Unique per (user_id, lead_id)
// and immutable once created.
type Purchase struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_purchases_user_lead" json:"user_id"`
	LeadID      uuid.UUID       `gorm:"column:lead_id;type:uuid;not null;uniqueIndex:idx_purchases_user_lead" json:"lead_id"`
	AmountPaid  decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2);not null" json:"amount_paid"`
	PurchasedAt time.Time       `gorm:"column:purchased_at;not null" json:"purchased_at"`
	// CRMSyncedAt is stamped by the sync job once the purchase reaches the CRM.
	CRMSyncedAt *time.Time `gorm:"column:crm_synced_at" json:"-"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
