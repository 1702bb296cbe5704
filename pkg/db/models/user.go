package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a vendor account. Balance is a derived field owned by the
// ledger: every write to it is paired with a Transaction row.
type User struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email      string          `gorm:"type:text;not null;uniqueIndex"`
	FirstName  string          `gorm:"column:first_name;not null"`
	LastName   string          `gorm:"column:last_name;not null"`
	VendorType *string         `gorm:"column:vendor_type"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	IsAdmin    bool            `gorm:"column:is_admin;not null;default:false"`
	IsActive   bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
