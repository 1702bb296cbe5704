package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Lead is a prospective client record sellable to vendor accounts. Contact
// fields are masked by the listing layer until the caller owns a purchase.
type Lead struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ExternalRef string           `gorm:"column:external_ref;type:text;not null;uniqueIndex" json:"external_ref"`
	Status      enums.LeadStatus `gorm:"column:status;type:text;not null;default:available" json:"status"`
	Active      bool             `gorm:"column:active;not null;default:true" json:"active"`
	// Price of zero means the configured flat marketplace price applies.
	Price decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0" json:"price"`

	FullName     string     `gorm:"column:full_name;not null" json:"full_name"`
	ContactEmail string     `gorm:"column:contact_email;not null" json:"contact_email"`
	ContactPhone string     `gorm:"column:contact_phone" json:"contact_phone"`
	EventType    string     `gorm:"column:event_type" json:"event_type"`
	City         string     `gorm:"column:city" json:"city"`
	State        string     `gorm:"column:state" json:"state"`
	EventDate    *time.Time `gorm:"column:event_date" json:"event_date"`
	Notes        string     `gorm:"column:notes" json:"notes"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
