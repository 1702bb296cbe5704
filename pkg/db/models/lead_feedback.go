package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// LeadFeedback records the booking outcome for a purchased lead. One row per
// (user_id, lead_id); creating it triggers exactly one feedback_reward credit.
type LeadFeedback struct {
	ID             uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_lead_feedback_user_lead" json:"user_id"`
	LeadID         uuid.UUID                `gorm:"column:lead_id;type:uuid;not null;uniqueIndex:idx_lead_feedback_user_lead" json:"lead_id"`
	Booked         bool                     `gorm:"column:booked;not null" json:"booked"`
	Responsiveness enums.LeadResponsiveness `gorm:"column:responsiveness;type:text;not null" json:"responsiveness"`
	TimeToBookDays *int                     `gorm:"column:time_to_book_days" json:"time_to_book_days"`
	AmountCharged  *decimal.Decimal         `gorm:"column:amount_charged;type:numeric(12,2)" json:"amount_charged"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName keeps GORM on the singular table the schema defines.
func (LeadFeedback) TableName() string {
	return "lead_feedback"
}
