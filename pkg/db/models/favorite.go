package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite marks a lead a user wants to track.
type Favorite struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	LeadID    uuid.UUID `gorm:"column:lead_id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
