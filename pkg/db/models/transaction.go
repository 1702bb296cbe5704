package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Transaction is an append-only ledger entry. Amount is signed: negative for
// spends, positive for credits. BalanceAfter snapshots the running balance
// through this row; replaying all rows for a user in creation order must
// reconstruct the user's current balance.
type Transaction struct {
	ID           uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Amount       decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Type         enums.TransactionType `gorm:"column:type;type:text;not null" json:"type"`
	BalanceAfter decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,2);not null" json:"balance_after"`
	Metadata     json.RawMessage       `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
