package leads

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ContactDTO is the client-facing slice of a lead's contact payload. Pre
// purchase it carries masked values and no notes.
type ContactDTO struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// LeadDTO represents a lead in listing and detail responses. Price is the
// effective charge for this lead after the flat-price fallback.
type LeadDTO struct {
	ID        uuid.UUID       `json:"id"`
	Status    string          `json:"status"`
	Price     decimal.Decimal `json:"price"`
	EventType string          `json:"event_type,omitempty"`
	City      string          `json:"city,omitempty"`
	State     string          `json:"state,omitempty"`
	EventDate *time.Time      `json:"event_date,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	Contact   ContactDTO      `json:"contact"`
	Unlocked  bool            `json:"unlocked"`
	Favorite  bool            `json:"favorite"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewLeadDTO builds the response payload. unlocked controls whether the full
// contact payload is exposed; buying the lead is what unlocks it.
func NewLeadDTO(lead *models.Lead, price decimal.Decimal, tags []string, unlocked, favorite bool) *LeadDTO {
	dto := &LeadDTO{
		ID:        lead.ID,
		Status:    string(lead.Status),
		Price:     price,
		EventType: lead.EventType,
		City:      lead.City,
		State:     lead.State,
		EventDate: lead.EventDate,
		Tags:      tags,
		Unlocked:  unlocked,
		Favorite:  favorite,
		CreatedAt: lead.CreatedAt,
	}
	if unlocked {
		dto.Contact = ContactDTO{
			FullName: lead.FullName,
			Email:    lead.ContactEmail,
			Phone:    lead.ContactPhone,
			Notes:    lead.Notes,
		}
		return dto
	}
	dto.Contact = ContactDTO{
		FullName: maskFullName(lead.FullName),
		Email:    maskEmail(lead.ContactEmail),
		Phone:    maskPhone(lead.ContactPhone),
	}
	return dto
}

// maskFullName keeps the first name and reduces the rest to an initial.
func maskFullName(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return string([]rune(parts[0])[0]) + "."
	}
	last := []rune(parts[len(parts)-1])
	return parts[0] + " " + string(last[0]) + "."
}

// maskEmail keeps the first character of the local part and the full domain.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local := []rune(email[:at])
	return string(local[0]) + "***" + email[at:]
}

// maskPhone keeps the last two digits.
func maskPhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 2 {
		return ""
	}
	return "***-***-**" + string(digits[len(digits)-2:])
}
