package enums

import "fmt"

// LeadStatus maps to the lead_status_enum enum in Postgres.
type LeadStatus string

const (
	// LeadStatusAvailable marks a lead open for purchase. A sale does not flip
	// this status: availability per vendor category is gated by the purchase
	// count, not by the lead row itself.
	LeadStatusAvailable LeadStatus = "available"
	LeadStatusSold      LeadStatus = "sold"
	// LeadStatusExpired is terminal; no further purchases are accepted.
	LeadStatusExpired LeadStatus = "expired"
)

var validLeadStatuses = []LeadStatus{
	LeadStatusAvailable,
	LeadStatusSold,
	LeadStatusExpired,
}

// IsValid reports whether the value matches the canonical lead status enum.
func (s LeadStatus) IsValid() bool {
	for _, candidate := range validLeadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLeadStatus converts raw input into LeadStatus.
func ParseLeadStatus(value string) (LeadStatus, error) {
	for _, candidate := range validLeadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead status %q", value)
}
