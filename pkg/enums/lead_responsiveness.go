package enums

import "fmt"

// LeadResponsiveness records how a purchased lead engaged with the vendor.
type LeadResponsiveness string

const (
	LeadResponsivenessResponsive LeadResponsiveness = "responsive"
	LeadResponsivenessGhosted    LeadResponsiveness = "ghosted"
	LeadResponsivenessPartial    LeadResponsiveness = "partial"
)

var validLeadResponsiveness = []LeadResponsiveness{
	LeadResponsivenessResponsive,
	LeadResponsivenessGhosted,
	LeadResponsivenessPartial,
}

// IsValid reports whether the value matches the canonical responsiveness enum.
func (r LeadResponsiveness) IsValid() bool {
	for _, candidate := range validLeadResponsiveness {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseLeadResponsiveness converts raw input into LeadResponsiveness.
func ParseLeadResponsiveness(value string) (LeadResponsiveness, error) {
	for _, candidate := range validLeadResponsiveness {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead responsiveness %q", value)
}
