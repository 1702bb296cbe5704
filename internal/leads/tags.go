package leads

import (
	"time"

	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
)

const (
	// TagNew marks leads created inside the freshness window.
	TagNew = "NEW"
	// TagHot marks leads drawing purchase or favorite volume.
	TagHot = "HOT"

	newLeadWindow        = 48 * time.Hour
	hotPurchaseThreshold = 3
	hotFavoriteThreshold = 5
)

// EngagementCounts aggregates per-lead interest used by the tag rules.
type EngagementCounts struct {
	Purchases int64
	Favorites int64
}

// ComputeTags derives display tags from the lead and its engagement counts.
// Tags are computed at read time and never stored.
func ComputeTags(lead *models.Lead, counts EngagementCounts, now time.Time) []string {
	var tags []string
	if now.Sub(lead.CreatedAt) < newLeadWindow {
		tags = append(tags, TagNew)
	}
	if counts.Purchases >= hotPurchaseThreshold || counts.Favorites >= hotFavoriteThreshold {
		tags = append(tags, TagHot)
	}
	return tags
}
