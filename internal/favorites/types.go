package favorites

import (
	"time"

	"github.com/leadhiveapp/leadhive-backend/internal/leads"
)

// FavoriteItemDTO wraps the lead payload included in a favorites row. The
// lead carries the same masking rules as the browse surface.
type FavoriteItemDTO struct {
	Lead      leads.LeadDTO `json:"lead"`
	CreatedAt time.Time     `json:"created_at"`
}

// FavoritesPageDTO is a cursor-paginated favorites view.
type FavoritesPageDTO struct {
	Items  []FavoriteItemDTO `json:"items"`
	Cursor string            `json:"cursor"`
}
