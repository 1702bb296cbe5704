package favorites

import (
	"context"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/leadhiveapp/leadhive-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository encapsulates favorites persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a favorites repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a favorite and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, userID, leadID uuid.UUID) error {
	if userID == uuid.Nil || leadID == uuid.Nil {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).
		Exec(`INSERT INTO favorites (user_id, lead_id, created_at) VALUES (?, ?, CURRENT_TIMESTAMP) ON CONFLICT (user_id, lead_id) DO NOTHING`, userID, leadID).
		Error
}

// RemoveItem deletes the favorite if it exists.
func (r *Repository) RemoveItem(ctx context.Context, userID, leadID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND lead_id = ?", userID, leadID).
		Delete(&models.Favorite{}).
		Error
}

// ListItems returns a page of favorite rows for the user, newest first. The
// cursor ID component carries the lead id since favorites have a composite key.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Favorite, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, lead_id DESC")

	if cursor != nil {
		q = q.Where(
			"(created_at < ?) OR (created_at = ? AND lead_id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	if limit <= 0 {
		limit = pagination.LimitWithBuffer(0)
	}

	var rows []models.Favorite
	if err := q.Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) < limit {
		return rows, nil, nil
	}

	rows = rows[:limit-1]
	last := rows[len(rows)-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.LeadID}, nil
}

// FindLeadsByIDs loads the lead rows backing a favorites page.
func (r *Repository) FindLeadsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Lead
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
