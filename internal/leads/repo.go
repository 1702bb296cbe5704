package leads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	"github.com/leadhiveapp/leadhive-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles lead persistence plus the read-side lookups the listing
// layer needs (ownership and engagement).
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	FindByExternalRef(ctx context.Context, externalRef string) (*models.Lead, error)
	List(ctx context.Context, query ListQuery) ([]models.Lead, *pagination.Cursor, error)

	// Upsert inserts the lead or, when external_ref already exists, refreshes
	// its imported fields in place.
	Upsert(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	// ExpireBefore flips still-available leads created before the cutoff to
	// expired, returning how many rows changed.
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)

	EngagementCounts(ctx context.Context, leadIDs []uuid.UUID) (map[uuid.UUID]EngagementCounts, error)
	PurchasedLeadIDs(ctx context.Context, userID uuid.UUID, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	FavoriteLeadIDs(ctx context.Context, userID uuid.UUID, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

// ListQuery filters the paginated lead browse.
type ListQuery struct {
	Status    enums.LeadStatus
	EventType string
	City      string
	State     string
	Limit     int
	Cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a lead repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repository) FindByExternalRef(ctx context.Context, externalRef string) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).First(&lead, "external_ref = ?", externalRef).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Lead, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND active = ?", query.Status, true).
		Order("created_at DESC, id DESC")

	if query.EventType != "" {
		q = q.Where("event_type = ?", query.EventType)
	}
	if query.City != "" {
		q = q.Where("city = ?", query.City)
	}
	if query.State != "" {
		q = q.Where("state = ?", query.State)
	}
	if query.Cursor != nil {
		q = q.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID,
		)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = pagination.LimitWithBuffer(0)
	}

	var rows []models.Lead
	if err := q.Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) < limit {
		return rows, nil, nil
	}

	rows = rows[:limit-1]
	last := rows[len(rows)-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

func (r *repository) Upsert(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_ref"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"price", "full_name", "contact_email", "contact_phone",
				"event_type", "city", "state", "event_date", "notes", "updated_at",
			}),
		}).
		Create(lead).Error
	if err != nil {
		return nil, err
	}
	return r.FindByExternalRef(ctx, lead.ExternalRef)
}

func (r *repository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("status = ? AND created_at < ?", enums.LeadStatusAvailable, cutoff).
		Updates(map[string]any{
			"status":     enums.LeadStatusExpired,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

type engagementRow struct {
	LeadID uuid.UUID
	Count  int64
}

func (r *repository) EngagementCounts(ctx context.Context, leadIDs []uuid.UUID) (map[uuid.UUID]EngagementCounts, error) {
	counts := make(map[uuid.UUID]EngagementCounts, len(leadIDs))
	if len(leadIDs) == 0 {
		return counts, nil
	}

	var purchases []engagementRow
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("lead_id, COUNT(*) AS count").
		Where("lead_id IN ?", leadIDs).
		Group("lead_id").
		Scan(&purchases).Error
	if err != nil {
		return nil, err
	}
	for _, row := range purchases {
		entry := counts[row.LeadID]
		entry.Purchases = row.Count
		counts[row.LeadID] = entry
	}

	var favorites []engagementRow
	err = r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Select("lead_id, COUNT(*) AS count").
		Where("lead_id IN ?", leadIDs).
		Group("lead_id").
		Scan(&favorites).Error
	if err != nil {
		return nil, err
	}
	for _, row := range favorites {
		entry := counts[row.LeadID]
		entry.Favorites = row.Count
		counts[row.LeadID] = entry
	}
	return counts, nil
}

func (r *repository) PurchasedLeadIDs(ctx context.Context, userID uuid.UUID, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	owned := make(map[uuid.UUID]bool, len(leadIDs))
	if len(leadIDs) == 0 {
		return owned, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("user_id = ? AND lead_id IN ?", userID, leadIDs).
		Pluck("lead_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

func (r *repository) FavoriteLeadIDs(ctx context.Context, userID uuid.UUID, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	marked := make(map[uuid.UUID]bool, len(leadIDs))
	if len(leadIDs) == 0 {
		return marked, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ? AND lead_id IN ?", userID, leadIDs).
		Pluck("lead_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		marked[id] = true
	}
	return marked, nil
}
