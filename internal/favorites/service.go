package favorites

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/internal/leads"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/leadhiveapp/leadhive-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceParams groups dependencies for the favorites service.
type ServiceParams struct {
	FavoritesRepo *Repository
	LeadsRepo     leads.Repository

	// LeadPrice applies when a favorited lead carries no price of its own.
	LeadPrice decimal.Decimal
}

// Service exposes business rules for favorites management.
type Service interface {
	ListFavorites(ctx context.Context, userID uuid.UUID, params pagination.Params) (FavoritesPageDTO, error)
	AddFavorite(ctx context.Context, userID, leadID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, leadID uuid.UUID) error
}

type service struct {
	favoritesRepo *Repository
	leadsRepo     leads.Repository
	leadPrice     decimal.Decimal
}

// NewService builds a favorites service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.FavoritesRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "favorites repo is required")
	}
	if params.LeadsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "leads repo is required")
	}
	if params.LeadPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead price must not be negative")
	}
	return &service{
		favoritesRepo: params.FavoritesRepo,
		leadsRepo:     params.LeadsRepo,
		leadPrice:     params.LeadPrice,
	}, nil
}

func (s *service) ListFavorites(ctx context.Context, userID uuid.UUID, params pagination.Params) (FavoritesPageDTO, error) {
	if userID == uuid.Nil {
		return FavoritesPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return FavoritesPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.favoritesRepo.ListItems(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return FavoritesPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}

	leadIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		leadIDs = append(leadIDs, row.LeadID)
	}

	leadRows, err := s.favoritesRepo.FindLeadsByIDs(ctx, leadIDs)
	if err != nil {
		return FavoritesPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load favorite leads")
	}
	leadsByID := make(map[uuid.UUID]*models.Lead, len(leadRows))
	for i := range leadRows {
		leadsByID[leadRows[i].ID] = &leadRows[i]
	}

	counts, err := s.leadsRepo.EngagementCounts(ctx, leadIDs)
	if err != nil {
		return FavoritesPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load engagement counts")
	}
	owned, err := s.leadsRepo.PurchasedLeadIDs(ctx, userID, leadIDs)
	if err != nil {
		return FavoritesPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchased leads")
	}

	now := time.Now().UTC()
	items := make([]FavoriteItemDTO, 0, len(rows))
	for _, row := range rows {
		lead, ok := leadsByID[row.LeadID]
		if !ok {
			continue
		}
		price := lead.Price
		if !price.IsPositive() {
			price = s.leadPrice
		}
		dto := leads.NewLeadDTO(lead, price, leads.ComputeTags(lead, counts[lead.ID], now), owned[lead.ID], true)
		items = append(items, FavoriteItemDTO{Lead: *dto, CreatedAt: row.CreatedAt})
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return FavoritesPageDTO{Items: items, Cursor: nextCursor}, nil
}

// AddFavorite ensures the lead exists and marks it as a favorite.
func (s *service) AddFavorite(ctx context.Context, userID, leadID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if leadID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "lead id is required")
	}
	if _, err := s.leadsRepo.FindByID(ctx, leadID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "lead not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	if err := s.favoritesRepo.AddItem(ctx, userID, leadID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}
	return nil
}

// RemoveFavorite drops the favorite regardless of prior state.
func (s *service) RemoveFavorite(ctx context.Context, userID, leadID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if leadID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "lead id is required")
	}
	if err := s.favoritesRepo.RemoveItem(ctx, userID, leadID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	return nil
}
