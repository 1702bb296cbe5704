package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/db/models"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
	"github.com/leadhiveapp/leadhive-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes the marketplace lead surface: masked browsing for vendors
// and import/expiry for operators.
type Service interface {
	ListLeads(ctx context.Context, userID uuid.UUID, input ListLeadsInput) (*LeadPage, error)
	GetLead(ctx context.Context, userID, leadID uuid.UUID) (*LeadDTO, error)
	UpsertLead(ctx context.Context, input UpsertLeadInput) (*LeadDTO, error)
	ExpireLeads(ctx context.Context, ttl time.Duration) (int64, error)
}

// ListLeadsInput carries browse filters and pagination.
type ListLeadsInput struct {
	Status     *enums.LeadStatus
	EventType  string
	City       string
	State      string
	Pagination pagination.Params
}

// LeadPage wraps a page of leads and the next cursor.
type LeadPage struct {
	Items  []LeadDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

// UpsertLeadInput is the admin import payload, keyed by ExternalRef.
type UpsertLeadInput struct {
	ExternalRef  string
	Price        *decimal.Decimal
	FullName     string
	ContactEmail string
	ContactPhone string
	EventType    string
	City         string
	State        string
	EventDate    *time.Time
	Notes        string
}

// ServiceParams groups dependencies for the lead service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger

	// LeadPrice applies when a lead carries no price of its own.
	LeadPrice decimal.Decimal
}

type service struct {
	repo      Repository
	logg      *logger.Logger
	leadPrice decimal.Decimal
}

// NewService wires the lead service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("lead repository required")
	}
	if params.LeadPrice.IsNegative() {
		return nil, fmt.Errorf("lead price must not be negative")
	}
	return &service{
		repo:      params.Repo,
		logg:      params.Logger,
		leadPrice: params.LeadPrice,
	}, nil
}

func (s *service) ListLeads(ctx context.Context, userID uuid.UUID, input ListLeadsInput) (*LeadPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	status := enums.LeadStatusAvailable
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid lead status filter")
		}
		status = *input.Status
	}

	query := ListQuery{
		Status:    status,
		EventType: strings.TrimSpace(input.EventType),
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Limit:     pagination.LimitWithBuffer(input.Pagination.Limit),
	}
	if input.Pagination.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list leads")
	}

	leadIDs := make([]uuid.UUID, 0, len(rows))
	for _, lead := range rows {
		leadIDs = append(leadIDs, lead.ID)
	}

	counts, err := s.repo.EngagementCounts(ctx, leadIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load engagement counts")
	}
	owned, err := s.repo.PurchasedLeadIDs(ctx, userID, leadIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchased leads")
	}
	favorites, err := s.repo.FavoriteLeadIDs(ctx, userID, leadIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load favorite leads")
	}

	now := time.Now().UTC()
	items := make([]LeadDTO, 0, len(rows))
	for i := range rows {
		lead := &rows[i]
		dto := NewLeadDTO(
			lead,
			s.effectivePrice(lead),
			ComputeTags(lead, counts[lead.ID], now),
			owned[lead.ID],
			favorites[lead.ID],
		)
		items = append(items, *dto)
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &LeadPage{Items: items, Cursor: cursor}, nil
}

func (s *service) GetLead(ctx context.Context, userID, leadID uuid.UUID) (*LeadDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if leadID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead id required")
	}

	lead, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "lead not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}

	counts, err := s.repo.EngagementCounts(ctx, []uuid.UUID{leadID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load engagement counts")
	}
	owned, err := s.repo.PurchasedLeadIDs(ctx, userID, []uuid.UUID{leadID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchased leads")
	}
	favorites, err := s.repo.FavoriteLeadIDs(ctx, userID, []uuid.UUID{leadID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load favorite leads")
	}

	return NewLeadDTO(
		lead,
		s.effectivePrice(lead),
		ComputeTags(lead, counts[leadID], time.Now().UTC()),
		owned[leadID],
		favorites[leadID],
	), nil
}

func (s *service) UpsertLead(ctx context.Context, input UpsertLeadInput) (*LeadDTO, error) {
	details := map[string]string{}
	if strings.TrimSpace(input.ExternalRef) == "" {
		details["external_ref"] = "is required"
	}
	if strings.TrimSpace(input.FullName) == "" {
		details["full_name"] = "is required"
	}
	if strings.TrimSpace(input.ContactEmail) == "" {
		details["contact_email"] = "is required"
	}
	if input.Price != nil && input.Price.IsNegative() {
		details["price"] = "must not be negative"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid lead payload").WithDetails(details)
	}

	lead := &models.Lead{
		ID:           uuid.New(),
		ExternalRef:  strings.TrimSpace(input.ExternalRef),
		Status:       enums.LeadStatusAvailable,
		Active:       true,
		FullName:     strings.TrimSpace(input.FullName),
		ContactEmail: strings.TrimSpace(input.ContactEmail),
		ContactPhone: strings.TrimSpace(input.ContactPhone),
		EventType:    strings.TrimSpace(input.EventType),
		City:         strings.TrimSpace(input.City),
		State:        strings.TrimSpace(input.State),
		EventDate:    input.EventDate,
		Notes:        input.Notes,
	}
	if input.Price != nil {
		lead.Price = *input.Price
	}

	stored, err := s.repo.Upsert(ctx, lead)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert lead")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "external_ref", stored.ExternalRef), "lead imported")
	}

	// Admin view: always unmasked, engagement tags omitted.
	return NewLeadDTO(stored, s.effectivePrice(stored), nil, true, false), nil
}

func (s *service) ExpireLeads(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "lead ttl must be positive")
	}

	expired, err := s.repo.ExpireBefore(ctx, time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire leads")
	}
	if expired > 0 && s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "expired", expired), "leads expired")
	}
	return expired, nil
}

func (s *service) effectivePrice(lead *models.Lead) decimal.Decimal {
	if lead.Price.IsPositive() {
		return lead.Price
	}
	return s.leadPrice
}
