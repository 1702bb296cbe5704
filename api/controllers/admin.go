package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leadhiveapp/leadhive-backend/api/responses"
	"github.com/leadhiveapp/leadhive-backend/api/validators"
	leadsvc "github.com/leadhiveapp/leadhive-backend/internal/leads"
	"github.com/leadhiveapp/leadhive-backend/internal/ledger"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
)

type upsertLeadRequest struct {
	ExternalRef  string  `json:"external_ref" validate:"required"`
	Price        *string `json:"price,omitempty"`
	FullName     string  `json:"full_name" validate:"required"`
	ContactEmail string  `json:"contact_email" validate:"required,email"`
	ContactPhone string  `json:"contact_phone,omitempty"`
	EventType    string  `json:"event_type,omitempty"`
	City         string  `json:"city,omitempty"`
	State        string  `json:"state,omitempty"`
	EventDate    *string `json:"event_date,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

func (req upsertLeadRequest) toInput() (leadsvc.UpsertLeadInput, error) {
	input := leadsvc.UpsertLeadInput{
		ExternalRef:  strings.TrimSpace(req.ExternalRef),
		FullName:     strings.TrimSpace(req.FullName),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		EventType:    strings.TrimSpace(req.EventType),
		City:         strings.TrimSpace(req.City),
		State:        strings.TrimSpace(req.State),
		Notes:        req.Notes,
	}

	if req.Price != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*req.Price))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
		}
		input.Price = &price
	}
	if req.EventDate != nil {
		date, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.EventDate))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "event_date must be RFC3339")
		}
		input.EventDate = &date
	}
	return input, nil
}

// AdminUpsertLead imports or refreshes a lead keyed by its external reference.
func AdminUpsertLead(svc leadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		var payload upsertLeadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lead, err := svc.UpsertLead(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, lead)
	}
}

type depositRequest struct {
	Amount    string `json:"amount" validate:"required"`
	Reference string `json:"reference,omitempty"`
}

// AdminDeposit credits a vendor's prepaid balance.
func AdminDeposit(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload depositRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		receipt, err := svc.Deposit(r.Context(), userID, amount, strings.TrimSpace(payload.Reference))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}
