package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/leadhiveapp/leadhive-backend/api/responses"
	"github.com/leadhiveapp/leadhive-backend/api/validators"
	"github.com/leadhiveapp/leadhive-backend/internal/ledger"
	"github.com/leadhiveapp/leadhive-backend/pkg/enums"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
)

// PurchaseLead debits the caller's balance and unlocks the lead.
func PurchaseLead(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		uid, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		leadID, err := pathUUID(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.PurchaseLead(r.Context(), uid, leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

type submitFeedbackRequest struct {
	Booked         bool    `json:"booked"`
	Responsiveness string  `json:"responsiveness" validate:"required"`
	TimeToBookDays *int    `json:"time_to_book_days,omitempty"`
	AmountCharged  *string `json:"amount_charged,omitempty"`
}

func (req submitFeedbackRequest) toInput() (ledger.FeedbackInput, error) {
	responsiveness, err := enums.ParseLeadResponsiveness(strings.TrimSpace(req.Responsiveness))
	if err != nil {
		return ledger.FeedbackInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid responsiveness")
	}

	input := ledger.FeedbackInput{
		Booked:         req.Booked,
		Responsiveness: responsiveness,
		TimeToBookDays: req.TimeToBookDays,
	}
	if req.AmountCharged != nil {
		amount, err := decimal.NewFromString(strings.TrimSpace(*req.AmountCharged))
		if err != nil {
			return ledger.FeedbackInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount_charged")
		}
		input.AmountCharged = &amount
	}
	return input, nil
}

// SubmitFeedback records the booking outcome and credits the reward once.
func SubmitFeedback(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		uid, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		leadID, err := pathUUID(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitFeedbackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.SubmitFeedback(r.Context(), uid, leadID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}
