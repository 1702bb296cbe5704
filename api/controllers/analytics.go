package controllers

import (
	"net/http"

	"github.com/leadhiveapp/leadhive-backend/api/responses"
	analyticsvc "github.com/leadhiveapp/leadhive-backend/internal/analytics"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
)

// VendorAnalytics returns the caller's purchase and booking dashboard.
func VendorAnalytics(svc analyticsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		uid, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dashboard, err := svc.VendorDashboard(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}
