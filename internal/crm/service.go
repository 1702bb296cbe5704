package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
	"go.uber.org/multierr"
)

// Batch size per sync pass; leftovers are picked up by the next run.
const syncBatchSize = 100

// Pusher delivers one purchase record to the CRM.
type Pusher interface {
	PushPurchase(ctx context.Context, record PurchaseRecord) error
}

// SyncReport summarizes one sync pass.
type SyncReport struct {
	Pending int
	Pushed  int
	Failed  int
}

// SyncService pushes pending purchases to the CRM. A failed row is left
// unstamped and retried on the next pass.
type SyncService interface {
	SyncPurchases(ctx context.Context) (SyncReport, error)
}

// SyncServiceParams groups dependencies for the sync service.
type SyncServiceParams struct {
	Repo   Repository
	Client Pusher
	Logger *logger.Logger
}

type syncService struct {
	repo   Repository
	client Pusher
	logg   *logger.Logger
}

// NewSyncService wires the CRM sync service.
func NewSyncService(params SyncServiceParams) (SyncService, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("crm repository required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("crm client required")
	}
	return &syncService{
		repo:   params.Repo,
		client: params.Client,
		logg:   params.Logger,
	}, nil
}

func (s *syncService) SyncPurchases(ctx context.Context) (SyncReport, error) {
	rows, err := s.repo.ListUnsynced(ctx, syncBatchSize)
	if err != nil {
		return SyncReport{}, fmt.Errorf("list unsynced purchases: %w", err)
	}

	report := SyncReport{Pending: len(rows)}
	var errs error
	for _, row := range rows {
		record := PurchaseRecord{
			PurchaseID:  row.PurchaseID,
			ExternalRef: row.ExternalRef,
			VendorEmail: row.VendorEmail,
			VendorName:  row.VendorName,
			AmountPaid:  row.AmountPaid,
			PurchasedAt: row.PurchasedAt,
		}
		if row.VendorType != nil {
			record.VendorType = *row.VendorType
		}

		if err := s.client.PushPurchase(ctx, record); err != nil {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("push purchase %s: %w", row.PurchaseID, err))
			continue
		}
		if err := s.repo.MarkSynced(ctx, row.PurchaseID, time.Now().UTC()); err != nil {
			// The CRM dedupes on purchase_id, so the re-push after a missed
			// stamp is harmless.
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("mark purchase %s synced: %w", row.PurchaseID, err))
			continue
		}
		report.Pushed++
	}

	if s.logg != nil && report.Pending > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"pending": report.Pending,
			"pushed":  report.Pushed,
			"failed":  report.Failed,
		}), "crm sync pass complete")
	}
	return report, errs
}
