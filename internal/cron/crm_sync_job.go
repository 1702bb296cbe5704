package cron

import (
	"context"
	"fmt"

	"github.com/leadhiveapp/leadhive-backend/internal/crm"
	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
)

type purchaseSyncer interface {
	SyncPurchases(ctx context.Context) (crm.SyncReport, error)
}

// CRMSyncJobParams configure the CRM sync job.
type CRMSyncJobParams struct {
	Logger *logger.Logger
	Syncer purchaseSyncer
}

// NewCRMSyncJob builds the cron job that pushes pending purchases to the CRM.
func NewCRMSyncJob(params CRMSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Syncer == nil {
		return nil, fmt.Errorf("crm sync service required")
	}
	return &crmSyncJob{
		logg:   params.Logger,
		syncer: params.Syncer,
	}, nil
}

type crmSyncJob struct {
	logg   *logger.Logger
	syncer purchaseSyncer
}

func (j *crmSyncJob) Name() string { return "crm-sync" }

func (j *crmSyncJob) Run(ctx context.Context) error {
	report, err := j.syncer.SyncPurchases(ctx)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"pending": report.Pending,
		"pushed":  report.Pushed,
		"failed":  report.Failed,
	}), "crm sync job complete")
	if err != nil {
		return fmt.Errorf("sync purchases to crm: %w", err)
	}
	return nil
}
