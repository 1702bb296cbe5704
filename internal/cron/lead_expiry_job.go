package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/leadhiveapp/leadhive-backend/pkg/logger"
)

const defaultLeadTTL = 30 * 24 * time.Hour

type leadExpirer interface {
	ExpireLeads(ctx context.Context, ttl time.Duration) (int64, error)
}

// LeadExpiryJobParams configure the lead expiry job.
type LeadExpiryJobParams struct {
	Logger *logger.Logger
	Leads  leadExpirer
	TTL    time.Duration
}

// NewLeadExpiryJob builds the cron job that retires stale unsold leads.
func NewLeadExpiryJob(params LeadExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Leads == nil {
		return nil, fmt.Errorf("lead service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultLeadTTL
	}
	return &leadExpiryJob{
		logg:  params.Logger,
		leads: params.Leads,
		ttl:   ttl,
	}, nil
}

type leadExpiryJob struct {
	logg  *logger.Logger
	leads leadExpirer
	ttl   time.Duration
}

func (j *leadExpiryJob) Name() string { return "lead-expiry" }

func (j *leadExpiryJob) Run(ctx context.Context) error {
	expired, err := j.leads.ExpireLeads(ctx, j.ttl)
	if err != nil {
		return fmt.Errorf("expire stale leads: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"expired": expired,
		"ttl":     j.ttl.String(),
	}), "lead expiry pass complete")
	return nil
}
