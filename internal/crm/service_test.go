package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubRepo struct {
	rows    []SyncRow
	synced  []uuid.UUID
	markErr error
}

func (s *stubRepo) ListUnsynced(ctx context.Context, limit int) ([]SyncRow, error) {
	return s.rows, nil
}

func (s *stubRepo) MarkSynced(ctx context.Context, purchaseID uuid.UUID, now time.Time) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.synced = append(s.synced, purchaseID)
	return nil
}

type stubPusher struct {
	pushed []PurchaseRecord
	failOn map[uuid.UUID]error
}

func (s *stubPusher) PushPurchase(ctx context.Context, record PurchaseRecord) error {
	if err := s.failOn[record.PurchaseID]; err != nil {
		return err
	}
	s.pushed = append(s.pushed, record)
	return nil
}

func syncRow() SyncRow {
	vt := "photographer"
	return SyncRow{
		PurchaseID:  uuid.New(),
		ExternalRef: "crm-1",
		VendorEmail: "vendor@example.com",
		VendorName:  "Test Vendor",
		VendorType:  &vt,
		AmountPaid:  decimal.RequireFromString("20.00"),
		PurchasedAt: time.Now().UTC(),
	}
}

func TestSyncPurchasesStampsDeliveredRows(t *testing.T) {
	rows := []SyncRow{syncRow(), syncRow()}
	repo := &stubRepo{rows: rows}
	pusher := &stubPusher{}

	svc, err := NewSyncService(SyncServiceParams{Repo: repo, Client: pusher})
	if err != nil {
		t.Fatalf("new sync service: %v", err)
	}

	report, err := svc.SyncPurchases(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.Pending != 2 || report.Pushed != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(repo.synced) != 2 {
		t.Fatalf("expected 2 stamped rows, got %d", len(repo.synced))
	}
	if pusher.pushed[0].VendorType != "photographer" {
		t.Fatalf("vendor type not forwarded: %+v", pusher.pushed[0])
	}
}

func TestSyncPurchasesLeavesFailedRowsPending(t *testing.T) {
	good, bad := syncRow(), syncRow()
	repo := &stubRepo{rows: []SyncRow{good, bad}}
	pusher := &stubPusher{failOn: map[uuid.UUID]error{bad.PurchaseID: errors.New("crm down")}}

	svc, err := NewSyncService(SyncServiceParams{Repo: repo, Client: pusher})
	if err != nil {
		t.Fatalf("new sync service: %v", err)
	}

	report, err := svc.SyncPurchases(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if report.Pushed != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(repo.synced) != 1 || repo.synced[0] != good.PurchaseID {
		t.Fatalf("only the delivered row may be stamped: %+v", repo.synced)
	}
}
