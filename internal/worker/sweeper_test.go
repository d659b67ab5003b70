package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/entity"
	"github.com/receiptvault/receiptvault/internal/repository"
	"github.com/receiptvault/receiptvault/internal/testutil"
)

type sweepFixture struct {
	db       *gorm.DB
	receipts repository.ReceiptRepository
	userID   string
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db)
	return &sweepFixture{
		db:       db,
		receipts: repository.NewReceiptRepository(db, nil),
		userID:   user.ID,
	}
}

func (f *sweepFixture) pendingReceipt(t *testing.T, createdAt time.Time) *entity.Receipt {
	t.Helper()
	rec := testutil.CreateTestReceipt(t, f.db, f.userID, nil)
	err := f.db.Model(&entity.Receipt{}).Where("id = ?", rec.ID).
		UpdateColumn("created_at", createdAt).Error
	if err != nil {
		t.Fatalf("backdate receipt: %v", err)
	}
	return rec
}

func TestSweepProcessesOldestFirst(t *testing.T) {
	f := newSweepFixture(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	newest := f.pendingReceipt(t, base.Add(2*time.Hour))
	oldest := f.pendingReceipt(t, base)
	middle := f.pendingReceipt(t, base.Add(time.Hour))

	var mu sync.Mutex
	var order []string
	s := NewSweeper(f.receipts, func(_ context.Context, id string) error {
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
		return nil
	}, 10, time.Minute, nil)

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Succeeded != 3 {
		t.Errorf("succeeded = %d, want 3", res.Succeeded)
	}
	want := []string{oldest.ID, middle.ID, newest.ID}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("order[%d] = %s, want %s (full order %v)", i, order[i], id, order)
		}
	}
}

func TestSweepRespectsBatchSize(t *testing.T) {
	f := newSweepFixture(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		f.pendingReceipt(t, base.Add(time.Duration(i)*time.Minute))
	}

	var count int
	s := NewSweeper(f.receipts, func(context.Context, string) error {
		count++
		return nil
	}, 2, time.Minute, nil)

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if count != 2 || res.Scanned != 2 {
		t.Errorf("processed %d (scanned %d), want 2", count, res.Scanned)
	}
}

func TestSweepIsolatesFailures(t *testing.T) {
	f := newSweepFixture(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bad := f.pendingReceipt(t, base)
	f.pendingReceipt(t, base.Add(time.Minute))
	f.pendingReceipt(t, base.Add(2*time.Minute))

	s := NewSweeper(f.receipts, func(_ context.Context, id string) error {
		if id == bad.ID {
			return errors.New("extraction blew up")
		}
		return nil
	}, 10, time.Minute, nil)

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("failed = %d, want 1", res.Failed)
	}
	if res.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", res.Succeeded)
	}
}

func TestSweepRescuesStaleProcessing(t *testing.T) {
	f := newSweepFixture(t)
	rec := testutil.CreateTestReceipt(t, f.db, f.userID, nil)
	staleSince := time.Now().Add(-time.Hour)
	err := f.db.Model(&entity.Receipt{}).Where("id = ?", rec.ID).
		UpdateColumns(map[string]any{
			"extraction_status": constants.StatusProcessing,
			"updated_at":        staleSince,
		}).Error
	if err != nil {
		t.Fatalf("stage stale receipt: %v", err)
	}

	var processed []string
	s := NewSweeper(f.receipts, func(_ context.Context, id string) error {
		processed = append(processed, id)
		return nil
	}, 10, 15*time.Minute, nil)

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Rescued != 1 {
		t.Errorf("rescued = %d, want 1", res.Rescued)
	}
	if len(processed) != 1 || processed[0] != rec.ID {
		t.Errorf("processed = %v, want [%s]", processed, rec.ID)
	}

	// a fresh PROCESSING receipt is left alone
	fresh := testutil.CreateTestReceipt(t, f.db, f.userID, func(r *entity.Receipt) {
		r.ExtractionStatus = constants.StatusProcessing
	})
	processed = nil
	res, err = s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if res.Rescued != 0 {
		t.Errorf("rescued = %d, want 0", res.Rescued)
	}
	for _, id := range processed {
		if id == fresh.ID {
			t.Error("fresh PROCESSING receipt must not be swept")
		}
	}
}
