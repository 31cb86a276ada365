package quota

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mdbin/mdbin/internal/db"
	"github.com/mdbin/mdbin/internal/models"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewStore(conn)
}

func TestCreateQuotaRejectsDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, errCreate := store.CreateQuota(ctx, "198.51.100.1", 50, time.Now()); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if _, errCreate := store.CreateQuota(ctx, "198.51.100.1", 50, time.Now()); errCreate == nil {
		t.Fatal("expected duplicate create to fail")
	}
}

func TestConsumeRemainingGuardsBudget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, errCreate := store.CreateQuota(ctx, "198.51.100.1", 2, time.Now()); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	for i := 0; i < 2; i++ {
		consumed, errConsume := store.ConsumeRemaining(ctx, "198.51.100.1", 1)
		if errConsume != nil {
			t.Fatalf("consume %d: %v", i, errConsume)
		}
		if !consumed {
			t.Fatalf("consume %d: expected success", i)
		}
	}

	consumed, errConsume := store.ConsumeRemaining(ctx, "198.51.100.1", 1)
	if errConsume != nil {
		t.Fatalf("consume: %v", errConsume)
	}
	if consumed {
		t.Fatal("expected consume to fail at zero remaining")
	}

	record, errGet := store.GetQuota(ctx, "198.51.100.1")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if record.RemainingOperations != 0 {
		t.Fatalf("remaining = %d, want 0", record.RemainingOperations)
	}
}

func TestRefundRemainingClampsAtDailyLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, errCreate := store.CreateQuota(ctx, "198.51.100.1", 50, time.Now()); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if _, errConsume := store.ConsumeRemaining(ctx, "198.51.100.1", 1); errConsume != nil {
		t.Fatalf("consume: %v", errConsume)
	}

	if errRefund := store.RefundRemaining(ctx, "198.51.100.1", 5); errRefund != nil {
		t.Fatalf("refund: %v", errRefund)
	}

	record, errGet := store.GetQuota(ctx, "198.51.100.1")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if record.RemainingOperations != 50 {
		t.Fatalf("remaining = %d, want clamp at 50", record.RemainingOperations)
	}
}

func TestAttachDocumentIDTargetsMostRecentUnset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, errAppend := store.AppendOperation(ctx, "198.51.100.1", "publish", 1, "doc-old"); errAppend != nil {
		t.Fatalf("append: %v", errAppend)
	}
	first, errAppend := store.AppendOperation(ctx, "198.51.100.1", "publish", 1, "")
	if errAppend != nil {
		t.Fatalf("append: %v", errAppend)
	}
	second, errAppend := store.AppendOperation(ctx, "198.51.100.1", "publish", 1, "")
	if errAppend != nil {
		t.Fatalf("append: %v", errAppend)
	}

	if errAttach := store.AttachDocumentID(ctx, "198.51.100.1", "doc-new"); errAttach != nil {
		t.Fatalf("attach: %v", errAttach)
	}

	var rows []models.Operation
	if errFind := store.db.Order("id ASC").Find(&rows).Error; errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].DocumentID == nil || *rows[0].DocumentID != "doc-old" {
		t.Fatal("pre-attached row must be untouched")
	}
	if rows[1].ID != first.ID || rows[1].DocumentID != nil {
		t.Fatal("older unset row must remain unset")
	}
	if rows[2].ID != second.ID || rows[2].DocumentID == nil || *rows[2].DocumentID != "doc-new" {
		t.Fatal("most recent unset row must receive the document id")
	}
}

func TestAttachDocumentIDNoUnsetRowIsNoop(t *testing.T) {
	store := newTestStore(t)

	if errAttach := store.AttachDocumentID(context.Background(), "198.51.100.1", "doc"); errAttach != nil {
		t.Fatalf("attach: %v", errAttach)
	}
}

func TestSumOperationsSinceGroupsByType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, errAppend := store.AppendOperation(ctx, "198.51.100.1", "publish", 1, ""); errAppend != nil {
			t.Fatalf("append: %v", errAppend)
		}
	}
	if _, errAppend := store.AppendOperation(ctx, "198.51.100.1", "view", 2, ""); errAppend != nil {
		t.Fatalf("append: %v", errAppend)
	}
	if _, errAppend := store.AppendOperation(ctx, "203.0.113.9", "publish", 7, ""); errAppend != nil {
		t.Fatalf("append other identity: %v", errAppend)
	}

	sums, errSum := store.SumOperationsSince(ctx, "198.51.100.1", time.Now().Add(-time.Hour))
	if errSum != nil {
		t.Fatalf("sum: %v", errSum)
	}
	if len(sums) != 2 {
		t.Fatalf("groups = %d, want 2", len(sums))
	}
	if sums[0].OperationType != "publish" || sums[0].Total != 3 {
		t.Fatalf("publish sum = %+v", sums[0])
	}
	if sums[1].OperationType != "view" || sums[1].Total != 2 {
		t.Fatalf("view sum = %+v", sums[1])
	}
}

func TestConcurrentConsumeNeverDoubleSpends(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "quota.db")
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	store := NewStore(conn)
	ctx := context.Background()

	if _, errCreate := store.CreateQuota(ctx, "198.51.100.1", 1, time.Now()); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	const attempts = 8
	var wg sync.WaitGroup
	successes := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumed, errConsume := store.ConsumeRemaining(ctx, "198.51.100.1", 1)
			if errConsume != nil {
				return
			}
			successes <- consumed
		}()
	}
	wg.Wait()
	close(successes)

	won := 0
	for consumed := range successes {
		if consumed {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("successful consumes = %d, want exactly 1", won)
	}
}
