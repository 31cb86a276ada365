package docstore

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/mdbin/mdbin/internal/db"
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

func TestCreateAndGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if errCreate := store.Create(ctx, "abc123", " My Notes ", "# hello"); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	doc, errGet := store.Get(ctx, "abc123")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if doc == nil {
		t.Fatal("document missing")
	}
	if doc.Title != "My Notes" || doc.Content != "# hello" {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	store := newTestStore(t)

	doc, errGet := store.Get(context.Background(), "missing")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if doc != nil {
		t.Fatalf("doc = %+v, want nil", doc)
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if errCreate := store.Create(ctx, "abc123", "", "a"); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if errCreate := store.Create(ctx, "abc123", "", "b"); errCreate == nil {
		t.Fatal("expected duplicate id to fail")
	}
}

func TestNewDocumentID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, errNew := NewDocumentID()
		if errNew != nil {
			t.Fatalf("new id: %v", errNew)
		}
		if len(id) != documentIDBytes*2 {
			t.Fatalf("id %q length = %d", id, len(id))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
