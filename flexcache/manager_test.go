package flexcache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"vendroute/config"
	"vendroute/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// unreachableRedis returns a store whose every call fails fast.
func unreachableRedis(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Minute)
}

func seedParent(t *testing.T, db *store.DB) int64 {
	t.Helper()
	parent := &store.Product{Code: "KL-01", Name: "KL Route"}
	if err := db.CreateProduct(parent); err != nil {
		t.Fatalf("create parent: %v", err)
	}
	pid := parent.ID
	for _, code := range []string{"VM-101", "VM-102"} {
		p := &store.Product{Code: code, Name: code, ParentID: &pid, PowerMode: "Daily",
			Images: []store.Image{{URL: "http://x/" + code + ".png"}}}
		if err := db.CreateProduct(p); err != nil {
			t.Fatalf("create stop: %v", err)
		}
	}
	return pid
}

func TestListFlexRowsWithoutRedis(t *testing.T) {
	db := testDB(t)
	pid := seedParent(t, db)

	m := NewManager(db, nil)
	items, err := m.ListFlexRows(pid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Code != "VM-101" || items[0].PowerMode != "Daily" {
		t.Errorf("first item = %+v", items[0])
	}
	if len(items[1].Images) != 1 {
		t.Errorf("images = %+v, want 1", items[1].Images)
	}

	// No-ops without a cache
	m.Invalidate(pid)
	m.Refresh(pid)
	if err := m.SyncFromSQL(); err != nil {
		t.Errorf("sync: %v", err)
	}
}

func TestListFlexRowsFallsBackWhenRedisDown(t *testing.T) {
	db := testDB(t)
	pid := seedParent(t, db)

	m := NewManager(db, unreachableRedis(t))
	items, err := m.ListFlexRows(pid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}

	empty, err := m.ListFlexRows(pid + 100)
	if err != nil {
		t.Fatalf("list missing parent: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("items for unknown parent = %d, want 0", len(empty))
	}
}

func TestFlexKey(t *testing.T) {
	if got := flexKey(42); got != "vendroute:parent:42:flex" {
		t.Errorf("flexKey = %q", got)
	}
}
