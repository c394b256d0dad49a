package flexcache

import (
	"context"
	"log"

	"vendroute/store"
)

// Manager serves flex rows from Redis and falls back to SQL. SQL stays the
// source of truth: writes go to the store first, then Refresh repopulates.
type Manager struct {
	db    *store.DB
	redis *RedisStore
}

// NewManager builds a cache manager. A nil redis store turns the manager into
// a plain SQL reader.
func NewManager(db *store.DB, redis *RedisStore) *Manager {
	return &Manager{db: db, redis: redis}
}

// ListFlexRows returns the stops of a parent, preferring the cached copy.
func (m *Manager) ListFlexRows(parentID int64) ([]FlexItem, error) {
	if m.redis != nil {
		items, ok, err := m.redis.GetFlexRows(context.Background(), parentID)
		if err == nil && ok {
			return items, nil
		}
	}
	products, err := m.db.ListProductsByParent(parentID)
	if err != nil {
		return nil, err
	}
	items := itemsFromProducts(products)
	m.store(parentID, items)
	return items, nil
}

// Refresh reloads a parent's stops from SQL into Redis.
func (m *Manager) Refresh(parentID int64) {
	products, err := m.db.ListProductsByParent(parentID)
	if err != nil {
		log.Printf("flexcache: refresh parent %d: %v", parentID, err)
		return
	}
	m.store(parentID, itemsFromProducts(products))
}

// Invalidate drops the cached stops of a parent.
func (m *Manager) Invalidate(parentID int64) {
	if m.redis == nil {
		return
	}
	if err := m.redis.RemoveParent(context.Background(), parentID); err != nil {
		log.Printf("flexcache: invalidate parent %d: %v", parentID, err)
	}
}

// SyncFromSQL rebuilds every cached flex table from SQL. Called on startup.
func (m *Manager) SyncFromSQL() error {
	if m.redis == nil {
		return nil
	}
	ctx := context.Background()
	m.redis.FlushAll(ctx)

	parents, err := m.db.ListRootProducts()
	if err != nil {
		return err
	}
	for _, p := range parents {
		m.Refresh(p.ID)
	}
	log.Printf("flexcache: synced %d parents to redis", len(parents))
	return nil
}

func (m *Manager) store(parentID int64, items []FlexItem) {
	if m.redis == nil {
		return
	}
	if err := m.redis.SetFlexRows(context.Background(), parentID, items); err != nil {
		log.Printf("flexcache: store parent %d: %v", parentID, err)
	}
}
