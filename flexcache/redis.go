package flexcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl keeps entries until invalidated.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func flexKey(parentID int64) string {
	return fmt.Sprintf("vendroute:parent:%d:flex", parentID)
}

const allParentsKey = "vendroute:parents"

func (r *RedisStore) SetFlexRows(ctx context.Context, parentID int64, rows []FlexItem) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, flexKey(parentID), data, r.ttl)
	pipe.SAdd(ctx, allParentsKey, parentID)
	_, err = pipe.Exec(ctx)
	return err
}

// GetFlexRows returns the cached rows, or ok=false on a miss.
func (r *RedisStore) GetFlexRows(ctx context.Context, parentID int64) (rows []FlexItem, ok bool, err error) {
	data, err := r.client.Get(ctx, flexKey(parentID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (r *RedisStore) RemoveParent(ctx context.Context, parentID int64) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, flexKey(parentID))
	pipe.SRem(ctx, allParentsKey, parentID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetAllParentIDs(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, allParentsKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	ids, err := r.GetAllParentIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.RemoveParent(ctx, id)
	}
	return r.client.Del(ctx, allParentsKey).Err()
}
