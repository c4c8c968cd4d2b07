package repository

import (
	"context"
	"errors"

	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
	"github.com/ttvtimotheus/dsbbutbetter/pkg/redis"
)

const cacheKeyPrefix = "timetable:cache:"

// redisCacheRepo Redis 缓存后端
// 记录序列化为单个 JSON 值，SET 覆盖写保证整体原子可见
type redisCacheRepo struct {
	rdb *redis.Client
}

// NewRedisCacheRepo 创建 Redis 缓存后端
func NewRedisCacheRepo(rdb *redis.Client) CacheRepository {
	return &redisCacheRepo{rdb: rdb}
}

func (r *redisCacheRepo) Put(ctx context.Context, record *model.CacheRecord) error {
	return r.rdb.SetJSON(ctx, cacheKeyPrefix+record.Owner, record)
}

func (r *redisCacheRepo) Get(ctx context.Context, owner string) (*model.CacheRecord, error) {
	var record model.CacheRecord
	if err := r.rdb.GetJSON(ctx, cacheKeyPrefix+owner, &record); err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}
