package repository

import (
	"context"
	"sync"

	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
)

// memoryCacheRepo 进程内缓存后端（默认）
// 读写均基于深拷贝，调用方持有的记录与存储内容互不影响
type memoryCacheRepo struct {
	mu      sync.RWMutex
	records map[string]*model.CacheRecord
}

// NewMemoryCacheRepo 创建进程内缓存后端
func NewMemoryCacheRepo() CacheRepository {
	return &memoryCacheRepo{records: make(map[string]*model.CacheRecord)}
}

func (r *memoryCacheRepo) Put(_ context.Context, record *model.CacheRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Owner] = record.Clone()
	return nil
}

func (r *memoryCacheRepo) Get(_ context.Context, owner string) (*model.CacheRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[owner]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return record.Clone(), nil
}
