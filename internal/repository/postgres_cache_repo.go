package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
)

// postgresCacheRepo PostgreSQL 持久化缓存后端
// owner 主键冲突时整行更新（upsert），与内存后端的覆盖语义一致
type postgresCacheRepo struct {
	db *gorm.DB
}

// NewPostgresCacheRepo 创建 PostgreSQL 缓存后端
func NewPostgresCacheRepo(db *gorm.DB) CacheRepository {
	return &postgresCacheRepo{db: db}
}

func (r *postgresCacheRepo) Put(ctx context.Context, record *model.CacheRecord) error {
	record.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

func (r *postgresCacheRepo) Get(ctx context.Context, owner string) (*model.CacheRecord, error) {
	var record model.CacheRecord
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}
