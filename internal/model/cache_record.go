package model

import "time"

// CacheRecord 每用户一条的课表缓存记录 — 对应 timetable_cache
//
// 语义约束：
//   - 以 Owner 为主键，写入为整条覆盖，从不与旧记录合并
//   - Timestamp 为采集时刻的字面字符串（TimestampLayout），读取时原样返回
//   - ImageRef 为原始图片的 Base64 引用，二进制过大时存占位标记
type CacheRecord struct {
	Owner            string     `gorm:"primaryKey;type:varchar(190)"  json:"owner"`
	Timetable        *Timetable `gorm:"serializer:json;type:jsonb"    json:"timetable"`
	ImageRef         string     `gorm:"type:text"                     json:"image_ref"`
	Timestamp        string     `gorm:"type:varchar(32);not null"     json:"timestamp"`
	AvailablePlans   []PlanRef  `gorm:"serializer:json;type:jsonb"    json:"available_plans"`
	AvailableClasses []string   `gorm:"serializer:json;type:jsonb"    json:"available_classes"`
	UpdatedAt        time.Time  `gorm:"not null"                      json:"-"`
}

func (CacheRecord) TableName() string { return "timetable_cache" }

// Clone 深拷贝缓存记录
// 内存后端读写都基于副本，保证记录整体原子可见、调用方无法改写存储内容
func (r *CacheRecord) Clone() *CacheRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Timetable = r.Timetable.Clone()
	out.AvailablePlans = append([]PlanRef(nil), r.AvailablePlans...)
	out.AvailableClasses = append([]string(nil), r.AvailableClasses...)
	return &out
}
