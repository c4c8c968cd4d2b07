package repository

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
)

func sampleRecord(owner string) *model.CacheRecord {
	return &model.CacheRecord{
		Owner:     owner,
		Timetable: model.PlaceholderTimetable(),
		ImageRef:  "aGVsbG8=",
		Timestamp: "2024-01-01 08:00:00",
		AvailablePlans: []model.PlanRef{
			{URL: "https://img.example/kw36.png", Title: "MTA Stundenplan KW36"},
		},
		AvailableClasses: []string{"MTL 01", "MTL 02"},
	}
}

func TestMemoryCacheRepo_RoundTrip(t *testing.T) {
	repo := NewMemoryCacheRepo()
	ctx := context.Background()

	in := sampleRecord("alice")
	if err := repo.Put(ctx, in); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	out, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if out.Timestamp != "2024-01-01 08:00:00" {
		t.Errorf("时间戳应原样返回, 实际 %s", out.Timestamp)
	}
	if !reflect.DeepEqual(out.Timetable, in.Timetable) {
		t.Errorf("课表内容应深度相等")
	}
	if !reflect.DeepEqual(out.AvailablePlans, in.AvailablePlans) {
		t.Errorf("可用计划应深度相等")
	}
}

func TestMemoryCacheRepo_NotFound(t *testing.T) {
	repo := NewMemoryCacheRepo()

	_, err := repo.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("期望 ErrRecordNotFound, 实际 %v", err)
	}
}

func TestMemoryCacheRepo_OverwritesWhole(t *testing.T) {
	repo := NewMemoryCacheRepo()
	ctx := context.Background()

	first := sampleRecord("alice")
	if err := repo.Put(ctx, first); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	// 第二条记录字段更少：覆盖后旧字段不得残留（整条替换，非合并）
	second := &model.CacheRecord{
		Owner:     "alice",
		Timetable: model.PlaceholderTimetable(),
		Timestamp: "2024-01-02 08:00:00",
	}
	if err := repo.Put(ctx, second); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	out, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if out.Timestamp != "2024-01-02 08:00:00" {
		t.Errorf("覆盖后时间戳不符: %s", out.Timestamp)
	}
	if len(out.AvailablePlans) != 0 {
		t.Errorf("覆盖后旧的可用计划不应残留: %+v", out.AvailablePlans)
	}
	if out.ImageRef != "" {
		t.Errorf("覆盖后旧的图片引用不应残留: %s", out.ImageRef)
	}
}

func TestMemoryCacheRepo_CallerCannotMutateStored(t *testing.T) {
	repo := NewMemoryCacheRepo()
	ctx := context.Background()

	in := sampleRecord("alice")
	if err := repo.Put(ctx, in); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	// 写入后改写调用方持有的记录，不应影响存储内容
	in.AvailableClasses[0] = "MTL 99"
	in.Timetable.ClassNames[0] = "MTL 99"

	out, _ := repo.Get(ctx, "alice")
	if out.AvailableClasses[0] != "MTL 01" {
		t.Errorf("存储内容被调用方改写: %s", out.AvailableClasses[0])
	}
	if out.Timetable.ClassNames[0] != "MTL 01" {
		t.Errorf("课表内容被调用方改写: %s", out.Timetable.ClassNames[0])
	}

	// 读取结果的改写同样不应影响存储内容
	out.AvailableClasses[0] = "MTL 98"
	again, _ := repo.Get(ctx, "alice")
	if again.AvailableClasses[0] != "MTL 01" {
		t.Errorf("存储内容被读取方改写: %s", again.AvailableClasses[0])
	}
}

func TestMemoryCacheRepo_ConcurrentSameOwner(t *testing.T) {
	repo := NewMemoryCacheRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Put(ctx, sampleRecord("alice"))
			_, _ = repo.Get(ctx, "alice")
		}()
	}
	wg.Wait()

	out, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	// 并发覆盖后记录必须是完整的一条（不存在字段级撕裂）
	if out.Owner != "alice" || out.Timetable == nil || len(out.AvailableClasses) != 2 {
		t.Errorf("并发写入后记录不完整: %+v", out)
	}
}
