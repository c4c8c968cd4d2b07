package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ttvtimotheus/dsbbutbetter/internal/dsb"
	"github.com/ttvtimotheus/dsbbutbetter/internal/dto"
	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
	"github.com/ttvtimotheus/dsbbutbetter/internal/repository"
)

// ── DSB 模块业务错误 ──

var (
	// ErrDSBAuthFailed 认证失败（凭据错误与门户不可达不作区分，不走缓存回退）
	ErrDSBAuthFailed = errors.New("DSBmobile 认证失败")
	// ErrDSBNoPlan 无课表且无缓存
	ErrDSBNoPlan = errors.New("未找到课表")
	// ErrDSBFetchFailed 课表资源获取失败（按设计不走缓存回退）
	ErrDSBFetchFailed = errors.New("课表获取失败")
	// ErrDSBNotCached 该用户暂无缓存记录
	ErrDSBNotCached = errors.New("该用户暂无缓存课表")
)

// ── DSBService 接口 ────────────────────────────────────────
//
// 采集流水线：认证 → 筛选候选 → 下载图片 → OCR 归一化 → 缓存。
//
// 回退策略（刻意不对称，见各方法注释）：
//   - 认证失败：直接报错，绝不返回缓存（凭据问题必须暴露）
//   - 候选为空：有缓存返回缓存（from_cache），无缓存报未找到
//   - 下载失败：直接报错，不用缓存兜底
//   - OCR 失败：占位课表兜底，流水线不中断
//
// 缓存写入在响应返回后异步完成，失败只记日志。
// ─────────────────────────────────────────────────────────────

// DSBService DSBmobile 课表采集业务接口
type DSBService interface {
	// AcquireLatest 采集最新课表
	AcquireLatest(ctx context.Context, username, password string) (*dto.TimetableResponse, error)
	// AcquireSpecific 采集指定 URL 的计划
	AcquireSpecific(ctx context.Context, username, password, planURL string) (*dto.TimetableResponse, error)
	// ReadCached 读取缓存课表（纯查询，不触发采集）
	ReadCached(ctx context.Context, owner string) (*dto.TimetableResponse, error)
}

type dsbService struct {
	repo   *repository.Repository
	client dsb.Client
	ocr    OCRService
	logger *zap.Logger

	// 同一用户的异步缓存写入串行化
	ownerMu    sync.Mutex
	ownerLocks map[string]*sync.Mutex

	// persistWG 供测试等待异步写入完成
	persistWG sync.WaitGroup
}

// NewDSBService 创建 DSBService 实例
func NewDSBService(repo *repository.Repository, client dsb.Client, ocrSvc OCRService, logger *zap.Logger) DSBService {
	return &dsbService{
		repo:       repo,
		client:     client,
		ocr:        ocrSvc,
		logger:     logger,
		ownerLocks: make(map[string]*sync.Mutex),
	}
}

// ════════════════════════════════════════════════════════════
// AcquireLatest — 采集最新课表
// ════════════════════════════════════════════════════════════

func (s *dsbService) AcquireLatest(ctx context.Context, username, password string) (*dto.TimetableResponse, error) {
	s.logger.Info("开始课表采集", zap.String("username", username))

	// 1. 认证（凭据换取会话 + 首次列表探测）
	sess, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	// 2. 预读缓存（候选为空时的回退来源）
	cached, cacheErr := s.repo.Cache.Get(ctx, username)
	if cacheErr != nil && !errors.Is(cacheErr, repository.ErrRecordNotFound) {
		s.logger.Warn("缓存预读失败", zap.Error(cacheErr))
		cached = nil
	}

	// 3. 列表 + 筛选（认证探测成功后的正式列表调用，
	//    此处的传输失败按获取失败处理，不再归入认证失败）
	selected, err := s.listCandidates(ctx, sess)
	if err != nil {
		s.logger.Error("课表列表获取失败", zap.Error(err))
		return nil, ErrDSBFetchFailed
	}

	// 4. 候选为空：缓存回退或未找到
	if len(selected) == 0 {
		if cached != nil {
			s.logger.Info("未找到新课表，返回缓存", zap.String("username", username))
			return cachedResponse(cached), nil
		}
		s.logger.Warn("未找到课表且无缓存", zap.String("username", username))
		return nil, ErrDSBNoPlan
	}

	primary := selected[0]
	s.logger.Info("选定课表",
		zap.String("title", primary.Title),
		zap.Int("candidates", len(selected)),
	)

	// 5. 下载主选计划图片（失败不走缓存兜底）
	imageData, err := s.client.FetchImage(ctx, primary.URL)
	if err != nil {
		s.logger.Error("课表图片下载失败", zap.Error(err))
		return nil, ErrDSBFetchFailed
	}

	// 6. OCR 归一化（全函数，失败内化为占位课表）
	timetable := s.ocr.Process(ctx, imageData)

	// 7. 班级集合：标题挖掘 ∪ OCR 挖掘
	titles := make([]string, 0, len(selected))
	for _, p := range selected {
		titles = append(titles, p.Title)
	}
	classes := MergeClassNames(ExtractClassNames(titles...), timetable.ClassNames)

	timestamp := time.Now().Format(model.TimestampLayout)

	// 8. 异步落缓存，不阻塞响应
	s.persistAsync(&model.CacheRecord{
		Owner:            username,
		Timetable:        timetable,
		ImageRef:         base64.StdEncoding.EncodeToString(imageData),
		Timestamp:        timestamp,
		AvailablePlans:   selected,
		AvailableClasses: classes,
	})

	return &dto.TimetableResponse{
		Timetable:        timetable,
		AvailablePlans:   selected,
		AvailableClasses: classes,
		LastUpdated:      timestamp,
		Status:           "success",
	}, nil
}

// ════════════════════════════════════════════════════════════
// AcquireSpecific — 采集指定 URL 的计划
// ════════════════════════════════════════════════════════════
//
// 指定 URL 可能指向已失效的文档；下载内容无法解码为图片时，
// 用列表主选计划重试一次（且仅一次），避免无界递归。

func (s *dsbService) AcquireSpecific(ctx context.Context, username, password, planURL string) (*dto.TimetableResponse, error) {
	s.logger.Info("开始采集指定计划",
		zap.String("username", username),
		zap.String("url", planURL),
	)

	sess, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	// 指定 URL 不经过候选筛选，直接下载；列表仅在首次下载
	// 内容无效需要回退时才惰性获取
	imageData, err := s.fetchValidImage(ctx, sess, planURL)
	if err != nil {
		return nil, err
	}

	timetable := s.ocr.Process(ctx, imageData)
	timestamp := time.Now().Format(model.TimestampLayout)

	s.persistAsync(&model.CacheRecord{
		Owner:     username,
		Timetable: timetable,
		ImageRef:  base64.StdEncoding.EncodeToString(imageData),
		Timestamp: timestamp,
	})

	return &dto.TimetableResponse{
		Timetable:   timetable,
		LastUpdated: timestamp,
		Status:      "success",
	}, nil
}

// ════════════════════════════════════════════════════════════
// ReadCached — 读取缓存课表
// ════════════════════════════════════════════════════════════

func (s *dsbService) ReadCached(ctx context.Context, owner string) (*dto.TimetableResponse, error) {
	record, err := s.repo.Cache.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrDSBNotCached
		}
		s.logger.Error("缓存读取失败", zap.Error(err))
		return nil, err
	}
	return cachedResponse(record), nil
}

// ── 内部步骤 ──

// authenticate 凭据换取会话，并以首次列表调用作为认证探测
// 门户协议没有显式的凭据校验接口；凭据错误与传输失败在此
// 不作区分，统一归入认证失败且不走缓存回退
func (s *dsbService) authenticate(ctx context.Context, username, password string) (*dsb.Session, error) {
	sess, err := s.client.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn("认证失败", zap.String("username", username), zap.Error(err))
		return nil, ErrDSBAuthFailed
	}

	if _, err := s.client.GetPlans(ctx, sess); err != nil {
		s.logger.Warn("认证探测失败", zap.String("username", username), zap.Error(err))
		return nil, ErrDSBAuthFailed
	}

	s.logger.Info("认证成功", zap.String("username", username))
	return sess, nil
}

// listCandidates 列出并筛选课表候选
// 主来源（课表列表）筛选为空时，以相同规则对次级来源（新闻）重试
func (s *dsbService) listCandidates(ctx context.Context, sess *dsb.Session) ([]model.PlanRef, error) {
	plans, err := s.client.GetPlans(ctx, sess)
	if err != nil {
		return nil, err
	}

	selected := SelectPlans(plans)
	if len(selected) > 0 {
		return selected, nil
	}

	news, err := s.client.GetNews(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.logger.Info("课表列表无匹配，改查新闻来源", zap.Int("news", len(news)))

	return SelectPlans(news), nil
}

// fetchValidImage 下载指定 URL 并校验为图片；无效时才拉取候选列表，
// 用主选计划重试一次。列表或回退失败不影响指定 URL 本身有效的请求
func (s *dsbService) fetchValidImage(ctx context.Context, sess *dsb.Session, planURL string) ([]byte, error) {
	data, err := s.client.FetchImage(ctx, planURL)
	if err != nil {
		s.logger.Error("指定计划下载失败", zap.Error(err))
		return nil, ErrDSBFetchFailed
	}
	if isValidImage(data) {
		return data, nil
	}

	selected, err := s.listCandidates(ctx, sess)
	if err != nil {
		s.logger.Error("回退候选列表获取失败", zap.Error(err))
		return nil, ErrDSBFetchFailed
	}
	if len(selected) == 0 || selected[0].URL == planURL {
		s.logger.Error("指定计划不是有效图片且无可用回退", zap.String("url", planURL))
		return nil, ErrDSBFetchFailed
	}

	fallback := selected[0].URL
	s.logger.Info("指定计划不是有效图片，改用主选计划",
		zap.String("requested", planURL),
		zap.String("fallback", fallback),
	)

	data, err = s.client.FetchImage(ctx, fallback)
	if err != nil {
		s.logger.Error("主选计划下载失败", zap.Error(err))
		return nil, ErrDSBFetchFailed
	}
	if !isValidImage(data) {
		s.logger.Error("主选计划同样不是有效图片", zap.String("url", fallback))
		return nil, ErrDSBFetchFailed
	}
	return data, nil
}

// persistAsync 异步整条覆盖写入缓存
// 写入失败只记日志，绝不影响已经返回的响应；同一用户的写入串行化
func (s *dsbService) persistAsync(record *model.CacheRecord) {
	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("缓存写入协程 panic", zap.Any("panic", r))
			}
		}()

		mu := s.ownerLock(record.Owner)
		mu.Lock()
		defer mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.repo.Cache.Put(ctx, record); err != nil {
			s.logger.Error("缓存写入失败",
				zap.String("owner", record.Owner),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("课表已写入缓存", zap.String("owner", record.Owner))
	}()
}

func (s *dsbService) ownerLock(owner string) *sync.Mutex {
	s.ownerMu.Lock()
	defer s.ownerMu.Unlock()
	mu, ok := s.ownerLocks[owner]
	if !ok {
		mu = &sync.Mutex{}
		s.ownerLocks[owner] = mu
	}
	return mu
}

// cachedResponse 由缓存记录构造响应
func cachedResponse(record *model.CacheRecord) *dto.TimetableResponse {
	return &dto.TimetableResponse{
		Timetable:        record.Timetable,
		AvailablePlans:   record.AvailablePlans,
		AvailableClasses: record.AvailableClasses,
		LastUpdated:      record.Timestamp,
		Status:           "success",
		FromCache:        true,
	}
}
