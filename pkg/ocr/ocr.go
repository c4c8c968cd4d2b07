package ocr

import (
	"context"
	"fmt"
	"sync"
)

// Region 识别结果在图片中的矩形区域（像素坐标，原点左上角）
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection 单条文本识别结果
type Detection struct {
	Text       string  `json:"text"`
	Region     Region  `json:"region"`
	Confidence float64 `json:"confidence"` // 0.0 - 1.0
}

// Engine OCR 引擎契约：一张编码图片进，识别结果列表出
type Engine interface {
	Name() string
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// ── 延迟初始化的进程级共享引擎 ──────────────────────────────
//
// Tesseract 引擎构造需要加载训练数据，开销较大，且环境缺少
// tessdata 时会失败。Lazy 在首次 Detect 时才构造底层引擎：
//   - 同一时刻最多一次构造（互斥锁覆盖构造全程）
//   - 构造失败不缓存，下次调用重新尝试
// ─────────────────────────────────────────────────────────────

// Lazy 延迟构造的 Engine 包装
type Lazy struct {
	mu      sync.Mutex
	engine  Engine
	factory func() (Engine, error)
}

// NewLazy 创建 Lazy 包装，factory 在首次 Detect 时调用
func NewLazy(factory func() (Engine, error)) *Lazy {
	return &Lazy{factory: factory}
}

// Name 返回底层引擎名；尚未构造时返回占位名
func (l *Lazy) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine == nil {
		return "lazy(uninitialized)"
	}
	return l.engine.Name()
}

// Detect 按需构造底层引擎后转发调用
func (l *Lazy) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	eng, err := l.get()
	if err != nil {
		return nil, err
	}
	return eng.Detect(ctx, image)
}

func (l *Lazy) get() (Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return l.engine, nil
	}

	eng, err := l.factory()
	if err != nil {
		// engine 保持 nil，下次调用重试构造
		return nil, fmt.Errorf("初始化 OCR 引擎失败: %w", err)
	}
	l.engine = eng
	return eng, nil
}
