package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"

	"github.com/ttvtimotheus/dsbbutbetter/internal/dsb"
	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
	"github.com/ttvtimotheus/dsbbutbetter/pkg/ocr"
)

// ── Mock 门户客户端 ──

// plansResult GetPlans 单次调用的预设结果
type plansResult struct {
	plans []model.PlanRef
	err   error
}

type mockDSBClient struct {
	mu sync.Mutex

	loginSession *dsb.Session
	loginErr     error

	// plansQueue 非空时按调用顺序弹出；耗尽后回落到 plans/plansErr
	plansQueue []plansResult
	plans      []model.PlanRef
	plansErr   error
	plansCalls int

	news    []model.PlanRef
	newsErr error

	images     map[string][]byte
	fetchErr   error
	fetchCalls []string
}

func (m *mockDSBClient) Login(_ context.Context, _, _ string) (*dsb.Session, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	if m.loginSession != nil {
		return m.loginSession, nil
	}
	return &dsb.Session{AuthID: "test-auth"}, nil
}

func (m *mockDSBClient) GetPlans(_ context.Context, _ *dsb.Session) ([]model.PlanRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plansCalls++
	if len(m.plansQueue) > 0 {
		r := m.plansQueue[0]
		m.plansQueue = m.plansQueue[1:]
		return r.plans, r.err
	}
	return m.plans, m.plansErr
}

func (m *mockDSBClient) GetNews(_ context.Context, _ *dsb.Session) ([]model.PlanRef, error) {
	return m.news, m.newsErr
}

func (m *mockDSBClient) FetchImage(_ context.Context, imageURL string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls = append(m.fetchCalls, imageURL)
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if data, ok := m.images[imageURL]; ok {
		return data, nil
	}
	return validPNG(), nil
}

// ── Mock OCR 引擎 ──

type mockEngine struct {
	mu         sync.Mutex
	detections []ocr.Detection
	err        error
	calls      int
}

func (m *mockEngine) Name() string { return "mock" }

func (m *mockEngine) Detect(_ context.Context, _ []byte) ([]ocr.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.detections, m.err
}

// ── 测试数据 ──

// validPNG 生成一张 2x2 的有效 PNG 图片
func validPNG() []byte {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
