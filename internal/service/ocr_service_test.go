package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ttvtimotheus/dsbbutbetter/config"
	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
	"github.com/ttvtimotheus/dsbbutbetter/pkg/ocr"
)

func newTestOCRService(engine ocr.Engine) OCRService {
	cfg := &config.OCRConfig{
		Languages:  []string{"deu"},
		MaxWorkers: 2,
		Timeout:    5 * time.Second,
	}
	return NewOCRService(cfg, engine, zap.NewNop())
}

func TestProcess_TotalOnGarbageInput(t *testing.T) {
	engine := &mockEngine{}
	svc := newTestOCRService(engine)

	// 空字节与非图片字节都不得 panic 或返回 nil
	for _, input := range [][]byte{nil, {}, []byte("kein bild")} {
		tt := svc.Process(context.Background(), input)
		if tt == nil {
			t.Fatal("Process 必须总是返回课表")
		}
		if !tt.IsPlaceholder {
			t.Errorf("解码失败必须返回占位课表")
		}
	}
	if engine.calls != 0 {
		t.Errorf("解码失败时不应调用识别引擎, 实际调用 %d 次", engine.calls)
	}
}

func TestProcess_DetectFailureFallsBack(t *testing.T) {
	engine := &mockEngine{err: errors.New("tesseract 不可用")}
	svc := newTestOCRService(engine)

	tt := svc.Process(context.Background(), validPNG())
	if !tt.IsPlaceholder {
		t.Error("识别失败必须返回占位课表")
	}
	if !reflect.DeepEqual(tt.ClassNames, model.DefaultClassNames()) {
		t.Errorf("识别失败时班级应为默认集合: %v", tt.ClassNames)
	}
}

func TestProcess_MinesClassesFromDetections(t *testing.T) {
	engine := &mockEngine{detections: []ocr.Detection{
		{Text: "Stundenplan MTL  07", Confidence: 0.9},
		{Text: "Raum 423", Confidence: 0.8},
		{Text: "mtl 12", Confidence: 0.7},
	}}
	svc := newTestOCRService(engine)

	tt := svc.Process(context.Background(), validPNG())

	want := []string{"MTL 07", "mtl 12"}
	if !reflect.DeepEqual(tt.ClassNames, want) {
		t.Errorf("班级集合 %v, 期望 %v", tt.ClassNames, want)
	}
	// 结构化解析未启用：即使识别成功也返回占位网格
	if !tt.IsPlaceholder {
		t.Error("当前行为下结构化输出应始终为占位课表")
	}
	if len(tt.Days) != 5 || len(tt.Periods) != 5 {
		t.Errorf("占位课表应为固定 5 天 5 节网格: %d 天 %d 节", len(tt.Days), len(tt.Periods))
	}
}

func TestProcess_NoClassesUsesDefaults(t *testing.T) {
	engine := &mockEngine{detections: []ocr.Detection{
		{Text: "Montag", Confidence: 0.9},
	}}
	svc := newTestOCRService(engine)

	tt := svc.Process(context.Background(), validPNG())
	if !reflect.DeepEqual(tt.ClassNames, model.DefaultClassNames()) {
		t.Errorf("无班级命中时应使用默认集合: %v", tt.ClassNames)
	}
}

func TestIsValidImage(t *testing.T) {
	if !isValidImage(validPNG()) {
		t.Error("有效 PNG 应通过校验")
	}
	if isValidImage([]byte("html fehlerseite")) {
		t.Error("非图片字节不应通过校验")
	}
}
