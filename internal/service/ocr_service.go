package service

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/png"
	"time"

	// 注册解码器：门户的计划图片格式不固定
	_ "image/gif"
	_ "image/jpeg"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ttvtimotheus/dsbbutbetter/config"
	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
	"github.com/ttvtimotheus/dsbbutbetter/pkg/ocr"
)

// ── OCRService 接口 ────────────────────────────────────────
//
// 设计说明：
//   - Process 为全函数：任何内部失败都退化为占位课表，从不向
//     调用方返回错误（采集流水线不因 OCR 失败而中断）。
//   - 各阶段独立失败：解码 → 识别 → 班级挖掘 → 结构化解析，
//     前两阶段失败直接走占位回退。
//   - 识别受并发上限（Tesseract 为 CPU 密集）与超时约束。
// ─────────────────────────────────────────────────────────────

// OCRService 课表图片 OCR 归一化业务接口
type OCRService interface {
	// Process 将计划图片字节归一化为结构化课表（全函数，总会返回课表）
	Process(ctx context.Context, imageData []byte) *model.Timetable
}

type ocrService struct {
	engine  ocr.Engine
	workers *semaphore.Weighted
	timeout time.Duration
	logger  *zap.Logger
}

// NewOCRService 创建 OCRService 实例
func NewOCRService(cfg *config.OCRConfig, engine ocr.Engine, logger *zap.Logger) OCRService {
	return &ocrService{
		engine:  engine,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// ════════════════════════════════════════════════════════════
// Process — 图片字节 → 结构化课表
// ════════════════════════════════════════════════════════════

func (s *ocrService) Process(ctx context.Context, imageData []byte) *model.Timetable {
	s.logger.Info("开始 OCR 处理", zap.Int("bytes", len(imageData)))

	// 1. 解码并灰度化（识别前的预处理）
	grayPNG, err := toGrayscalePNG(imageData)
	if err != nil {
		s.logger.Error("图片解码失败，使用占位课表", zap.Error(err))
		return model.PlaceholderTimetable()
	}

	// 2. 文本识别
	detections, err := s.detect(ctx, grayPNG)
	if err != nil {
		s.logger.Error("OCR 文本识别失败，使用占位课表", zap.Error(err))
		return model.PlaceholderTimetable()
	}
	s.logger.Info("OCR 识别完成", zap.Int("detections", len(detections)))

	// 3. 从识别文本中挖掘班级标识；未找到时使用兜底班级
	texts := make([]string, 0, len(detections))
	for _, d := range detections {
		texts = append(texts, d.Text)
	}
	classNames := ExtractClassNames(texts...)
	if len(classNames) == 0 {
		s.logger.Info("OCR 结果中未找到班级，使用默认班级")
		classNames = model.DefaultClassNames()
	} else {
		s.logger.Info("OCR 结果中找到班级", zap.Strings("classes", classNames))
	}

	// 4. 结构化解析
	timetable := s.parseTimetable(detections)
	timetable.ClassNames = classNames

	return timetable
}

// detect 受并发上限与超时约束的识别调用
func (s *ocrService) detect(ctx context.Context, imageData []byte) ([]ocr.Detection, error) {
	if err := s.workers.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.workers.Release(1)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.engine.Detect(ctx, imageData)
}

// parseTimetable 将识别结果转为结构化课表
//
// 通用 OCR 对 MTL 网格版式无法可靠重建表格（单元格归位需要
// 针对版式的坐标映射，尚未实现），当前始终返回占位课表；
// 识别文本仅记录到日志用于诊断，班级挖掘是唯一消费方
func (s *ocrService) parseTimetable(detections []ocr.Detection) *model.Timetable {
	for i, d := range detections {
		if i >= 10 {
			break
		}
		s.logger.Debug("OCR 文本块",
			zap.Int("index", i),
			zap.String("text", d.Text),
			zap.Float64("confidence", d.Confidence),
		)
	}

	s.logger.Info("使用 MTL 占位课表（结构化 OCR 解析未启用）")
	return model.PlaceholderTimetable()
}

// ── 图片工具 ──

// toGrayscalePNG 解码任意受支持格式并转为灰度 PNG
func toGrayscalePNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// isValidImage 校验字节是否能解码为图片（指定计划采集的回退判据）
func isValidImage(data []byte) bool {
	_, _, err := image.Decode(bytes.NewReader(data))
	return err == nil
}
