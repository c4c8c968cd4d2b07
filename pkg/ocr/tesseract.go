package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine 基于 gosseract 的 OCR 引擎实现
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine 构造 Tesseract 引擎
// 构造期做一次自检（设置语言需要加载对应 tessdata），
// 环境缺少训练数据时在此失败，而不是在首次识别时
func NewTesseractEngine(languages []string) (*TesseractEngine, error) {
	probe := gosseract.NewClient()
	defer probe.Close()

	if len(languages) > 0 {
		if err := probe.SetLanguage(languages...); err != nil {
			return nil, fmt.Errorf("加载 Tesseract 语言数据失败 %v: %w", languages, err)
		}
	}

	return &TesseractEngine{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
	}, nil
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Detect 对一张编码图片执行文本识别
// gosseract 的 C 调用不可中断，识别放入独立 goroutine，
// ctx 超时/取消时本调用立即返回，不阻塞调用方
func (e *TesseractEngine) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	type outcome struct {
		dets []Detection
		err  error
	}

	ch := make(chan outcome, 1)
	go func() {
		dets, err := e.detect(image)
		ch <- outcome{dets: dets, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-ch:
		return o.dets, o.err
	}
}

func (e *TesseractEngine) detect(image []byte) ([]Detection, error) {
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("设置识别图片失败: %w", err)
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("设置识别语言失败: %w", err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("文本识别失败: %w", err)
	}

	dets := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		dets = append(dets, Detection{
			Text: b.Word,
			Region: Region{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
			Confidence: b.Confidence / 100.0,
		})
	}
	return dets, nil
}
