package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/TIANLI0/LeafScan/config"
	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var ErrAnnotatorBusy = errors.New("annotation queue is full, please retry later")

// Annotator 在原始图片上绘制检测框和标签，输出 JPEG
type Annotator struct {
	thickness    int
	maxSize      int
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func NewAnnotator(cfg *config.AnnotateConfig) *Annotator {
	queueTimeout := time.Duration(cfg.QueueTimeout) * time.Second
	if queueTimeout <= 0 {
		queueTimeout = 30 * time.Second
	}

	return &Annotator{
		thickness:    max(1, cfg.Thickness),
		maxSize:      cfg.MaxSize,
		semaphore:    make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout: queueTimeout,
	}
}

// Annotate 坐标使用原始像素空间，绘制完成后按 maxSize 缩小
func (a *Annotator) Annotate(ctx context.Context, file *model.ImageFile, preds []model.Prediction) ([]byte, error) {
	if file == nil {
		return nil, ErrNoFile
	}

	ctx, cancel := context.WithTimeout(ctx, a.queueTimeout)
	defer cancel()

	select {
	case a.semaphore <- struct{}{}:
		defer func() { <-a.semaphore }()
	case <-ctx.Done():
		return nil, ErrAnnotatorBusy
	}

	startTime := time.Now()

	img, err := gocv.IMDecode(file.Content, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("failed to read image")
	}

	for _, p := range preds {
		a.drawPrediction(&img, p)
	}

	scaled, scale := a.smartResize(&img)
	defer scaled.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, scaled)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	utils.Logger.Info("image annotated",
		zap.String("filename", file.Name),
		zap.Int("boxes", len(preds)),
		zap.Float64("scale", scale),
		zap.Duration("duration", time.Since(startTime)))

	return data, nil
}

func (a *Annotator) drawPrediction(img *gocv.Mat, p model.Prediction) {
	col := parseHexColor(PickColor(p))

	rect := image.Rect(int(p.Box.X1), int(p.Box.Y1), int(p.Box.X2), int(p.Box.Y2))
	gocv.Rectangle(img, rect, col, a.thickness)

	text := BoxLabel(p)
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, 0.5, 1)

	// 标签放在框的上方，贴近图片顶部时放到框内
	top := rect.Min.Y - size.Y - 6
	if top < 0 {
		top = rect.Min.Y
	}
	bg := image.Rect(rect.Min.X, top, rect.Min.X+size.X+6, top+size.Y+6)
	gocv.Rectangle(img, bg, col, -1)
	gocv.PutText(img, text, image.Pt(bg.Min.X+3, bg.Max.Y-3), gocv.FontHersheySimplex, 0.5, color.RGBA{255, 255, 255, 0}, 1)
}

// smartResize 缩放到 maxSize 以内，maxSize 为 0 时不缩放
func (a *Annotator) smartResize(img *gocv.Mat) (gocv.Mat, float64) {
	width := img.Cols()
	height := img.Rows()
	maxDim := max(width, height)
	if a.maxSize <= 0 || maxDim <= a.maxSize {
		return img.Clone(), 1.0
	}

	scale := float64(a.maxSize) / float64(maxDim)
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)

	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Point{X: newWidth, Y: newHeight}, 0, 0, gocv.InterpolationArea)

	return resized, scale
}

// parseHexColor 解析 #rrggbb
func parseHexColor(hex string) color.RGBA {
	hex = strings.TrimPrefix(hex, "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return color.RGBA{0, 255, 0, 0}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0}
}
