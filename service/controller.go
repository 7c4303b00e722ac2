package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/utils"
	"go.uber.org/zap"
)

var ErrAnalysisInProgress = errors.New("analysis already in progress")

const defaultErrorMessage = "API Error! Backend อาจยังไม่รัน"

// Validator 可以在不发请求的情况下校验图片
type Validator interface {
	ValidateImage(file *model.ImageFile) error
}

// StatusSource 提供检测服务的可达性
type StatusSource interface {
	Status() model.APIStatus
}

// Controller 持有单个会话的视图状态，并协调检测请求、覆盖层和病害卡片。
type Controller struct {
	mu sync.Mutex

	state model.ViewState
	cards []model.DiseaseCard

	predictor Predictor
	previews  *PreviewStore
	health    StatusSource

	release func()
	closed  bool
}

func NewController(predictor Predictor, previews *PreviewStore, health StatusSource) *Controller {
	return &Controller{
		state:     model.NewViewState(),
		cards:     []model.DiseaseCard{},
		predictor: predictor,
		previews:  previews,
		health:    health,
	}
}

// State 返回状态快照
func (c *Controller) State() model.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if c.health != nil {
		s = s.SetAPIStatus(c.health.Status())
	}
	return s
}

// Snapshot 在同一把锁下返回状态、覆盖层和病害卡片
func (c *Controller) Snapshot() (model.ViewState, []model.OverlayBox, []model.DiseaseCard) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if c.health != nil {
		s = s.SetAPIStatus(c.health.Status())
	}
	return s, MapOverlay(s.Predictions, s.Dimensions()), c.cards
}

// DiseaseCards 返回当前预测对应的病害卡片
func (c *Controller) DiseaseCards() []model.DiseaseCard {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cards
}

// Overlay 返回当前尺寸下的覆盖层矩形
func (c *Controller) Overlay() []model.OverlayBox {
	c.mu.Lock()
	defer c.mu.Unlock()

	return MapOverlay(c.state.Predictions, c.state.Dimensions())
}

// SelectFile 替换当前图片，释放上一张图片的预览并登记新的预览
func (c *Controller) SelectFile(file *model.ImageFile) (string, error) {
	if file == nil {
		return "", ErrNoFile
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", errors.New("session closed")
	}

	if c.release != nil {
		c.release()
		c.release = nil
	}

	id, release := c.previews.Acquire(file)
	c.release = release

	c.setPredictions(c.state.SelectFile(file, id))

	utils.Logger.Info("file selected",
		zap.String("filename", file.Name),
		zap.String("preview_id", id),
		zap.Int64("size", file.Size()))

	return id, nil
}

func (c *Controller) ImageLoaded(natural, displayed model.Size) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.state.ImageLoaded(natural, displayed)
}

func (c *Controller) Resized(displayed model.Size) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.state.Resized(displayed)
}

// SetConfidence 返回对齐后的实际阈值
func (c *Controller) SetConfidence(v float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.state.SetConfidence(v)
	return c.state.Confidence
}

// Analyze 用当前阈值请求检测服务。
// 未选择文件时什么都不做；无论结果如何都会清除 loading。
// 失败时错误信息写入状态，同时返回给调用方。
func (c *Controller) Analyze(ctx context.Context) error {
	c.mu.Lock()

	file := c.state.File
	if file == nil {
		c.mu.Unlock()
		return nil
	}
	if c.state.Loading {
		c.mu.Unlock()
		return ErrAnalysisInProgress
	}

	// 校验失败发生在设置 loading 之前
	if v, ok := c.predictor.(Validator); ok {
		if err := v.ValidateImage(file); err != nil {
			c.state = c.state.AnalysisFailed(err.Error())
			c.mu.Unlock()
			return err
		}
	}

	c.state = c.state.BeginAnalysis()
	previewID := c.state.PreviewID
	options := &PredictOptions{ConfidenceThreshold: c.state.Confidence}
	c.mu.Unlock()

	var (
		resp *model.PredictResponse
		err  error
	)

	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.state.Loading = false

		// 分析期间用户换了图片，结果作废
		if c.state.PreviewID != previewID {
			return
		}

		if err != nil {
			c.state = c.state.AnalysisFailed(userMessage(err))
			return
		}
		if resp != nil {
			c.setPredictions(c.state.AnalysisSucceeded(resp))
		}
	}()

	start := time.Now()
	resp, err = c.predictor.PredictImage(ctx, file, options)
	if err != nil {
		utils.Logger.Error("prediction failed",
			zap.String("filename", file.Name),
			zap.Duration("cost", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("predict: %w", err)
	}

	count := 0
	if resp != nil {
		count = len(resp.Predictions)
	}
	utils.Logger.Info("prediction finished",
		zap.String("filename", file.Name),
		zap.Int("predictions", count),
		zap.Duration("cost", time.Since(start)))

	return nil
}

// Close 释放预览资源，之后不再接受新文件
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.release != nil {
		c.release()
		c.release = nil
	}
	c.closed = true
}

// setPredictions 应用新状态，并在预测变化时重新计算病害卡片
func (c *Controller) setPredictions(next model.ViewState) {
	c.state = next
	c.cards = GroupDiseaseCards(next.Predictions)
}

func userMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return defaultErrorMessage
}
