package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/TIANLI0/LeafScan/middleware"
	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/service"
	"github.com/gin-gonic/gin"
)

// Dimensions 图片 onload 时上报原始尺寸和显示尺寸
func (h *LeafHandler) Dimensions(c *gin.Context) {
	var req model.DimensionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	middleware.Controller(c).ImageLoaded(req.Natural, req.Displayed)
	h.respondState(c, http.StatusOK)
}

// Resize 窗口大小变化时只更新显示尺寸
func (h *LeafHandler) Resize(c *gin.Context) {
	var req model.ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	middleware.Controller(c).Resized(req.Displayed)
	h.respondState(c, http.StatusOK)
}

func (h *LeafHandler) Confidence(c *gin.Context) {
	var req model.ConfidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	middleware.Controller(c).SetConfidence(req.Confidence)
	h.respondState(c, http.StatusOK)
}

// Analyze 触发一次检测。客户端断开不会取消正在进行的请求。
func (h *LeafHandler) Analyze(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())

	err := middleware.Controller(c).Analyze(ctx)
	switch {
	case err == nil:
		h.respondState(c, http.StatusOK)
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrAnalysisInProgress):
		c.JSON(http.StatusConflict, model.ErrorResponse{
			Success: false,
			Message: err.Error(),
		})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Success: false,
			Message: middleware.Controller(c).State().Error,
			Error:   err.Error(),
		})
	}
}

// State 返回当前视图状态、覆盖层和病害卡片
func (h *LeafHandler) State(c *gin.Context) {
	h.respondState(c, http.StatusOK)
}

// Classes 转发检测服务的类别列表
func (h *LeafHandler) Classes(c *gin.Context) {
	result, err := h.client.Classes(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Success: false,
			Message: "failed to fetch classes",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *LeafHandler) respondState(c *gin.Context, status int) {
	c.JSON(status, buildState(middleware.Controller(c)))
}

func buildState(ctrl *service.Controller) model.StateResponse {
	s, boxes, cards := ctrl.Snapshot()

	resp := model.StateResponse{
		Success:     true,
		Dimensions:  s.Dimensions(),
		Loading:     s.Loading,
		API:         s.API,
		Confidence:  s.Confidence,
		ShowGuide:   s.ShowGuide,
		CanAnalyze:  s.CanAnalyze(),
		Error:       s.Error,
		Boxes:       boxes,
		Cards:       cards,
		Predictions: s.Predictions,
		Image:       s.Image,
		Summary:     s.Summary,
		ElapsedMS:   s.ElapsedMS,
	}
	if s.File != nil {
		resp.FileName = s.File.Name
		resp.PreviewURL = "/api/v1/preview/" + s.PreviewID
	}
	if resp.Boxes == nil {
		resp.Boxes = []model.OverlayBox{}
	}
	if resp.Predictions == nil {
		resp.Predictions = []model.Prediction{}
	}

	return resp
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Message: "invalid request",
		Error:   err.Error(),
	})
}
