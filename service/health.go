package service

import (
	"context"
	"sync/atomic"

	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/utils"
	"go.uber.org/zap"
)

// HealthChecker 由 DetectorClient 实现
type HealthChecker interface {
	CheckHealth(ctx context.Context) (any, error)
}

// APIHealth 记录启动时对检测服务的一次探测结果。
// 只用于显示在线/离线标记，不影响分析请求。
type APIHealth struct {
	checker HealthChecker
	status  atomic.Int32
	detail  atomic.Value
}

var _ StatusSource = &APIHealth{}

func NewAPIHealth(checker HealthChecker) *APIHealth {
	return &APIHealth{
		checker: checker,
	}
}

// Check 探测一次并记录结果
func (h *APIHealth) Check(ctx context.Context) model.APIStatus {
	body, err := h.checker.CheckHealth(ctx)
	if err != nil {
		utils.Logger.Warn("detector unreachable", zap.Error(err))
		h.status.Store(int32(model.APIOffline))
		return model.APIOffline
	}

	h.detail.Store(healthDetail{body})
	utils.Logger.Info("detector reachable", zap.Any("health", body))
	h.status.Store(int32(model.APIOnline))
	return model.APIOnline
}

func (h *APIHealth) Status() model.APIStatus {
	return model.APIStatus(h.status.Load())
}

// Detail 最近一次成功探测的响应体，可以是任意 JSON 值
func (h *APIHealth) Detail() any {
	v, _ := h.detail.Load().(healthDetail)
	return v.body
}

// atomic.Value 要求每次存入的具体类型一致
type healthDetail struct {
	body any
}
