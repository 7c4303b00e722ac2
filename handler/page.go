package handler

import (
	"net/http"

	"github.com/TIANLI0/LeafScan/middleware"
	"github.com/TIANLI0/LeafScan/model"
	"github.com/gin-gonic/gin"
)

type pageData struct {
	State         model.StateResponse
	MinConfidence float64
	MaxConfidence float64
	Step          float64
}

// Index 渲染单页界面，初始状态由服务端填充
func (h *LeafHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{
		State:         buildState(middleware.Controller(c)),
		MinConfidence: model.MinConfidence,
		MaxConfidence: model.MaxConfidence,
		Step:          model.ConfidenceStep,
	})
}
