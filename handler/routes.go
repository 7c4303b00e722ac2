package handler

import (
	"github.com/gin-gonic/gin"
)

// Register 注册页面和 API 路由，session 中间件只作用于需要会话的路由
func Register(r gin.IRouter, h *LeafHandler, session gin.HandlerFunc) {
	r.GET("/api/v1/preview/:id", h.Preview)
	r.GET("/api/v1/classes", h.Classes)

	s := r.Group("/", session)
	{
		s.GET("/", h.Index)
	}

	api := r.Group("/api/v1", session)
	{
		api.GET("/state", h.State)
		api.GET("/annotated.jpg", h.Annotated)
		api.POST("/file", h.SelectFile)
		api.POST("/dimensions", h.Dimensions)
		api.POST("/resize", h.Resize)
		api.POST("/confidence", h.Confidence)
		api.POST("/analyze", h.Analyze)
	}
}
