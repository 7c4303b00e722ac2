package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/TIANLI0/LeafScan/config"
	"github.com/TIANLI0/LeafScan/middleware"
	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/service"
	"github.com/TIANLI0/LeafScan/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LeafHandler struct {
	cfg       *config.Config
	client    *service.DetectorClient
	previews  *service.PreviewStore
	annotator *service.Annotator
}

func NewLeafHandler(cfg *config.Config, client *service.DetectorClient, previews *service.PreviewStore, annotator *service.Annotator) *LeafHandler {
	return &LeafHandler{
		cfg:       cfg,
		client:    client,
		previews:  previews,
		annotator: annotator,
	}
}

// SelectFile 处理图片选择。类型和大小在分析时校验，这里只限制读取上限。
func (h *LeafHandler) SelectFile(c *gin.Context) {
	limit := 2*h.cfg.Upload.MaxSize + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{
				Success: false,
				Message: fmt.Sprintf("file too large (> %d MB)", h.cfg.Upload.MaxSize/(1024*1024)),
			})
			return
		}
		utils.Logger.Error("failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "กรุณาเลือกรูปภาพ",
			Error:   err.Error(),
		})
		return
	}

	f, err := header.Open()
	if err != nil {
		respondInternal(c, "failed to open uploaded file", err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		respondInternal(c, "failed to read uploaded file", err)
		return
	}

	file := &model.ImageFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}

	if _, err := middleware.Controller(c).SelectFile(file); err != nil {
		respondInternal(c, "failed to select file", err)
		return
	}

	h.respondState(c, http.StatusOK)
}

// Preview 返回预览图片
func (h *LeafHandler) Preview(c *gin.Context) {
	id := c.Param("id")

	file, ok := h.previews.Get(id)
	if !utils.IsID(id) || !ok {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "preview not found",
		})
		return
	}

	// 只回显图片类型，其他内容在分析时才报错，预览直接拒绝
	if !strings.HasPrefix(file.ContentType, "image/") {
		c.JSON(http.StatusUnsupportedMediaType, model.ErrorResponse{
			Success: false,
			Message: "preview is only available for images",
		})
		return
	}

	c.Header("X-Content-Type-Options", "nosniff")
	if strings.HasPrefix(file.ContentType, "image/svg") {
		c.Header("Content-Security-Policy", "sandbox")
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// Annotated 返回绘制了检测框的 JPEG
func (h *LeafHandler) Annotated(c *gin.Context) {
	state := middleware.Controller(c).State()
	if state.File == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "no file selected",
		})
		return
	}

	data, err := h.annotator.Annotate(c.Request.Context(), state.File, state.Predictions)
	if err != nil {
		if errors.Is(err, service.ErrAnnotatorBusy) {
			c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
				Success: false,
				Message: err.Error(),
			})
			return
		}
		respondInternal(c, "failed to annotate image", err)
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

func respondInternal(c *gin.Context, message string, err error) {
	utils.Logger.Error(message, zap.Error(err))
	c.JSON(http.StatusInternalServerError, model.ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}
