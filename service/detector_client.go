package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxImageSize = 8 * 1024 * 1024
	DefaultIoUThreshold = 0.45
)

var (
	ErrNoFile       = errors.New("no file")
	ErrNotImage     = errors.New("please upload an image file")
	ErrFileTooLarge = errors.New("file too large")
)

// IsValidationError 判断是否为发送请求前的参数校验错误
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNoFile) || errors.Is(err, ErrNotImage) || errors.Is(err, ErrFileTooLarge)
}

// APIError 检测服务返回了非 2xx 状态
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	text := e.Body
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("API %d: %s", e.StatusCode, text)
}

type PredictOptions struct {
	ConfidenceThreshold float64
	IoUThreshold        float64
}

// Predictor 由 DetectorClient 和 CachedPredictor 实现
type Predictor interface {
	PredictImage(ctx context.Context, file *model.ImageFile, options *PredictOptions) (*model.PredictResponse, error)
}

var _ Predictor = &DetectorClient{}

// DetectorClient 远程病害检测服务的客户端。
// 每次调用只发一次请求，不重试，也不设置超时，由调用方决定如何处理失败。
type DetectorClient struct {
	client *http.Client

	url     string
	maxSize int64
	iou     float64

	limiter *rate.Limiter
}

type ClientOption func(*DetectorClient)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *DetectorClient) {
		c.client = client
	}
}

func WithMaxImageSize(size int64) ClientOption {
	return func(c *DetectorClient) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

func WithDefaultIoU(iou float64) ClientOption {
	return func(c *DetectorClient) {
		if iou > 0 {
			c.iou = iou
		}
	}
}

// WithRateLimit 限制 predict 请求速率，limit 为 0 时不限制
func WithRateLimit(limit float64, burst int) ClientOption {
	return func(c *DetectorClient) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(limit), max(1, burst))
	}
}

func NewDetectorClient(baseURL string, options ...ClientOption) *DetectorClient {
	c := &DetectorClient{
		client: http.DefaultClient,

		url:     strings.TrimRight(baseURL, "/"),
		maxSize: DefaultMaxImageSize,
		iou:     DefaultIoUThreshold,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

func (c *DetectorClient) BaseURL() string {
	return c.url
}

// CheckHealth 请求 GET /health，不看状态码，返回解析后的任意 JSON
func (c *DetectorClient) CheckHealth(ctx context.Context) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}

	return result, nil
}

// ValidateImage 检查文件是否存在、是否为图片以及大小
func (c *DetectorClient) ValidateImage(file *model.ImageFile) error {
	if file == nil {
		return ErrNoFile
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return fmt.Errorf("%w (got %q)", ErrNotImage, file.ContentType)
	}
	if file.Size() > c.maxSize {
		return fmt.Errorf("%w (> %d MB)", ErrFileTooLarge, c.maxSize/(1024*1024))
	}
	return nil
}

// PredictImage 以 multipart 表单字段 image 上传图片，请求 POST /predict
func (c *DetectorClient) PredictImage(ctx context.Context, file *model.ImageFile, options *PredictOptions) (*model.PredictResponse, error) {
	if err := c.ValidateImage(file); err != nil {
		return nil, err
	}

	conf, iou := c.thresholds(options)

	body, contentType, err := encodeImageForm(file)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	query := url.Values{}
	query.Set("conf", strconv.FormatFloat(conf, 'f', -1, 64))
	query.Set("iou", strconv.FormatFloat(iou, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/predict?"+query.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := convertError(resp)
		utils.Logger.Warn("detector returned error",
			zap.Int("status", apiErr.StatusCode),
			zap.String("body", apiErr.Body))
		return nil, apiErr
	}

	var result model.PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// Classes 请求 GET /classes
func (c *DetectorClient) Classes(ctx context.Context) (*model.ClassesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/classes", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, convertError(resp)
	}

	var result model.ClassesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

func (c *DetectorClient) thresholds(options *PredictOptions) (float64, float64) {
	conf, iou := model.DefaultConfidence, c.iou
	if options != nil {
		if options.ConfidenceThreshold > 0 {
			conf = options.ConfidenceThreshold
		}
		if options.IoUThreshold > 0 {
			iou = options.IoUThreshold
		}
	}
	return conf, iou
}

func encodeImageForm(file *model.ImageFile) (*bytes.Buffer, string, error) {
	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	name := file.Name
	if name == "" {
		name = "image"
		if ext, _ := mime.ExtensionsByType(file.ContentType); len(ext) > 0 {
			name = utils.NewID() + ext[0]
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", multipart.FileContentDisposition("image", name))
	h.Set("Content-Type", file.ContentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}

	if _, err := part.Write(file.Content); err != nil {
		return nil, "", fmt.Errorf("copy image data: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	return &body, w.FormDataContentType(), nil
}

func convertError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(resp.Body)

	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
}
